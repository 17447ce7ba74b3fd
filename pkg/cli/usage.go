// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file of the Go project.

// Portions of this file are additionally subject to the following
// license and copyright.
//
// Copyright 2026 The Amifs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Portions of this code originated in the Go source code, under
// cmd/go/internal/help.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
)

var usageTemplate = `{{abstract}}

Usage:

    {{program}} command [arguments]

The commands are:
{{range .}}{{if .Runnable}}
	{{.Name | printf "%-12s"}}   {{.Short}}{{end}}{{end}}

Use '{{program}} help [command]' for more information about a command.

Additional help topics:
{{range .}}{{if not .Runnable}}
	{{.Name | printf "%-12s"}}   {{.Short}}{{end}}{{end}}

Use '{{program}} help [topic]' for more information about that topic.
`

var helpTemplate = `{{if .Runnable}}Usage: {{program}} {{.UsageLine}}

{{else}}Topic: {{.Short}}

{{end}}{{.Long | trim}}
`

var cmdErrorHelpTemplate = `Usage:

  {{program}} {{.UsageLine}}

`

// tmpl executes the template text on data, writing the result to w.
func tmpl(w io.Writer, templateText, program, abstract string, data interface{}) {
	t := template.New("")
	t.Funcs(template.FuncMap{
		"trim":     strings.TrimSpace,
		"abstract": func() string { return abstract },
		"program":  func() string { return program },
	})
	template.Must(t.Parse(templateText))
	if err := t.Execute(w, data); err != nil {
		panic(err)
	}
}

// printFullUsage prints the top-level usage: abstract, commands and help
// topics.
func printFullUsage(program, abstract string, commands Commands) {
	tmpl(os.Stdout, usageTemplate, program, abstract, commands)
}

// printCommandUsage prints '<program> help <command>' output.
func printCommandUsage(program, command string, commands Commands) error {
	for _, cmd := range commands {
		if cmd.Name() == command {
			tmpl(os.Stdout, helpTemplate, program, "", cmd)
			return nil
		}
	}
	return errors.New("command not found")
}

// printCommandParsingError prints a flag parsing error with brief usage.
func printCommandParsingError(program string, cmd *Command, err error) {
	if !strings.Contains(err.Error(), "help requested") {
		fmt.Fprintln(os.Stderr, err.Error())
	}
	tmpl(os.Stderr, cmdErrorHelpTemplate, program, "", cmd)
	cmd.FlagSet.SetOutput(os.Stderr)
	cmd.FlagSet.PrintDefaults()
}

// printCommandHelp prints '<program> command -h' output: usage line plus
// flag defaults.
func printCommandHelp(program string, cmd *Command) {
	tmpl(os.Stdout, cmdErrorHelpTemplate, program, "", cmd)
	cmd.FlagSet.SetOutput(os.Stderr)
	cmd.FlagSet.PrintDefaults()
}
