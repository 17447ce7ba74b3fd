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
// cmd/go/internal/base.

// Package cli implements the top-level command surface: a registry of
// subcommands, '<program> help' handling and templated usage output.
package cli

import (
	"flag"
	"strings"
)

// A Command is one '<program> <name> ...' subcommand. A Command with a nil
// Run is a documentation pseudo-command, reachable only through
// '<program> help <topic>'.
type Command struct {
	// Run executes the command with the arguments following the command
	// name; flag parsing failures should be returned through
	// CmdParseError so usage output composes with the rest of the
	// package.
	Run func(cmd *Command, args []string) error

	// UsageLine is the one-line usage message; its first word is taken to
	// be the command name.
	UsageLine string

	// Short is the line shown in the '<program> help' listing.
	Short string

	// Long is the text shown by '<program> help <command>'.
	Long string

	// FlagSet holds the command's flags; its own output is discarded so
	// this package controls all usage printing.
	FlagSet flag.FlagSet
}

type Commands []*Command

// Name returns the command's name: the first word of the usage line.
func (c *Command) Name() string {
	name := c.UsageLine
	if i := strings.Index(name, " "); i >= 0 {
		name = name[:i]
	}
	return name
}

// Runnable reports whether the command can be executed, as opposed to a
// documentation topic.
func (c *Command) Runnable() bool {
	return c.Run != nil
}

type parseError struct {
	error
}

// CmdParseError marks err as a flag-parsing failure; Process prints usage
// for these instead of propagating them.
func CmdParseError(err error) error {
	return parseError{err}
}
