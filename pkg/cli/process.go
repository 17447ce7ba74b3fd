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

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Process dispatches os.Args over the given commands. Invoked without
// arguments (or as '<program> help') it prints the full usage built from
// the abstract and the command listing. CLI mistakes print to stderr and
// exit with status 2; command execution errors propagate to the caller.
func Process(abstract string, commands Commands) error {
	program, args := os.Args[0], os.Args[1:]

	// Flag output is discarded: this package prints all usage itself.
	for _, cmd := range commands {
		cmd.FlagSet.SetOutput(io.Discard)
	}

	if len(args) == 0 {
		printFullUsage(program, abstract, commands)
		return nil
	}

	command := args[0]
	if (command == "help" || command == "-h") && len(args) == 1 {
		printFullUsage(program, abstract, commands)
		return nil
	}
	if command == "help" && len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s help [command]\n\nToo many arguments given.\n", program)
		os.Exit(2)
	}
	if command == "help" && len(args) == 2 {
		topic := args[1]
		if err := printCommandUsage(program, topic, commands); err != nil {
			fmt.Fprintf(os.Stderr, "Unknown help topic '%s'\n\nRun '%s help' for available topics.\n",
				topic, program)
			os.Exit(2)
		}
		return nil
	}

	for _, cmd := range commands {
		if cmd.Name() != command || !cmd.Runnable() {
			continue
		}

		err := cmd.Run(cmd, args[1:])
		var perr parseError
		if !errors.As(err, &perr) {
			return err
		}

		// 'command -h' surfaces as a parse error from the flag package but
		// is a valid request for help. Checked after cmd.Run since flags
		// are commonly defined there.
		if strings.Contains(err.Error(), "help requested") {
			printCommandHelp(program, cmd)
			return nil
		}

		printCommandParsingError(program, cmd, err)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "Unknown command '%s'\n\nRun '%s help' for available commands.\n",
		command, program)
	os.Exit(2)
	return nil
}
