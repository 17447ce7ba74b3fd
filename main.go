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

package main

import (
	"os"

	"github.com/amifs/amifs/doc"
	"github.com/amifs/amifs/pkg/cli"

	"github.com/amifs/amifs/cmd/format"
	"github.com/amifs/amifs/cmd/info"
	"github.com/amifs/amifs/cmd/mount"
)

func main() {
	// Top-level commands, i.e. 'amifs <command> ...'.
	var commands cli.Commands
	commands = append(commands, mount.MountCmd)
	commands = append(commands, info.InfoCmd)
	commands = append(commands, format.FormatCmd)

	// Documentation pseudo-command for the on-disk format.
	commands = append(commands, doc.OnDiskCmd)

	abstract := "Amifs mounts AmigaDOS ADF disk images as read/write filesystems."
	if err := cli.Process(abstract, commands); err != nil {
		os.Exit(1)
	}
}
