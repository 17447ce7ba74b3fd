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

package info

import (
	"errors"
	"fmt"

	"github.com/amifs/amifs/pkg/adf"
	"github.com/amifs/amifs/pkg/cli"
)

var InfoCmd = &cli.Command{
	Run:       infoCmdRun,
	UsageLine: "info <image.adf>",
	Short:     "print volume information for an ADF disk image",
	Long: `
Info opens an ADF disk image, parses its boot and root blocks, reconciles
the free-block bitmap against the directory tree, and prints the volume
name, DOS flavor, geometry and block usage.
    `,
}

func infoCmdRun(cmd *cli.Command, args []string) error {
	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}
	if cmd.FlagSet.NArg() != 1 {
		return cli.CmdParseError(errors.New("expected a single <image.adf>"))
	}

	img, err := adf.Open(cmd.FlagSet.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()

	access := "read-write"
	if img.ReadOnly() {
		access = "read-only"
	}
	total := img.TotalBlocks()
	free := img.FreeBlocks()

	fmt.Printf("Volume: %s\n", img.VolumeName())
	fmt.Printf("Flavor: %s\n", img.Flavor())
	fmt.Printf("Access: %s\n", access)
	fmt.Printf("Blocks: %d total, %d free, %d used\n", total, free, total-free)
	fmt.Printf("Root:   block %d\n", img.RootBlock())
	return nil
}
