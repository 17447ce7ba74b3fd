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

package format

import (
	"errors"
	"fmt"

	"github.com/amifs/amifs/pkg/adf"
	"github.com/amifs/amifs/pkg/cli"
)

var FormatCmd = &cli.Command{
	Run:       formatCmdRun,
	UsageLine: "format [-name label] [-ffs] [-hd] <image.adf>",
	Short:     "create a blank ADF disk image",
	Long: `
Format writes a freshly formatted ADF disk image: boot signature, an empty
root directory at block 880 and a bitmap page at block 881 covering the
whole disk. The default geometry is a DD floppy (1760 blocks, 880 KiB);
-hd selects HD (3520 blocks). An existing file is overwritten.
    `,
}

func formatCmdRun(cmd *cli.Command, args []string) error {
	var (
		nameFlag string
		ffsFlag  bool
		hdFlag   bool
	)
	cmd.FlagSet.StringVar(&nameFlag, "name", "Empty", "Volume name (up to 30 bytes)")
	cmd.FlagSet.BoolVar(&ffsFlag, "ffs", false, "Use the FFS DOS flavor instead of OFS")
	cmd.FlagSet.BoolVar(&hdFlag, "hd", false, "HD geometry (3520 blocks) instead of DD")

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}
	if cmd.FlagSet.NArg() != 1 {
		return cli.CmdParseError(errors.New("expected a single <image.adf>"))
	}
	path := cmd.FlagSet.Arg(0)

	flavor := adf.FlavorOFS
	if ffsFlag {
		flavor = adf.FlavorFFS
	}
	blocks := uint32(adf.DDBlocks)
	if hdFlag {
		blocks = adf.HDBlocks
	}

	if err := adf.Format(path, nameFlag, flavor, blocks); err != nil {
		return err
	}
	fmt.Printf("Formatted %s: volume %q, %s, %d blocks\n", path, nameFlag, flavor, blocks)
	return nil
}
