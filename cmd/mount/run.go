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

package mount

import (
	"errors"
	"fmt"
	"io"
	"os"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/amifs/amifs/pkg/adf"
	"github.com/amifs/amifs/pkg/cli"
	"github.com/amifs/amifs/pkg/log"
)

var MountCmd = &cli.Command{
	Run:       mountCmdRun,
	UsageLine: "mount [-read-only] [-unmount] [logger flags] <image.adf> <mount-point>",
	Short:     "mount an ADF disk image at the specified mount point",
	Long: `
Mount exposes the AmigaDOS volume inside an ADF disk image as a regular
directory tree. The image is opened read-write when file permissions allow
and read-only otherwise; all mutations are written back into the image with
AmigaDOS on-disk layout. File data is always written in OFS data blocks,
also on FFS-flavored images. Use -unmount <mount-point> to detach a
previous mount.
    `,
}

func mountCmdRun(cmd *cli.Command, args []string) error {
	var (
		readOnlyFlag bool
		unmountFlag  bool

		logDirFlag         string
		suppressStderrFlag bool
		logModeFlag        logMode
		logFilterFlag      logFilter
	)

	cmd.FlagSet.BoolVar(&readOnlyFlag, "read-only", false,
		"Mount read-only even when the image is writable")
	cmd.FlagSet.BoolVar(&unmountFlag, "unmount", false,
		"Unmount filesystem at specified directory")
	cmd.FlagSet.StringVar(&logDirFlag, "log-dir", "",
		"Write log files to the specified directory")
	cmd.FlagSet.BoolVar(&suppressStderrFlag, "suppress-stderr", false,
		"Suppress standard error logging")
	cmd.FlagSet.Var(&logModeFlag, "log-mode",
		"Log mode for logs emitted globally (can be overridden using -log-filter)")
	cmd.FlagSet.Var(&logFilterFlag, "log-filter",
		"Comma-separated list of fname.go:mode settings for file-filtered logging")

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}

	if logModeFlag.set {
		log.SetGlobalLogMode(logModeFlag.m)
	}
	for _, flm := range logFilterFlag {
		log.SetFileLogMode(flm.fname, flm.fmode)
	}

	writer := io.Discard
	if logDirFlag != "" {
		writer = log.LogRotationWriter(logDirFlag, 50<<20 /* 50 MiB */)
	}
	if !suppressStderrFlag {
		writer = log.MultiWriter(writer, os.Stderr)
	}
	writer = log.SynchronizedWriter(writer)
	logf := log.Ldate | log.Ltime | log.Lmicroseconds | log.Llongfile | log.LUTC | log.Lmode
	logger := log.New(log.Writer(writer), log.Flags(logf), log.SkipBasePath())

	if unmountFlag {
		if cmd.FlagSet.NArg() != 1 {
			return cli.CmdParseError(errors.New("-unmount takes a single mount-point"))
		}
		return unmount(logger, cmd.FlagSet.Arg(0))
	}

	if cmd.FlagSet.NArg() != 2 {
		return cli.CmdParseError(errors.New("expected <image.adf> and <mount-point>"))
	}
	imagePath, mountPoint := cmd.FlagSet.Arg(0), cmd.FlagSet.Arg(1)

	img, err := adf.Open(imagePath)
	if err != nil {
		logger.Errorf("failed to open ADF image %s: %v", imagePath, err)
		return err
	}
	defer img.Close()

	readOnly := img.ReadOnly() || readOnlyFlag
	access := "READ-WRITE"
	if readOnly {
		access = "READ-ONLY"
	}
	fmt.Printf("Mounted ADF volume: %s (%s) [%s]\n", img.VolumeName(), img.Flavor(), access)

	conn, err := mountConn(logger, mountPoint, img.VolumeName(), readOnly)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer conn.Close()

	if err := fs.Serve(conn, newFilesystem(logger, img, readOnly)); err != nil {
		return err
	}
	return img.Flush()
}

func unmount(logger *log.Logger, mountPoint string) error {
	if err := fuse.Unmount(mountPoint); err != nil {
		return err
	}
	logger.Infof("unmounted point: %s", mountPoint)
	return nil
}

func mountConn(logger *log.Logger, mountPoint, volume string, readOnly bool) (*fuse.Conn, error) {
	options := []fuse.MountOption{
		fuse.FSName("amifs:" + volume),
		fuse.Subtype("adf"),
	}
	if readOnly {
		options = append(options, fuse.ReadOnly())
	}

	conn, err := fuse.Mount(mountPoint, options...)
	if err != nil {
		return nil, err
	}

	logger.Infof("mounted point: %s", mountPoint)
	return conn, nil
}
