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

package adf

import (
	"fmt"
	"os"

	"github.com/google/btree"
	"golang.org/x/sys/unix"
)

// Image is an open ADF disk image. The whole file is mapped shared; block
// accessors hand out views into the mapping and mutations land in place.
// Operations are not safe for concurrent use; the mount boundary serializes
// them.
type Image struct {
	path     string
	file     *os.File
	data     []byte
	size     int64
	readOnly bool

	flavor     Flavor
	root       uint32
	volumeName string

	free  *btree.BTree
	cache map[string][]Entry
}

// Open maps the image at path. It tries read-write first and falls back to
// a read-only mapping, then parses the boot and root blocks and reconciles
// the free-block set. Parsing failures are fatal here; after a successful
// Open the engine never reports an invalid image.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	readOnly := false
	if err != nil {
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		readOnly = true
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if size < bootBlocks*BlockSize {
		f.Close()
		return nil, fmt.Errorf("%s: image smaller than the boot area: %w", path, ErrInvalid)
	}

	prot := unix.PROT_READ
	if !readOnly {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	img := &Image{
		path:     path,
		file:     f,
		data:     data,
		size:     size,
		readOnly: readOnly,
		root:     canonicalRoot,
		cache:    make(map[string][]Entry),
	}
	if err := img.parse(); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}
	img.initAllocator()
	return img, nil
}

// parse validates the boot signature and the root block, and records the
// flavor and volume name. The boot block's root hint is ignored; the
// canonical root is block 880.
func (img *Image) parse() error {
	boot, ok := img.block(0)
	if !ok {
		return fmt.Errorf("%s: %w", img.path, ErrIO)
	}
	if boot[0] != 'D' || boot[1] != 'O' || boot[2] != 'S' {
		return fmt.Errorf("%s: bad boot signature: %w", img.path, ErrInvalid)
	}
	switch Flavor(boot[3]) {
	case FlavorOFS, FlavorFFS, FlavorFFSIntl, FlavorFFSDirCache:
		img.flavor = Flavor(boot[3])
	default:
		return fmt.Errorf("%s: unknown DOS flavor %d: %w", img.path, boot[3], ErrInvalid)
	}

	root, ok := img.block(img.root)
	if !ok {
		return fmt.Errorf("%s: no root block at %d: %w", img.path, img.root, ErrInvalid)
	}
	if word(root, offType) != typeHeader {
		return fmt.Errorf("%s: root block type %d: %w", img.path, word(root, offType), ErrInvalid)
	}
	// Some images carry 0 instead of the standard 1; accept both on read.
	if st := int32(word(root, offSecType)); st != secTypeRoot && st != 0 {
		return fmt.Errorf("%s: root secondary type %d: %w", img.path, st, ErrInvalid)
	}
	img.volumeName = readBCPL(root[offRootName:])
	return nil
}

// Close syncs the mapping if writable, unmaps it and closes the file.
func (img *Image) Close() error {
	var err error
	if img.data != nil {
		if !img.readOnly {
			err = unix.Msync(img.data, unix.MS_SYNC)
		}
		if e := unix.Munmap(img.data); err == nil {
			err = e
		}
		img.data = nil
	}
	if img.file != nil {
		if e := img.file.Close(); err == nil {
			err = e
		}
		img.file = nil
	}
	return err
}

// Flush forces mapped mutations out to the image file. Idempotent; a no-op
// on read-only images.
func (img *Image) Flush() error {
	if img.readOnly || img.data == nil {
		return nil
	}
	return unix.Msync(img.data, unix.MS_SYNC)
}

// block returns a read view of the given block, or absent when the block
// lies past the end of the image.
func (img *Image) block(n uint32) ([]byte, bool) {
	off := int64(n) * BlockSize
	if off+BlockSize > img.size {
		return nil, false
	}
	return img.data[off : off+BlockSize], true
}

// writableBlock is block for mutation; additionally absent on read-only
// images.
func (img *Image) writableBlock(n uint32) ([]byte, bool) {
	if img.readOnly {
		return nil, false
	}
	return img.block(n)
}

func (img *Image) VolumeName() string { return img.volumeName }
func (img *Image) Flavor() Flavor     { return img.flavor }
func (img *Image) ReadOnly() bool     { return img.readOnly }
func (img *Image) RootBlock() uint32  { return img.root }

// TotalBlocks is the number of 512-byte blocks the image holds.
func (img *Image) TotalBlocks() uint32 {
	return uint32(img.size / BlockSize)
}
