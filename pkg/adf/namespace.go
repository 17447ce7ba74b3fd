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
	"time"
)

// CreateFile creates an empty file at path.
func (img *Image) CreateFile(path string) error {
	return img.createHeader(path, secTypeFile)
}

// CreateDirectory creates an empty directory at path.
func (img *Image) CreateDirectory(path string) error {
	return img.createHeader(path, secTypeDir)
}

// createHeader allocates and initializes a header block and links it into
// the parent's bucket. A header that fails partway through creation is
// freed before returning.
func (img *Image) createHeader(path string, secType int32) error {
	if img.readOnly {
		return ErrReadOnly
	}
	parentPath, name := splitPath(path)
	if name == "" {
		return fmt.Errorf("%s: %w", path, ErrInvalid)
	}
	if len(name) > nameMax {
		return fmt.Errorf("%q: %w", name, ErrNameTooLong)
	}
	if _, err := img.Lookup(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	parent, err := img.directoryBlock(parentPath)
	if err != nil {
		return err
	}

	bn, err := img.allocateBlock()
	if err != nil {
		return err
	}
	hdr, ok := img.writableBlock(bn)
	if !ok {
		img.freeBlock(bn)
		return ErrIO
	}

	setWord(hdr, offType, typeHeader)
	setWord(hdr, offHeaderKey, bn)
	setWord(hdr, offParent, parent)
	setWord(hdr, offSecType, uint32(secType))
	writeBCPL(hdr[offName:], name)
	days, mins, ticks := unixToAmiga(time.Now())
	setWord(hdr, offDays, days)
	setWord(hdr, offMins, mins)
	setWord(hdr, offTicks, ticks)
	rechecksum(hdr, hdrChecksumSlot)

	if err := img.addToDirectory(parent, bn, name); err != nil {
		img.freeBlock(bn)
		return err
	}
	img.InvalidateCache()
	return nil
}

// DeleteFile unlinks the file at path and frees its data chain and header.
func (img *Image) DeleteFile(path string) error {
	if img.readOnly {
		return ErrReadOnly
	}
	e, err := img.Lookup(path)
	if err != nil {
		return err
	}
	if e.Dir {
		return fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	parentPath, _ := splitPath(path)
	parent, err := img.directoryBlock(parentPath)
	if err != nil {
		return err
	}
	if err := img.removeFromDirectory(parent, e.Block, e.Name); err != nil {
		return err
	}

	if hdr, ok := img.block(e.Block); ok {
		img.freeDataChain(word(hdr, offFirstData))
	}
	img.freeBlock(e.Block)
	img.InvalidateCache()
	return nil
}

// DeleteDirectory unlinks the empty directory at path and frees its header.
// The root cannot be deleted.
func (img *Image) DeleteDirectory(path string) error {
	if img.readOnly {
		return ErrReadOnly
	}
	if path == "/" || path == "" {
		return fmt.Errorf("cannot delete the root: %w", ErrInvalid)
	}
	e, err := img.Lookup(path)
	if err != nil {
		return err
	}
	if !e.Dir {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	entries, err := img.List(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s: %w", path, ErrNotEmpty)
	}

	parentPath, _ := splitPath(path)
	parent, err := img.directoryBlock(parentPath)
	if err != nil {
		return err
	}
	if err := img.removeFromDirectory(parent, e.Block, e.Name); err != nil {
		return err
	}
	img.freeBlock(e.Block)
	img.InvalidateCache()
	return nil
}

// ActualFileSize reads the header's size field directly, bypassing the
// listing cache so attribute queries after a write see the current size.
func (img *Image) ActualFileSize(bn uint32) (uint32, error) {
	hdr, ok := img.block(bn)
	if !ok {
		return 0, ErrIO
	}
	return word(hdr, offFileSize), nil
}
