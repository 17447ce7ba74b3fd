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
	"strings"
	"time"
)

// hashName computes the AmigaDOS directory bucket for a name: seeded with
// the length, folded to ASCII upper case, multiplied by 13 per byte, reduced
// mod 72. International folding variants are not implemented.
func hashName(name string) uint32 {
	h := uint32(len(name))
	for i := 0; i < len(name); i++ {
		h = h*13 + uint32(upperByte(name[i]))
	}
	return h % hashTableSize
}

func upperByte(c byte) byte {
	if 'a' <= c && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// The root block and non-root directory headers keep their 72 hash buckets
// in the same byte range but diverge elsewhere (mtime fields in particular).
// bucketView is the shared accessor; the concrete view is picked at the
// single dispatch site in viewOf. Layouts are decoded by byte offset, never
// by casting one onto the other.
type bucketView interface {
	bucket(i int) uint32
	setBucket(i int, bn uint32)
	// adoptChain replaces bucket i with hdr's hash_chain word, copied raw
	// in its on-disk byte order.
	adoptChain(i int, hdr []byte)
	touch(t time.Time)
	commit()
}

type tableView struct {
	blk []byte
}

func (v *tableView) bucket(i int) uint32 {
	return word(v.blk, offHashTable+4*i)
}

func (v *tableView) setBucket(i int, bn uint32) {
	setWord(v.blk, offHashTable+4*i, bn)
}

func (v *tableView) adoptChain(i int, hdr []byte) {
	copy(v.blk[offHashTable+4*i:][:4], hdr[offHashChain:][:4])
}

func (v *tableView) commit() {
	rechecksum(v.blk, hdrChecksumSlot)
}

type rootView struct {
	tableView
}

func (v *rootView) touch(t time.Time) {
	days, mins, ticks := unixToAmiga(t)
	setWord(v.blk, offRootDays, days)
	setWord(v.blk, offRootMins, mins)
	setWord(v.blk, offRootTicks, ticks)
}

type headerView struct {
	tableView
}

func (v *headerView) touch(t time.Time) {
	days, mins, ticks := unixToAmiga(t)
	setWord(v.blk, offDays, days)
	setWord(v.blk, offMins, mins)
	setWord(v.blk, offTicks, ticks)
}

// viewOf selects the concrete bucket view for a directory block.
func (img *Image) viewOf(bn uint32) (bucketView, error) {
	blk, ok := img.writableBlock(bn)
	if !ok {
		if img.readOnly {
			return nil, ErrReadOnly
		}
		return nil, ErrIO
	}
	if bn == img.root {
		return &rootView{tableView{blk}}, nil
	}
	return &headerView{tableView{blk}}, nil
}

// splitPath splits an absolute slash-separated path into its parent path
// and final component.
func splitPath(path string) (parent, name string) {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "/", strings.TrimPrefix(path, "/")
	}
	return path[:i], path[i+1:]
}

// Lookup resolves an absolute path to its entry. The root resolves to a
// synthetic entry carrying the volume's own mtime.
func (img *Image) Lookup(path string) (Entry, error) {
	if path == "/" || path == "" {
		root, ok := img.block(img.root)
		if !ok {
			return Entry{}, ErrIO
		}
		mtime := amigaToUnix(word(root, offRootDays), word(root, offRootMins), word(root, offRootTicks))
		return Entry{
			Name:  img.volumeName,
			Dir:   true,
			Mtime: time.Unix(mtime, 0),
			Block: img.root,
		}, nil
	}

	parent, name := splitPath(path)
	entries, err := img.List(parent)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%s: %w", path, ErrNoEntry)
}

// directoryBlock resolves a path that must name a directory.
func (img *Image) directoryBlock(path string) (uint32, error) {
	if path == "/" || path == "" {
		return img.root, nil
	}
	e, err := img.Lookup(path)
	if err != nil {
		return 0, err
	}
	if !e.Dir {
		return 0, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return e.Block, nil
}

// List materializes the entries of the directory at path, consulting the
// listing cache first. Chain entries with an empty name are skipped rather
// than terminating the bucket walk.
func (img *Image) List(path string) ([]Entry, error) {
	if cached, ok := img.cache[path]; ok {
		return cached, nil
	}

	dirBlock, err := img.directoryBlock(path)
	if err != nil {
		return nil, err
	}
	blk, ok := img.block(dirBlock)
	if !ok {
		return nil, ErrIO
	}

	entries := make([]Entry, 0)
	for i := 0; i < hashTableSize; i++ {
		for bn := word(blk, offHashTable+4*i); bn != 0; {
			hdr, ok := img.block(bn)
			if !ok {
				break
			}
			if name := readBCPL(hdr[offName:]); name != "" {
				entries = append(entries, entryFromHeader(bn, name, hdr))
			}
			bn = word(hdr, offHashChain)
		}
	}

	img.cache[path] = entries
	return entries, nil
}

func entryFromHeader(bn uint32, name string, hdr []byte) Entry {
	dir := int32(word(hdr, offSecType)) == secTypeDir
	var size uint32
	if !dir {
		size = word(hdr, offFileSize)
	}
	mtime := amigaToUnix(word(hdr, offDays), word(hdr, offMins), word(hdr, offTicks))
	return Entry{
		Name:  name,
		Dir:   dir,
		Size:  size,
		Mtime: time.Unix(mtime, 0),
		Block: bn,
	}
}

// addToDirectory links child into parent's bucket for name: head insertion,
// with the previous head threaded through the child's hash_chain. The
// parent's mtime and checksum, and the child's checksum, are updated.
func (img *Image) addToDirectory(parent, child uint32, name string) error {
	view, err := img.viewOf(parent)
	if err != nil {
		return err
	}
	hdr, ok := img.writableBlock(child)
	if !ok {
		return ErrIO
	}

	h := int(hashName(name))
	setWord(hdr, offHashChain, view.bucket(h))
	rechecksum(hdr, hdrChecksumSlot)
	view.setBucket(h, child)
	view.touch(time.Now())
	view.commit()
	return nil
}

// removeFromDirectory unlinks child from parent's bucket for name. The
// bucket head case copies the child's hash_chain word raw; otherwise the
// predecessor is found along the chain and spliced the same way. Sibling
// order in the bucket is preserved.
func (img *Image) removeFromDirectory(parent, child uint32, name string) error {
	view, err := img.viewOf(parent)
	if err != nil {
		return err
	}
	hdr, ok := img.block(child)
	if !ok {
		return ErrIO
	}

	h := int(hashName(name))
	if view.bucket(h) == child {
		view.adoptChain(h, hdr)
	} else {
		for bn := view.bucket(h); bn != 0; {
			blk, ok := img.writableBlock(bn)
			if !ok {
				return ErrIO
			}
			next := word(blk, offHashChain)
			if next == child {
				copy(blk[offHashChain:][:4], hdr[offHashChain:][:4])
				rechecksum(blk, hdrChecksumSlot)
				break
			}
			bn = next
		}
	}
	view.touch(time.Now())
	view.commit()
	return nil
}

// InvalidateCache drops every cached listing. Namespace mutations call this
// internally; the mount boundary calls it after size-changing writes.
func (img *Image) InvalidateCache() {
	img.cache = make(map[string][]Entry)
}
