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

import "github.com/google/btree"

// The root block lists up to 25 bitmap pages. Each page carries a checksum
// word followed by 127 map words; bit i of word j of page p tracks block
// p*4064 + j*32 + i, and a set bit means free. Bitmap extension blocks are
// not supported: allocation past the 25 in-root pages fails with ErrNoSpace.
const (
	bitmapPageCount     = 25
	bitmapWordsPerPage  = 127
	blocksPerBitmapPage = bitmapWordsPerPage * 32
)

type blockItem uint32

func (b blockItem) Less(than btree.Item) bool {
	return b < than.(blockItem)
}

// initAllocator seeds the free set with every block in [2, total), subtracts
// the root and the bitmap pages, applies the persisted bitmap, and finally
// sweeps the directory tree so that blocks reachable from the root are used
// even when the bitmap-valid flag is stale.
func (img *Image) initAllocator() {
	img.free = btree.New(32)
	total := img.TotalBlocks()
	for bn := uint32(bootBlocks); bn < total; bn++ {
		img.free.ReplaceOrInsert(blockItem(bn))
	}
	img.free.Delete(blockItem(img.root))

	root, ok := img.block(img.root)
	if !ok {
		return
	}
	for i := 0; i < bitmapPageCount; i++ {
		page := word(root, offBitmapPages+4*i)
		if page == 0 {
			break
		}
		img.free.Delete(blockItem(page))
		blk, ok := img.block(page)
		if !ok {
			continue
		}
		base := uint32(i) * blocksPerBitmapPage
		for j := 0; j < bitmapWordsPerPage; j++ {
			w := word(blk, 4+4*j)
			for bit := 0; bit < 32; bit++ {
				bn := base + uint32(j)*32 + uint32(bit)
				if bn >= total {
					break
				}
				if w&(1<<uint(bit)) == 0 {
					img.free.Delete(blockItem(bn))
				}
			}
		}
	}

	img.markReachable(img.root, make(map[uint32]bool))
}

// markReachable walks headers from bn through hash tables, hash chains and
// data chains, removing every reached block from the free set.
func (img *Image) markReachable(bn uint32, seen map[uint32]bool) {
	if bn == 0 || seen[bn] {
		return
	}
	seen[bn] = true
	img.free.Delete(blockItem(bn))

	blk, ok := img.block(bn)
	if !ok {
		return
	}
	secType := int32(word(blk, offSecType))

	if bn == img.root || secType == secTypeDir {
		for i := 0; i < hashTableSize; i++ {
			if child := word(blk, offHashTable+4*i); child != 0 {
				img.markReachable(child, seen)
			}
		}
	}

	if secType == secTypeFile {
		for dn := word(blk, offFirstData); dn != 0 && !seen[dn]; {
			seen[dn] = true
			img.free.Delete(blockItem(dn))
			db, ok := img.block(dn)
			if !ok {
				break
			}
			dn = word(db, offDataNext)
		}
	}

	if next := word(blk, offHashChain); next != 0 {
		img.markReachable(next, seen)
	}
}

// bitmapPage returns a writable view of the page covering bn, or absent when
// no in-root pointer covers it.
func (img *Image) bitmapPage(bn uint32) ([]byte, bool) {
	idx := bn / blocksPerBitmapPage
	if idx >= bitmapPageCount {
		return nil, false
	}
	root, ok := img.block(img.root)
	if !ok {
		return nil, false
	}
	page := word(root, offBitmapPages+4*int(idx))
	if page == 0 {
		return nil, false
	}
	return img.writableBlock(page)
}

// setBitmapBit flips bn's persisted bit (set = free) and rechecksums the
// owning page. Reports whether a page covered the block.
func (img *Image) setBitmapBit(bn uint32, free bool) bool {
	page, ok := img.bitmapPage(bn)
	if !ok {
		return false
	}
	rel := bn % blocksPerBitmapPage
	off := 4 + 4*int(rel/32)
	mask := uint32(1) << (rel % 32)
	w := word(page, off)
	if free {
		w |= mask
	} else {
		w &^= mask
	}
	setWord(page, off, w)
	rechecksum(page, bmChecksumSlot)
	return true
}

// allocateBlock takes the lowest-numbered free block, zero-fills it and
// clears its bitmap bit. The covering bitmap page is verified before any
// state changes; an uncovered target fails with ErrNoSpace.
func (img *Image) allocateBlock() (uint32, error) {
	if img.readOnly {
		return 0, ErrReadOnly
	}
	min := img.free.Min()
	if min == nil {
		return 0, ErrNoSpace
	}
	bn := uint32(min.(blockItem))
	if _, ok := img.bitmapPage(bn); !ok {
		return 0, ErrNoSpace
	}
	blk, ok := img.writableBlock(bn)
	if !ok {
		return 0, ErrIO
	}
	img.free.Delete(blockItem(bn))
	for i := range blk {
		blk[i] = 0
	}
	img.setBitmapBit(bn, false)
	return bn, nil
}

// freeBlock returns bn to the free set and sets its bitmap bit. The boot
// area and the root block are never freed.
func (img *Image) freeBlock(bn uint32) {
	if bn < bootBlocks || bn == img.root {
		return
	}
	img.free.ReplaceOrInsert(blockItem(bn))
	img.setBitmapBit(bn, true)
}

// FreeBlocks is the number of allocatable blocks currently free.
func (img *Image) FreeBlocks() uint32 {
	return uint32(img.free.Len())
}

// freeSnapshot lists the free set in ascending order.
func (img *Image) freeSnapshot() []uint32 {
	out := make([]uint32, 0, img.free.Len())
	img.free.Ascend(func(it btree.Item) bool {
		out = append(out, uint32(it.(blockItem)))
		return true
	})
	return out
}
