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

// File contents live in a singly linked chain of OFS data blocks, 488
// payload bytes each, with 1-based sequence numbers. The chain may be
// shorter than the declared file size: a chain that ends early, and any
// payload past a block's data_size, reads back as zeros (sparse holes).

// ReadFile reads up to size bytes at off from the file whose header is bn.
// Out-of-range offsets are not an error; the result is simply shorter,
// possibly empty. There is no zero-padding past the declared file size.
func (img *Image) ReadFile(bn uint32, off int64, size int) ([]byte, error) {
	hdr, ok := img.block(bn)
	if !ok {
		return nil, ErrIO
	}
	fileSize := int64(word(hdr, offFileSize))
	if off < 0 || off >= fileSize || size <= 0 {
		return nil, nil
	}
	if int64(size) > fileSize-off {
		size = int(fileSize - off)
	}

	cur := word(hdr, offFirstData)
	for i := off / dataCapacity; i > 0 && cur != 0; i-- {
		db, ok := img.block(cur)
		if !ok {
			return nil, ErrIO
		}
		cur = word(db, offDataNext)
	}

	out := make([]byte, 0, size)
	p := int(off % dataCapacity)
	for len(out) < size {
		n := dataCapacity - p
		if rem := size - len(out); n > rem {
			n = rem
		}
		seg := make([]byte, n)
		if cur != 0 {
			db, ok := img.block(cur)
			if !ok {
				return nil, ErrIO
			}
			ds := int(word(db, offDataSize))
			if ds > dataCapacity {
				ds = dataCapacity
			}
			// Zero-fill [data_size, 488) where the segment intersects it.
			if ds > p {
				end := p + n
				if end > ds {
					end = ds
				}
				copy(seg, db[offDataPayload+p:offDataPayload+end])
			}
			cur = word(db, offDataNext)
		}
		out = append(out, seg...)
		p = 0
	}
	return out, nil
}

// initDataBlock stamps OFS framing onto a freshly allocated, zeroed block.
func (img *Image) initDataBlock(bn, owner, seq uint32) {
	blk, _ := img.writableBlock(bn)
	setWord(blk, offDataType, typeData)
	setWord(blk, offDataHeader, owner)
	setWord(blk, offDataSeq, seq)
	rechecksum(blk, hdrChecksumSlot)
}

// WriteFile writes buf at off into the file whose header is bn, extending
// the data chain as needed and bridging sparse gaps with zero blocks. It
// returns the number of bytes written; running out of free blocks mid-write
// yields a short count rather than an error, with the header's size
// reflecting only the bytes that landed.
func (img *Image) WriteFile(bn uint32, buf []byte, off int64) (int, error) {
	hdr, ok := img.writableBlock(bn)
	if !ok {
		if img.readOnly {
			return 0, ErrReadOnly
		}
		return 0, ErrIO
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d: %w", off, ErrInvalid)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	oldSize := word(hdr, offFileSize)
	newSize := oldSize
	if end := uint32(off) + uint32(len(buf)); end > newSize {
		newSize = end
	}
	if newSize != oldSize {
		setWord(hdr, offFileSize, newSize)
		rechecksum(hdr, hdrChecksumSlot)
	}

	first := word(hdr, offFirstData)
	if first == 0 && len(buf) > 0 {
		nb, err := img.allocateBlock()
		if err != nil {
			setWord(hdr, offFileSize, oldSize)
			rechecksum(hdr, hdrChecksumSlot)
			return 0, err
		}
		img.initDataBlock(nb, bn, 1)
		setWord(hdr, offFirstData, nb)
		rechecksum(hdr, hdrChecksumSlot)
		first = nb
	}

	// Walk counting 488 bytes of offset per link regardless of each link's
	// data_size, so holes inside blocks do not shift later positions.
	var (
		cur     = first
		prev    uint32
		pos     int64
		written int
		short   bool
	)
	for written < len(buf) {
		if cur == 0 {
			nb, err := img.allocateBlock()
			if err != nil {
				short = true
				break
			}
			img.initDataBlock(nb, bn, uint32(pos/dataCapacity)+1)
			pb, ok := img.writableBlock(prev)
			if !ok {
				return written, ErrIO
			}
			setWord(pb, offDataNext, nb)
			rechecksum(pb, hdrChecksumSlot)
			cur = nb
		}

		db, ok := img.writableBlock(cur)
		if !ok {
			return written, ErrIO
		}
		if pos+dataCapacity <= off {
			pos += dataCapacity
			prev, cur = cur, word(db, offDataNext)
			continue
		}

		blockOff := 0
		if pos < off {
			blockOff = int(off - pos)
		}
		n := len(buf) - written
		if m := dataCapacity - blockOff; n > m {
			n = m
		}
		copy(db[offDataPayload+blockOff:], buf[written:written+n])
		if ds := uint32(blockOff + n); ds > word(db, offDataSize) {
			setWord(db, offDataSize, ds)
		}
		rechecksum(db, hdrChecksumSlot)

		written += n
		pos += dataCapacity
		prev, cur = cur, word(db, offDataNext)
	}

	if short {
		// Partial write: the size must cover only what actually landed.
		final := oldSize
		if end := uint32(off) + uint32(written); end > final {
			final = end
		}
		setWord(hdr, offFileSize, final)
	}
	days, mins, ticks := unixToAmiga(time.Now())
	setWord(hdr, offDays, days)
	setWord(hdr, offMins, mins)
	setWord(hdr, offTicks, ticks)
	rechecksum(hdr, hdrChecksumSlot)

	if written == 0 && len(buf) > 0 && short {
		return 0, ErrNoSpace
	}
	return written, nil
}

// Truncate sets the file at path to newSize bytes. Shrinking frees every
// data block past the retained tail; growing leaves a hole for later writes
// to bridge. Equal size is a no-op.
func (img *Image) Truncate(path string, newSize uint32) error {
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
	hdr, ok := img.writableBlock(e.Block)
	if !ok {
		return ErrIO
	}

	curSize := word(hdr, offFileSize)
	if curSize == newSize {
		return nil
	}

	if newSize < curSize {
		if newSize == 0 {
			img.freeDataChain(word(hdr, offFirstData))
			setWord(hdr, offFirstData, 0)
		} else {
			need := (newSize + dataCapacity - 1) / dataCapacity
			tail := word(hdr, offFirstData)
			for i := uint32(1); i < need && tail != 0; i++ {
				db, ok := img.block(tail)
				if !ok {
					break
				}
				tail = word(db, offDataNext)
			}
			// A chain shorter than need means the cut lands in a hole;
			// there is nothing past it to trim.
			if tail != 0 {
				tb, ok := img.writableBlock(tail)
				if !ok {
					return ErrIO
				}
				img.freeDataChain(word(tb, offDataNext))
				setWord(tb, offDataNext, 0)
				setWord(tb, offDataSize, (newSize-1)%dataCapacity+1)
				rechecksum(tb, hdrChecksumSlot)
			}
		}
	}

	setWord(hdr, offFileSize, newSize)
	days, mins, ticks := unixToAmiga(time.Now())
	setWord(hdr, offDays, days)
	setWord(hdr, offMins, mins)
	setWord(hdr, offTicks, ticks)
	rechecksum(hdr, hdrChecksumSlot)
	img.InvalidateCache()
	return nil
}

// freeDataChain frees every data block from bn to the end of its chain.
func (img *Image) freeDataChain(bn uint32) {
	for bn != 0 {
		var next uint32
		if db, ok := img.block(bn); ok {
			next = word(db, offDataNext)
		}
		img.freeBlock(bn)
		bn = next
	}
}
