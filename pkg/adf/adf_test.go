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
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestImage formats a fresh DD image named "Empty" in a temp dir and
// opens it.
func newTestImage(t *testing.T) *Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.adf")
	require.NoError(t, Format(path, "Empty", FlavorOFS, DDBlocks))
	img, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img
}

// checkBlockSum asserts that a block's 128 words, checksum included, sum
// to zero mod 2^32.
func checkBlockSum(t *testing.T, img *Image, bn uint32) {
	t.Helper()
	blk, ok := img.block(bn)
	require.True(t, ok, "block %d out of range", bn)
	var sum uint32
	for i := 0; i < BlockSize/4; i++ {
		sum += word(blk, 4*i)
	}
	assert.Zero(t, sum, "block %d does not checksum to zero", bn)
}

// dataChain walks a file's data blocks from its header.
func dataChain(t *testing.T, img *Image, hdrBlock uint32) []uint32 {
	t.Helper()
	hdr, ok := img.block(hdrBlock)
	require.True(t, ok)
	var chain []uint32
	for bn := word(hdr, offFirstData); bn != 0; {
		chain = append(chain, bn)
		db, ok := img.block(bn)
		require.True(t, ok)
		bn = word(db, offDataNext)
	}
	return chain
}

func TestOpenRejectsBadBootSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.adf")
	require.NoError(t, Format(path, "Empty", FlavorOFS, DDBlocks))

	img, err := Open(path)
	require.NoError(t, err)
	boot, _ := img.writableBlock(0)
	copy(boot, "NOT")
	require.NoError(t, img.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOpenRejectsUnknownFlavor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.adf")
	require.NoError(t, Format(path, "Empty", FlavorOFS, DDBlocks))

	img, err := Open(path)
	require.NoError(t, err)
	boot, _ := img.writableBlock(0)
	boot[3] = 7
	require.NoError(t, img.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOpenAcceptsZeroRootSecType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lenient.adf")
	require.NoError(t, Format(path, "Lenient", FlavorOFS, DDBlocks))

	img, err := Open(path)
	require.NoError(t, err)
	root, _ := img.writableBlock(img.root)
	setWord(root, offSecType, 0)
	rechecksum(root, hdrChecksumSlot)
	require.NoError(t, img.Close())

	img, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, "Lenient", img.VolumeName())
	img.Close()
}

func TestFormatFreshVolume(t *testing.T) {
	img := newTestImage(t)

	assert.Equal(t, "Empty", img.VolumeName())
	assert.Equal(t, FlavorOFS, img.Flavor())
	assert.False(t, img.Flavor().Fast())
	assert.Equal(t, uint32(canonicalRoot), img.RootBlock())
	assert.Equal(t, uint32(DDBlocks), img.TotalBlocks())
	// Everything free except root and its bitmap page.
	assert.Equal(t, uint32(DDBlocks-bootBlocks-2), img.FreeBlocks())

	checkBlockSum(t, img, img.root)
	checkBlockSum(t, img, img.root+1)

	entries, err := img.List("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// End-to-end walk of the documented scenarios on a fresh DD image.
func TestScenarios(t *testing.T) {
	img := newTestImage(t)
	baseline := img.freeSnapshot()

	// mkdir /A; mkdir /A/B; create /A/B/hello
	require.NoError(t, img.CreateDirectory("/A"))
	require.NoError(t, img.CreateDirectory("/A/B"))
	require.NoError(t, img.CreateFile("/A/B/hello"))

	entries, err := img.List("/A")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].Name)
	assert.True(t, entries[0].Dir)

	entries, err = img.List("/A/B")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Name)
	assert.False(t, entries[0].Dir)
	assert.Zero(t, entries[0].Size)

	// write + read back
	hello, err := img.Lookup("/A/B/hello")
	require.NoError(t, err)
	n, err := img.WriteFile(hello.Block, []byte("Hello, Amiga!"), 0)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	data, err := img.ReadFile(hello.Block, 0, 13)
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, Amiga!"), data)

	size, err := img.ActualFileSize(hello.Block)
	require.NoError(t, err)
	assert.Equal(t, uint32(13), size)

	chain := dataChain(t, img, hello.Block)
	require.Len(t, chain, 1)
	db, _ := img.block(chain[0])
	assert.Equal(t, uint32(1), word(db, offDataSeq))
	assert.Equal(t, uint32(13), word(db, offDataSize))
	assert.Equal(t, hello.Block, word(db, offDataHeader))

	// /big spans three data blocks: 488 + 488 + 24.
	require.NoError(t, img.CreateFile("/big"))
	big, err := img.Lookup("/big")
	require.NoError(t, err)
	n, err = img.WriteFile(big.Block, bytes.Repeat([]byte{'x'}, 1000), 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	chain = dataChain(t, img, big.Block)
	require.Len(t, chain, 3)
	for i, want := range []uint32{488, 488, 24} {
		db, _ := img.block(chain[i])
		assert.Equal(t, uint32(i+1), word(db, offDataSeq))
		assert.Equal(t, want, word(db, offDataSize))
		checkBlockSum(t, img, chain[i])
	}
	size, err = img.ActualFileSize(big.Block)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), size)

	// Sparse write at 2000 bridges four zero blocks before the tail.
	require.NoError(t, img.CreateFile("/sparse"))
	sparse, err := img.Lookup("/sparse")
	require.NoError(t, err)
	n, err = img.WriteFile(sparse.Block, []byte("tail"), 2000)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	size, err = img.ActualFileSize(sparse.Block)
	require.NoError(t, err)
	assert.Equal(t, uint32(2004), size)

	chain = dataChain(t, img, sparse.Block)
	require.Len(t, chain, 5)
	head, err := img.ReadFile(sparse.Block, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, head)
	tail, err := img.ReadFile(sparse.Block, 2000, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("tail"), tail)

	// truncate /big to 500: one block freed, tail holds 12 bytes.
	require.NoError(t, img.Truncate("/big", 500))
	chain = dataChain(t, img, big.Block)
	require.Len(t, chain, 2)
	db, _ = img.block(chain[1])
	assert.Equal(t, uint32(12), word(db, offDataSize))
	assert.Zero(t, word(db, offDataNext))
	size, err = img.ActualFileSize(big.Block)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), size)

	// rmdir refuses non-empty directories; tearing down in order restores
	// the baseline free set.
	assert.ErrorIs(t, img.DeleteDirectory("/A"), ErrNotEmpty)
	require.NoError(t, img.DeleteFile("/A/B/hello"))
	require.NoError(t, img.DeleteDirectory("/A/B"))
	require.NoError(t, img.DeleteDirectory("/A"))
	require.NoError(t, img.DeleteFile("/big"))
	require.NoError(t, img.DeleteFile("/sparse"))
	assert.Equal(t, baseline, img.freeSnapshot())
}

// After any sequence of operations, the blocks marked used in the bitmap
// are exactly the root, its bitmap pages, and everything reachable from the
// root through hash tables, hash chains and data chains.
func TestBitmapMatchesReachability(t *testing.T) {
	img := newTestImage(t)

	require.NoError(t, img.CreateDirectory("/dir"))
	require.NoError(t, img.CreateFile("/dir/file"))
	e, err := img.Lookup("/dir/file")
	require.NoError(t, err)
	_, err = img.WriteFile(e.Block, bytes.Repeat([]byte{1}, 3000), 0)
	require.NoError(t, err)
	require.NoError(t, img.CreateFile("/other"))
	require.NoError(t, img.DeleteFile("/other"))
	require.NoError(t, img.Truncate("/dir/file", 600))

	reachable := map[uint32]bool{}
	var walk func(bn uint32)
	walk = func(bn uint32) {
		if bn == 0 || reachable[bn] {
			return
		}
		reachable[bn] = true
		blk, ok := img.block(bn)
		require.True(t, ok)
		if bn == img.root || int32(word(blk, offSecType)) == secTypeDir {
			for i := 0; i < hashTableSize; i++ {
				walk(word(blk, offHashTable+4*i))
			}
		}
		if int32(word(blk, offSecType)) == secTypeFile {
			for dn := word(blk, offFirstData); dn != 0; {
				reachable[dn] = true
				db, ok := img.block(dn)
				require.True(t, ok)
				dn = word(db, offDataNext)
			}
		}
		walk(word(blk, offHashChain))
	}
	walk(img.root)

	root, _ := img.block(img.root)
	bitmapPages := map[uint32]bool{}
	for i := 0; i < bitmapPageCount; i++ {
		if page := word(root, offBitmapPages+4*i); page != 0 {
			bitmapPages[page] = true
		}
	}

	for bn := uint32(bootBlocks); bn < img.TotalBlocks(); bn++ {
		page, ok := img.bitmapPage(bn)
		require.True(t, ok)
		rel := bn % blocksPerBitmapPage
		bitFree := word(page, 4+4*int(rel/32))&(1<<(rel%32)) != 0
		wantUsed := reachable[bn] || bitmapPages[bn]
		assert.Equal(t, wantUsed, !bitFree, "block %d", bn)
	}
}
