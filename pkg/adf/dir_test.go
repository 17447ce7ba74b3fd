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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collidingNames returns at least want distinct names hashing to the same
// bucket.
func collidingNames(t *testing.T, want int) []string {
	t.Helper()
	byBucket := map[uint32][]string{}
	for i := 0; i < 1000; i++ {
		name := fmt.Sprintf("file%d", i)
		h := hashName(name)
		byBucket[h] = append(byBucket[h], name)
		if len(byBucket[h]) >= want {
			return byBucket[h]
		}
	}
	t.Fatal("no colliding names found")
	return nil
}

// bucketChain walks the hash chain from dir's bucket h.
func bucketChain(t *testing.T, img *Image, dir uint32, h int) []uint32 {
	t.Helper()
	blk, ok := img.block(dir)
	require.True(t, ok)
	var chain []uint32
	for bn := word(blk, offHashTable+4*h); bn != 0; {
		chain = append(chain, bn)
		hdr, ok := img.block(bn)
		require.True(t, ok)
		bn = word(hdr, offHashChain)
	}
	return chain
}

func TestSplitPath(t *testing.T) {
	for _, tc := range []struct{ path, parent, name string }{
		{"/hello", "/", "hello"},
		{"/A/B", "/A", "B"},
		{"/A/B/hello", "/A/B", "hello"},
	} {
		parent, name := splitPath(tc.path)
		assert.Equal(t, tc.parent, parent, tc.path)
		assert.Equal(t, tc.name, name, tc.path)
	}
}

func TestLookupRoot(t *testing.T) {
	img := newTestImage(t)

	e, err := img.Lookup("/")
	require.NoError(t, err)
	assert.True(t, e.Dir)
	assert.Equal(t, uint32(canonicalRoot), e.Block)
	assert.Equal(t, "Empty", e.Name)
}

func TestLookupMissing(t *testing.T) {
	img := newTestImage(t)

	_, err := img.Lookup("/nope")
	assert.ErrorIs(t, err, ErrNoEntry)
	_, err = img.Lookup("/no/such/path")
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestListNonDirectoryFails(t *testing.T) {
	img := newTestImage(t)
	require.NoError(t, img.CreateFile("/f"))

	_, err := img.List("/f")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestDirectoryWellFormed(t *testing.T) {
	// Every child lands in the bucket its name hashes to, with the parent
	// pointer set; chains reach each child exactly once.
	img := newTestImage(t)
	names := append(collidingNames(t, 3), "other", "Work.info")
	for _, name := range names {
		require.NoError(t, img.CreateFile("/"+name))
	}

	seen := map[uint32]int{}
	for h := 0; h < hashTableSize; h++ {
		for _, bn := range bucketChain(t, img, img.root, h) {
			hdr, ok := img.block(bn)
			require.True(t, ok)
			assert.Equal(t, uint32(h), hashName(readBCPL(hdr[offName:])))
			assert.Equal(t, uint32(canonicalRoot), word(hdr, offParent))
			seen[bn]++
		}
	}
	assert.Len(t, seen, len(names))
	for bn, count := range seen {
		assert.Equal(t, 1, count, "block %d reached more than once", bn)
	}
}

func TestListCollidingEntries(t *testing.T) {
	img := newTestImage(t)
	names := collidingNames(t, 3)
	for _, name := range names {
		require.NoError(t, img.CreateFile("/"+name))
	}

	entries, err := img.List("/")
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name)
	}
	sort.Strings(got)
	want := append([]string(nil), names...)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestRemoveMiddleOfChainPreservesOrder(t *testing.T) {
	img := newTestImage(t)
	names := collidingNames(t, 3)
	for _, name := range names {
		require.NoError(t, img.CreateFile("/" + name))
	}
	h := int(hashName(names[0]))

	before := bucketChain(t, img, img.root, h)
	require.Len(t, before, 3)

	// Head insertion is LIFO: the middle of the chain is the second name.
	require.NoError(t, img.DeleteFile("/"+names[1]))
	after := bucketChain(t, img, img.root, h)
	assert.Equal(t, []uint32{before[0], before[2]}, after)
	checkBlockSum(t, img, before[0])
	checkBlockSum(t, img, img.root)
}

func TestRemoveChainHead(t *testing.T) {
	img := newTestImage(t)
	names := collidingNames(t, 2)
	for _, name := range names {
		require.NoError(t, img.CreateFile("/" + name))
	}
	h := int(hashName(names[0]))

	before := bucketChain(t, img, img.root, h)
	require.Len(t, before, 2)

	// The head is the most recently created entry.
	require.NoError(t, img.DeleteFile("/"+names[len(names)-1]))
	after := bucketChain(t, img, img.root, h)
	assert.Equal(t, before[1:], after)
	checkBlockSum(t, img, img.root)
}

func TestCreateDeleteRestoresBucketState(t *testing.T) {
	img := newTestImage(t)
	require.NoError(t, img.CreateFile("/anchor"))

	h := int(hashName("probe"))
	bucketBefore := bucketChain(t, img, img.root, h)
	freeBefore := img.freeSnapshot()

	require.NoError(t, img.CreateFile("/probe"))
	require.NoError(t, img.DeleteFile("/probe"))

	assert.Equal(t, bucketBefore, bucketChain(t, img, img.root, h))
	assert.Equal(t, freeBefore, img.freeSnapshot())
}

func TestListingCacheInvalidation(t *testing.T) {
	img := newTestImage(t)

	entries, err := img.List("/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, img.CreateFile("/new"))
	entries, err = img.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Name)

	require.NoError(t, img.DeleteFile("/new"))
	entries, err = img.List("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNestedDirectories(t *testing.T) {
	img := newTestImage(t)
	require.NoError(t, img.CreateDirectory("/a"))
	require.NoError(t, img.CreateDirectory("/a/b"))
	require.NoError(t, img.CreateDirectory("/a/b/c"))
	require.NoError(t, img.CreateFile("/a/b/c/leaf"))

	e, err := img.Lookup("/a/b/c/leaf")
	require.NoError(t, err)
	assert.False(t, e.Dir)

	parent, err := img.Lookup("/a/b/c")
	require.NoError(t, err)
	hdr, ok := img.block(e.Block)
	require.True(t, ok)
	assert.Equal(t, parent.Block, word(hdr, offParent))
}
