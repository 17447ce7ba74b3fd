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

package doc

import "github.com/amifs/amifs/pkg/cli"

var OnDiskCmd = &cli.Command{
	UsageLine: "ondisk",
	Short:     "AmigaDOS on-disk layout reference",
	Long: `
An ADF image is a flat dump of an AmigaDOS disk: 512-byte blocks, all
integers big-endian. A DD floppy holds 1760 blocks, an HD floppy 3520.

Blocks 0-1 form the boot area; the first four bytes are 'D','O','S' plus a
flavor byte (0 OFS, 1 FFS, 3 FFS-international, 5 FFS-directory-cache). The
boot block's root pointer is a hint only; the canonical root is block 880.

The root block (type 2, secondary type 1) names the volume with a BCPL
string (one length byte, up to 30 payload bytes) and holds a 72-entry hash
table of directory buckets, plus pointers to up to 25 bitmap pages. Each
bitmap page carries a checksum word and 127 map words; a set bit marks the
corresponding block free. File and directory headers share the root's table
layout, are linked into their parent's bucket through a hash_chain word at
offset 496, and carry their name at 432 and parent at 500.

File contents live in a chain of OFS data blocks: type 8, owning header,
1-based sequence number, bytes used, next pointer and checksum, then 488
payload bytes. Every header and bitmap block checksums to zero: the stored
checksum is the negated 32-bit sum of the other 127 words.

Writes always emit OFS data-block framing, including on FFS-flavored
images; the flavor is detected and reported but does not change the write
path. Bitmap extension blocks past the 25 in-root pages are not supported,
which covers all standard floppy geometries.
`,
}
