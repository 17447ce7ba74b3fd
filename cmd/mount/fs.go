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
	"context"
	"errors"
	"os"
	"path"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/amifs/amifs/pkg/adf"
	"github.com/amifs/amifs/pkg/log"
)

// filesystem adapts the adf engine onto the FUSE node/handle surface. The
// engine is single-threaded; one mutex serializes every call, so no engine
// operation ever runs concurrently with another. readOnly is the effective
// access mode: a read-only image, or a writable one mounted with -read-only.
type filesystem struct {
	logger   *log.Logger
	img      *adf.Image
	readOnly bool
	mu       sync.Mutex
}

func newFilesystem(logger *log.Logger, img *adf.Image, readOnly bool) *filesystem {
	return &filesystem{logger: logger, img: img, readOnly: readOnly}
}

func (f *filesystem) Root() (fs.Node, error) {
	return &node{fs: f, path: "/", block: f.img.RootBlock(), dir: true}, nil
}

// node is a file or directory, addressed by absolute path with its header
// block carried as the handle. The block number doubles as the inode.
type node struct {
	fs    *filesystem
	path  string
	block uint32
	dir   bool
}

// errno maps engine error kinds onto FUSE errnos.
func errno(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, adf.ErrNoEntry):
		return fuse.ENOENT
	case errors.Is(err, adf.ErrExists):
		return fuse.Errno(syscall.EEXIST)
	case errors.Is(err, adf.ErrIsDirectory):
		return fuse.Errno(syscall.EISDIR)
	case errors.Is(err, adf.ErrNotDirectory):
		return fuse.Errno(syscall.ENOTDIR)
	case errors.Is(err, adf.ErrNotEmpty):
		return fuse.Errno(syscall.ENOTEMPTY)
	case errors.Is(err, adf.ErrNameTooLong):
		return fuse.Errno(syscall.ENAMETOOLONG)
	case errors.Is(err, adf.ErrNoSpace):
		return fuse.Errno(syscall.ENOSPC)
	case errors.Is(err, adf.ErrReadOnly):
		return fuse.Errno(syscall.EROFS)
	case errors.Is(err, adf.ErrInvalid):
		return fuse.Errno(syscall.EINVAL)
	default:
		return fuse.Errno(syscall.EIO)
	}
}

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	e, err := n.fs.img.Lookup(n.path)
	if err != nil {
		return errno(err)
	}

	readOnly := n.fs.readOnly
	a.Inode = uint64(e.Block)
	a.Uid = uint32(os.Getuid())
	a.Gid = uint32(os.Getgid())
	a.Atime, a.Mtime, a.Ctime = e.Mtime, e.Mtime, e.Mtime
	a.BlockSize = adf.BlockSize

	if e.Dir {
		a.Mode = os.ModeDir | 0o755
		if readOnly {
			a.Mode = os.ModeDir | 0o555
		}
		a.Nlink = 2
		return nil
	}

	// The header is read directly rather than through the listing cache so
	// attribute queries right after a write see the new size.
	size, err := n.fs.img.ActualFileSize(e.Block)
	if err != nil {
		return errno(err)
	}
	a.Mode = 0o644
	if readOnly {
		a.Mode = 0o444
	}
	a.Nlink = 1
	a.Size = uint64(size)
	a.Blocks = (uint64(size) + 511) / 512
	return nil
}

func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	child := path.Join(n.path, name)
	e, err := n.fs.img.Lookup(child)
	if err != nil {
		return nil, errno(err)
	}
	return &node{fs: n.fs, path: child, block: e.Block, dir: e.Dir}, nil
}

func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	entries, err := n.fs.img.List(n.path)
	if err != nil {
		return nil, errno(err)
	}

	dirents := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fuse.DT_File
		if e.Dir {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{Inode: uint64(e.Block), Name: e.Name, Type: typ})
	}
	return dirents, nil
}

func (n *node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	child := path.Join(n.path, req.Name)
	if err := n.fs.img.CreateFile(child); err != nil {
		return nil, nil, errno(err)
	}
	e, err := n.fs.img.Lookup(child)
	if err != nil {
		return nil, nil, errno(err)
	}
	file := &node{fs: n.fs, path: child, block: e.Block}
	return file, file, nil
}

func (n *node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	child := path.Join(n.path, req.Name)
	if err := n.fs.img.CreateDirectory(child); err != nil {
		return nil, errno(err)
	}
	e, err := n.fs.img.Lookup(child)
	if err != nil {
		return nil, errno(err)
	}
	return &node{fs: n.fs, path: child, block: e.Block, dir: true}, nil
}

func (n *node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	child := path.Join(n.path, req.Name)
	if req.Dir {
		return errno(n.fs.img.DeleteDirectory(child))
	}
	return errno(n.fs.img.DeleteFile(child))
}

func (n *node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	n.fs.mu.Lock()
	if req.Valid.Size() {
		if err := n.fs.img.Truncate(n.path, uint32(req.Size)); err != nil {
			n.fs.mu.Unlock()
			return errno(err)
		}
	}
	n.fs.mu.Unlock()

	// Ownership, permissions and times are not persisted; report back the
	// current attributes.
	return n.Attr(ctx, &resp.Attr)
}

func (n *node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if n.dir {
		return n, nil
	}
	if !req.Flags.IsReadOnly() && n.fs.readOnly {
		return nil, fuse.Errno(syscall.EROFS)
	}
	return n, nil
}

func (n *node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	data, err := n.fs.img.ReadFile(n.block, req.Offset, req.Size)
	if err != nil {
		return errno(err)
	}
	resp.Data = data
	return nil
}

func (n *node) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	count, err := n.fs.img.WriteFile(n.block, req.Data, req.Offset)
	if err != nil {
		n.fs.logger.Errorf("write %s at %d: %v", n.path, req.Offset, err)
		return errno(err)
	}
	if count > 0 {
		// Size-changing writes invalidate cached listings.
		n.fs.img.InvalidateCache()
	}
	resp.Size = count
	return nil
}

func (n *node) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	return errno(n.fs.img.Flush())
}

func (n *node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	return errno(n.fs.img.Flush())
}
