// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"fmt"

	"github.com/segfaultlabs/corefs/internal/dir"
)

// Create makes a new regular file at path with the given initial size.
func (fsys *FileSystem) Create(p *Process, pth string, initialSize uint32) error {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	parent, name, err := fsys.resolver.Find(pth, fsys.root, p.cwd)
	if err != nil {
		return err
	}
	defer fsys.dirs.Close(parent)

	if existing, lookErr := fsys.dirs.Lookup(parent, name); lookErr == nil {
		fsys.inodes.Close(existing)
		return fmt.Errorf("%w: %q", dir.ErrNameExists, name)
	}

	sector, ok := fsys.freemap.Allocate(1)
	if !ok {
		return ErrNoSpace
	}
	if err := fsys.inodes.Create(sector, initialSize, false); err != nil {
		fsys.freemap.Release(sector, 1)
		return err
	}
	if err := fsys.dirs.Add(parent, name, sector); err != nil {
		fsys.destroyOrphan(sector)
		return err
	}
	return nil
}

// destroyOrphan frees a just-allocated, just-created inode that failed to
// be linked into its parent directory.
func (fsys *FileSystem) destroyOrphan(sector uint32) {
	in, err := fsys.inodes.Open(sector)
	if err != nil {
		return
	}
	fsys.inodes.Remove(in)
	fsys.inodes.Close(in)
}

// Remove unlinks path. The target inode's storage is reclaimed once every
// open reference to it (if any) has been closed.
func (fsys *FileSystem) Remove(p *Process, pth string) error {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	parent, name, err := fsys.resolver.Find(pth, fsys.root, p.cwd)
	if err != nil {
		return err
	}
	defer fsys.dirs.Close(parent)

	return fsys.dirs.Remove(parent, name)
}

// Open resolves path and installs a new descriptor in p's file table,
// returning its number.
func (fsys *FileSystem) Open(p *Process, pth string) (int, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	parent, name, err := fsys.resolver.Find(pth, fsys.root, p.cwd)
	if err != nil {
		return -1, err
	}
	defer fsys.dirs.Close(parent)

	child, err := fsys.dirs.Lookup(parent, name)
	if err != nil {
		return -1, err
	}

	if child.IsDir() {
		h, err := fsys.dirs.Adopt(child)
		if err != nil {
			return -1, err
		}
		return p.alloc(&descriptor{dir: h}), nil
	}
	return p.alloc(&descriptor{file: &fileState{inode: child}}), nil
}

// Filesize returns fd's current length in bytes.
func (fsys *FileSystem) Filesize(p *Process, fd int) (uint32, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return 0, err
	}
	if d.isDir() {
		return 0, ErrIsDir
	}
	return d.file.inode.Length(), nil
}

// Read reads into buf at fd's current offset, advancing it by the number
// of bytes actually read.
func (fsys *FileSystem) Read(p *Process, fd int, buf []byte) (int, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return 0, err
	}
	if d.isDir() {
		return 0, ErrIsDir
	}

	n, err := fsys.inodes.ReadAt(d.file.inode, buf, d.file.offset)
	d.file.offset += uint32(n)
	return n, err
}

// Write writes buf at fd's current offset, advancing it by the number of
// bytes actually written, growing the file first if necessary.
func (fsys *FileSystem) Write(p *Process, fd int, buf []byte) (int, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return 0, err
	}
	if d.isDir() {
		return 0, ErrIsDir
	}

	n, err := fsys.inodes.WriteAt(d.file.inode, buf, d.file.offset)
	d.file.offset += uint32(n)
	return n, err
}

// Seek repositions fd's offset.
func (fsys *FileSystem) Seek(p *Process, fd int, pos uint32) error {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return err
	}
	if d.isDir() {
		return ErrIsDir
	}
	d.file.offset = pos
	return nil
}

// Tell returns fd's current offset.
func (fsys *FileSystem) Tell(p *Process, fd int) (uint32, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return 0, err
	}
	if d.isDir() {
		return 0, ErrIsDir
	}
	return d.file.offset, nil
}

// Close releases fd. If it was the last open reference to an inode marked
// for removal, the inode's storage is reclaimed now.
func (fsys *FileSystem) Close(p *Process, fd int) error {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return err
	}
	delete(p.fds, fd)

	if d.isDir() {
		return fsys.dirs.Close(d.dir)
	}
	return fsys.inodes.Close(d.file.inode)
}

// Chdir changes p's working directory. It is intentionally not serialised
// by Mu, since it mutates only per-process state.
func (fsys *FileSystem) Chdir(p *Process, pth string) error {
	parent, name, err := fsys.resolver.Find(pth, fsys.root, p.cwd)
	if err != nil {
		return err
	}

	child, err := fsys.dirs.Lookup(parent, name)
	fsys.dirs.Close(parent)
	if err != nil {
		return err
	}

	newCwd, err := fsys.dirs.Adopt(child)
	if err != nil {
		return err
	}

	old := p.cwd
	p.cwd = newCwd
	return fsys.dirs.Close(old)
}

// Mkdir creates a new directory at path, wiring up "." and ".." and
// recording its parent.
func (fsys *FileSystem) Mkdir(p *Process, pth string) error {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	parent, name, err := fsys.resolver.Find(pth, fsys.root, p.cwd)
	if err != nil {
		return err
	}
	defer fsys.dirs.Close(parent)

	if existing, lookErr := fsys.dirs.Lookup(parent, name); lookErr == nil {
		fsys.inodes.Close(existing)
		return fmt.Errorf("%w: %q", dir.ErrNameExists, name)
	}

	sector, ok := fsys.freemap.Allocate(1)
	if !ok {
		return ErrNoSpace
	}
	if err := fsys.dirs.Create(sector, 2); err != nil {
		fsys.freemap.Release(sector, 1)
		return err
	}

	child, err := fsys.dirs.Open(sector)
	if err != nil {
		fsys.destroyOrphan(sector)
		return err
	}
	if err := fsys.dirs.Add(child, ".", sector); err != nil {
		fsys.inodes.Remove(child.Inode)
		fsys.dirs.Close(child)
		return err
	}
	if err := fsys.dirs.Add(child, "..", parent.Sector()); err != nil {
		fsys.inodes.Remove(child.Inode)
		fsys.dirs.Close(child)
		return err
	}
	if err := fsys.inodes.SetParent(child.Inode, parent.Sector()); err != nil {
		fsys.inodes.Remove(child.Inode)
		fsys.dirs.Close(child)
		return err
	}
	if err := fsys.dirs.Close(child); err != nil {
		return err
	}

	return fsys.dirs.Add(parent, name, sector)
}

// Readdir returns the next entry's name from fd's cursor, skipping "." and
// "..". ok is false once the directory is exhausted.
func (fsys *FileSystem) Readdir(p *Process, fd int) (name string, ok bool, err error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return "", false, err
	}
	if !d.isDir() {
		return "", false, ErrNotDir
	}
	return fsys.dirs.Readdir(d.dir)
}

// IsDir reports whether fd refers to a directory.
func (fsys *FileSystem) IsDir(p *Process, fd int) (bool, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return false, err
	}
	return d.isDir(), nil
}

// Inumber returns fd's backing inode's sector number.
func (fsys *FileSystem) Inumber(p *Process, fd int) (uint32, error) {
	fsys.Mu.Lock()
	defer fsys.Mu.Unlock()

	d, err := p.lookup(fd)
	if err != nil {
		return 0, err
	}
	return d.inumber(), nil
}
