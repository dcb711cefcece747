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

package dir

import (
	"fmt"

	"github.com/segfaultlabs/corefs/internal/inode"
)

// Layer is the directory layer, built entirely on top of the inode layer:
// a directory is just an inode whose data is a dense array of entries.
type Layer struct {
	inodes *inode.Layer
}

// New constructs a Layer over the given inode layer.
func New(inodes *inode.Layer) *Layer {
	return &Layer{inodes: inodes}
}

// Create provisions the inode for a new directory capable of holding
// entryCnt entries. The caller (mkdir) must insert "." and ".." afterward
// and call SetParent.
func (l *Layer) Create(sector uint32, entryCnt uint32) error {
	return l.inodes.Create(sector, entryCnt*entrySize, true)
}

// Open returns a fresh Handle for the directory at sector.
func (l *Layer) Open(sector uint32) (*Handle, error) {
	in, err := l.inodes.Open(sector)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		l.inodes.Close(in)
		return nil, ErrNotDirectory
	}
	return newHandle(in), nil
}

// Adopt wraps an already-opened inode (e.g. the result of a Lookup call) in
// a Handle, verifying it is a directory. On failure it closes in.
func (l *Layer) Adopt(in *inode.Inode) (*Handle, error) {
	if !in.IsDir() {
		l.inodes.Close(in)
		return nil, ErrNotDirectory
	}
	return newHandle(in), nil
}

// Reopen shares an already-open directory's inode under a fresh Handle
// (with its own readdir cursor), for the path resolver's "reopen the
// caller's cwd so the walk owns its handle" requirement.
func (l *Layer) Reopen(h *Handle) *Handle {
	return newHandle(l.inodes.Reopen(h.Inode))
}

// Close releases h's inode reference.
func (l *Layer) Close(h *Handle) error {
	return l.inodes.Close(h.Inode)
}

func (l *Layer) readEntryAt(h *Handle, index uint32) (entry, error) {
	buf := make([]byte, entrySize)
	n, err := l.inodes.ReadAt(h.Inode, buf, index*entrySize)
	if err != nil {
		return entry{}, err
	}
	if n < entrySize {
		return entry{}, nil
	}
	return decodeEntry(buf), nil
}

func (l *Layer) writeEntryAt(h *Handle, index uint32, e entry) error {
	buf := encodeEntry(e)
	_, err := l.inodes.WriteAt(h.Inode, buf, index*entrySize)
	return err
}

func (l *Layer) entryCount(h *Handle) uint32 {
	return h.Inode.Length() / entrySize
}

// Lookup scans h for name and, on success, returns a freshly-opened inode
// for it; the caller is responsible for closing it.
func (l *Layer) Lookup(h *Handle, name string) (*inode.Inode, error) {
	count := l.entryCount(h)
	for i := uint32(0); i < count; i++ {
		e, err := l.readEntryAt(h, i)
		if err != nil {
			return nil, err
		}
		if e.inUse && e.name == name {
			return l.inodes.Open(e.inodeSector)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Add inserts a new entry mapping name to childSector, reusing the first
// free slot found by a linear scan or appending one. It fails if name is
// invalid or already present in h.
func (l *Layer) Add(h *Handle, name string, childSector uint32) error {
	if err := validateName(name); err != nil {
		return err
	}

	count := l.entryCount(h)
	freeIndex := count
	haveFree := false
	for i := uint32(0); i < count; i++ {
		e, err := l.readEntryAt(h, i)
		if err != nil {
			return err
		}
		if e.inUse && e.name == name {
			return fmt.Errorf("%w: %q", ErrNameExists, name)
		}
		if !e.inUse && !haveFree {
			freeIndex = i
			haveFree = true
		}
	}

	return l.writeEntryAt(h, freeIndex, entry{inodeSector: childSector, name: name, inUse: true})
}

// Remove locates name, marks its slot free on disk, and marks its inode
// removed. Destruction is deferred until every open reference to the child
// inode has been closed.
func (l *Layer) Remove(h *Handle, name string) error {
	count := l.entryCount(h)
	for i := uint32(0); i < count; i++ {
		e, err := l.readEntryAt(h, i)
		if err != nil {
			return err
		}
		if !e.inUse || e.name != name {
			continue
		}

		child, err := l.inodes.Open(e.inodeSector)
		if err != nil {
			return err
		}

		if child.IsDir() {
			if child.OpenCount() > 1 {
				l.inodes.Close(child)
				return ErrDirBusy
			}

			childHandle := newHandle(child)
			empty, err := l.IsEmpty(childHandle)
			if err != nil {
				l.inodes.Close(child)
				return err
			}
			if !empty {
				l.inodes.Close(child)
				return ErrDirNotEmpty
			}
		}

		if err := l.writeEntryAt(h, i, entry{}); err != nil {
			l.inodes.Close(child)
			return err
		}

		l.inodes.Remove(child)
		return l.inodes.Close(child)
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// IsEmpty reports whether h has no in-use entry other than "." and "..".
func (l *Layer) IsEmpty(h *Handle) (bool, error) {
	count := l.entryCount(h)
	for i := uint32(0); i < count; i++ {
		e, err := l.readEntryAt(h, i)
		if err != nil {
			return false, err
		}
		if e.inUse && e.name != "." && e.name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// Readdir returns the next entry's name starting from h's cursor, skipping
// unused slots, advancing the cursor as it goes. ok is false once the
// directory is exhausted. The cursor starts past "." and ".." so they are
// skipped naturally.
func (l *Layer) Readdir(h *Handle) (name string, ok bool, err error) {
	count := l.entryCount(h)
	for {
		index := h.pos / entrySize
		if index >= count {
			return "", false, nil
		}
		h.pos += entrySize

		e, err := l.readEntryAt(h, index)
		if err != nil {
			return "", false, err
		}
		if e.inUse {
			return e.name, true, nil
		}
	}
}
