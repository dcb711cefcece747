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
	"github.com/segfaultlabs/corefs/internal/dir"
	"github.com/segfaultlabs/corefs/internal/inode"
)

// firstFD is the first descriptor number handed out; 0 and 1 are reserved
// for the console and are never backed by an inode.
const firstFD = 2

// fileState is the per-descriptor state of an open regular file: the
// shared in-memory inode plus this descriptor's own byte offset (several
// descriptors may point at the same inode with independent offsets).
type fileState struct {
	inode  *inode.Inode
	offset uint32
}

// descriptor is the tagged variant of an open file-table entry: either a
// regular file or a directory, discriminated by which pointer is non-nil
// (never both). This stands in for the source's unsafe reinterpret-cast
// between the two at the descriptor boundary.
type descriptor struct {
	file *fileState
	dir  *dir.Handle
}

func (d *descriptor) isDir() bool { return d.dir != nil }

func (d *descriptor) inumber() uint32 {
	if d.dir != nil {
		return d.dir.Inode.Inumber()
	}
	return d.file.inode.Inumber()
}

// Process is one client's per-process state: its current working
// directory and open file table. The zero value is not usable; construct
// with FileSystem.NewProcess.
type Process struct {
	cwd    *dir.Handle
	fds    map[int]*descriptor
	nextFD int
}

func newProcess(cwd *dir.Handle) *Process {
	return &Process{
		cwd:    cwd,
		fds:    make(map[int]*descriptor),
		nextFD: firstFD,
	}
}

func (p *Process) alloc(d *descriptor) int {
	fd := p.nextFD
	p.nextFD++
	p.fds[fd] = d
	return fd
}

func (p *Process) lookup(fd int) (*descriptor, error) {
	if fd < firstFD {
		return nil, ErrReservedFD
	}
	d, ok := p.fds[fd]
	if !ok {
		return nil, ErrBadFD
	}
	return d, nil
}
