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

package inode

import (
	"github.com/jacobsa/syncutil"
)

// Inode is the in-memory inode: a cached copy of the on-disk record plus
// open/removed bookkeeping. There is at most one Inode per
// sector at a time (enforced by Layer's registry); callers share it by
// calling Layer.Open/Reopen and must call Layer.Close exactly once per open.
type Inode struct {
	layer  *Layer
	sector uint32

	// Mu guards everything below. INVARIANT: 0 <= denyWriteCount <= openCount.
	Mu syncutil.InvariantMutex

	openCount      uint64
	removed        bool
	denyWriteCount uint64
	disk           onDisk
}

func newInode(l *Layer, sector uint32, d onDisk) *Inode {
	in := &Inode{
		layer:     l,
		sector:    sector,
		openCount: 1,
		disk:      d,
	}
	in.Mu = syncutil.NewInvariantMutex(in.checkInvariants)
	return in
}

func (in *Inode) checkInvariants() {
	if in.denyWriteCount > in.openCount {
		panic("inode: deny_write_count exceeds open_count")
	}
}

// Inumber returns the sector of the inode's on-disk record, which doubles
// as its unique identifier.
func (in *Inode) Inumber() uint32 { return in.sector }

// Length returns the cached file length in bytes.
func (in *Inode) Length() uint32 { return in.disk.length }

// IsDir reports whether this inode backs a directory.
func (in *Inode) IsDir() bool { return in.disk.isDir != 0 }

// Parent returns the sector of the parent directory's inode.
func (in *Inode) Parent() uint32 { return in.disk.parent }

// OpenCount returns how many outstanding Open/Reopen calls hold in.
func (in *Inode) OpenCount() uint64 { return in.openCount }

// SetParent records child's parent directory sector and writes the inode
// sector through the cache right away rather than waiting for the inode's
// next Close.
func (l *Layer) SetParent(child *Inode, parent uint32) error {
	child.disk.parent = parent
	var buf [SectorSize]byte
	child.disk.encode(buf[:])
	return l.writeSector(child.sector, buf[:])
}

// DenyWrite increments inode's deny-write nesting counter, causing WriteAt
// to return 0 until a matching AllowWrite.
func (l *Layer) DenyWrite(in *Inode) {
	in.Mu.Lock()
	defer in.Mu.Unlock()
	in.denyWriteCount++
}

// AllowWrite reverses one DenyWrite.
func (l *Layer) AllowWrite(in *Inode) {
	in.Mu.Lock()
	defer in.Mu.Unlock()
	if in.denyWriteCount == 0 {
		panic("inode: AllowWrite without matching DenyWrite")
	}
	in.denyWriteCount--
}
