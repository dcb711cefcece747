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
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/freemap"
)

// RootSector is the fixed sector of the root directory's inode. Newly
// created files default their parent to it.
const RootSector uint32 = 1

// Layer is the inode layer: the on-disk inode format, the block map, the
// open-inode registry, and deferred deletion. It is the sole owner of the
// mapping from sector number to the single live in-memory Inode for that
// sector — there is at most one in-memory Inode per sector at a time.
type Layer struct {
	c      *cache.Cache
	dev    block.Device
	fm     *freemap.Map
	logger *slog.Logger

	mu   sync.Mutex
	open map[uint32]*Inode
}

// New constructs a Layer backed by c, dev, and fm.
func New(c *cache.Cache, dev block.Device, fm *freemap.Map, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		c:      c,
		dev:    dev,
		fm:     fm,
		logger: logger,
		open:   make(map[uint32]*Inode),
	}
}

func (l *Layer) readSector(sector uint32, buf []byte) error {
	return l.c.Read(l.dev, sector, buf)
}

func (l *Layer) readSectorBuf(sector uint32) ([]byte, error) {
	buf := make([]byte, SectorSize)
	if err := l.readSector(sector, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (l *Layer) writeSector(sector uint32, buf []byte) error {
	return l.c.Write(l.dev, sector, buf)
}

// Create initializes a zeroed on-disk inode at sector (which the caller must
// already have reserved via the free map), grows it to hold length bytes,
// and writes it through the cache.
func (l *Layer) Create(sector uint32, length uint32, isDir bool) error {
	d := onDisk{
		magic:  Magic,
		isDir:  boolToU32(isDir),
		parent: RootSector,
	}

	if err := l.growDisk(&d, length); err != nil {
		return fmt.Errorf("inode: create sector %d: %w", sector, err)
	}

	var buf [SectorSize]byte
	d.encode(buf[:])
	if err := l.writeSector(sector, buf[:]); err != nil {
		l.freeDisk(&d)
		return fmt.Errorf("inode: create sector %d: write inode: %w", sector, err)
	}
	return nil
}

// Open returns the unique in-memory Inode for sector, creating it (by
// reading it off disk) if this is the first open, or incrementing its open
// count if another caller already holds it, enforcing the single
// in-memory-instance-per-sector invariant.
func (l *Layer) Open(sector uint32) (*Inode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if in, ok := l.open[sector]; ok {
		in.Mu.Lock()
		in.openCount++
		in.Mu.Unlock()
		return in, nil
	}

	buf, err := l.readSectorBuf(sector)
	if err != nil {
		return nil, fmt.Errorf("inode: open sector %d: %w", sector, err)
	}
	d := decodeOnDisk(buf)
	if d.magic != Magic {
		return nil, fmt.Errorf("inode: open sector %d: bad magic 0x%x", sector, d.magic)
	}

	in := newInode(l, sector, d)
	l.open[sector] = in
	return in, nil
}

// Reopen increments inode's open count and returns it.
func (l *Layer) Reopen(in *Inode) *Inode {
	l.mu.Lock()
	defer l.mu.Unlock()
	in.Mu.Lock()
	in.openCount++
	in.Mu.Unlock()
	return in
}

// Close decrements inode's open count. At zero, it unregisters the inode,
// writes its cached on-disk copy back through the cache, and — if Remove
// was called on it — frees every data sector and the inode sector itself
// via the free map.
func (l *Layer) Close(in *Inode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	in.Mu.Lock()
	in.openCount--
	stillOpen := in.openCount > 0
	in.Mu.Unlock()
	if stillOpen {
		return nil
	}

	delete(l.open, in.sector)

	var buf [SectorSize]byte
	in.disk.encode(buf[:])
	writeErr := l.writeSector(in.sector, buf[:])

	in.Mu.Lock()
	removed := in.removed
	in.Mu.Unlock()
	if !removed {
		return writeErr
	}

	freeErr := l.freeDisk(&in.disk)
	l.fm.Release(in.sector, 1)
	l.logger.Debug("inode destroyed", "sector", in.sector, "sectors_freed", in.disk.totalSectorsUsed+1)

	return multierr.Combine(writeErr, freeErr)
}

// Remove marks inode for destruction on its last Close. It is never an
// error to remove an inode that is still open elsewhere; destruction is
// deferred to the last Close.
func (l *Layer) Remove(in *Inode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in.Mu.Lock()
	in.removed = true
	in.Mu.Unlock()
}
