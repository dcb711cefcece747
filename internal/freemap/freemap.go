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

// Package freemap implements the free-sector bitmap allocator, an external
// collaborator of the inode layer. Sector 0 (plus overflow sectors, if the
// bitmap doesn't fit in one) is reserved for its persisted header and bits.
package freemap

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/willf/bitset"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
)

const (
	// HeaderSector is the fixed sector holding the free-map header.
	HeaderSector uint32 = 0

	magic = 0x46524545 // "FREE"

	headerMagicOff    = 0
	headerTotalOff    = 4
	headerBitmapOff   = 8
	headerBitmapBytes = 4
)

// Map is the free-sector bitmap allocator consumed by the inode layer.
type Map struct {
	mu        sync.Mutex
	c         *cache.Cache
	dev       block.Device
	total     uint32
	bitmap    *bitset.BitSet
	bitmapLen uint32 // bytes
	sectorSz  int
}

// Create formats a fresh free map for a device with the given total sector
// count and writes it through c. Sectors [0, reserved) are marked used
// up-front (the header sector(s) plus the root directory inode sector);
// callers pass reserved = ReservedSectors(...) + 1 typically.
func Create(c *cache.Cache, dev block.Device, sectorSize int, total uint32, reserved uint32) (*Map, error) {
	bitmapLen := (total + 7) / 8
	m := &Map{
		c:         c,
		dev:       dev,
		total:     total,
		bitmap:    bitset.New(uint(total)),
		bitmapLen: bitmapLen,
		sectorSz:  sectorSize,
	}

	for i := uint32(0); i < reserved && i < total; i++ {
		m.bitmap.Set(uint(i))
	}

	if err := m.flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// Open reads a free map previously created by Create back from the device.
func Open(c *cache.Cache, dev block.Device, sectorSize int, total uint32) (*Map, error) {
	buf := make([]byte, sectorSize)
	if err := c.Read(dev, HeaderSector, buf); err != nil {
		return nil, fmt.Errorf("freemap: read header: %w", err)
	}

	gotMagic := binary.LittleEndian.Uint32(buf[headerMagicOff:])
	if gotMagic != magic {
		return nil, fmt.Errorf("freemap: bad header magic 0x%x", gotMagic)
	}
	gotTotal := binary.LittleEndian.Uint32(buf[headerTotalOff:])
	if gotTotal != total {
		return nil, fmt.Errorf("freemap: header total %d != expected %d", gotTotal, total)
	}
	bitmapLen := binary.LittleEndian.Uint32(buf[headerBitmapOff:])

	raw := make([]byte, 0, bitmapLen)
	remaining := int(bitmapLen)
	sector := HeaderSector
	offset := headerBitmapOff + headerBitmapBytes
	for remaining > 0 {
		avail := sectorSize - offset
		if avail > remaining {
			avail = remaining
		}
		raw = append(raw, buf[offset:offset+avail]...)
		remaining -= avail
		sector++
		offset = 0
		if remaining > 0 {
			if err := c.Read(dev, sector, buf); err != nil {
				return nil, fmt.Errorf("freemap: read bitmap sector %d: %w", sector, err)
			}
		}
	}

	bs := bitset.New(uint(total))
	for i := uint32(0); i < bitmapLen*8 && i < total; i++ {
		byteIdx := i / 8
		bit := i % 8
		if raw[byteIdx]&(1<<bit) != 0 {
			bs.Set(uint(i))
		}
	}

	return &Map{
		c:         c,
		dev:       dev,
		total:     total,
		bitmap:    bs,
		bitmapLen: bitmapLen,
		sectorSz:  sectorSize,
	}, nil
}

// Allocate finds n contiguous free sectors, marks them used, and returns the
// first sector index. It does not persist the change to disk; callers that
// need durability call Flush (the inode layer relies on the cache's regular
// write-back/flush cycle instead; the free map's durability is best-effort).
func (m *Map) Allocate(n uint32) (start uint32, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n == 0 {
		return 0, true
	}

	run := uint32(0)
	runStart := uint32(0)
	for i := uint32(0); i < m.total; i++ {
		if !m.bitmap.Test(uint(i)) {
			if run == 0 {
				runStart = i
			}
			run++
			if run == n {
				for j := runStart; j < runStart+n; j++ {
					m.bitmap.Set(uint(j))
				}
				return runStart, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// Release marks n sectors starting at start as free again.
func (m *Map) Release(start uint32, n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := start; i < start+n && i < m.total; i++ {
		m.bitmap.Clear(uint(i))
	}
}

// InUse reports how many sectors are currently marked allocated.
func (m *Map) InUse() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(m.bitmap.Count())
}

// Flush persists the bitmap header and bits through the cache. Callers
// typically invoke this right before the cache's own shutdown flush.
func (m *Map) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flush()
}

// flush must be called with m.mu held.
func (m *Map) flush() error {
	raw := make([]byte, m.bitmapLen)
	for i := uint32(0); i < m.total; i++ {
		if m.bitmap.Test(uint(i)) {
			raw[i/8] |= 1 << (i % 8)
		}
	}

	buf := make([]byte, m.sectorSz)
	binary.LittleEndian.PutUint32(buf[headerMagicOff:], magic)
	binary.LittleEndian.PutUint32(buf[headerTotalOff:], m.total)
	binary.LittleEndian.PutUint32(buf[headerBitmapOff:], m.bitmapLen)

	offset := headerBitmapOff + headerBitmapBytes
	sector := HeaderSector
	remaining := len(raw)
	pos := 0
	for {
		avail := m.sectorSz - offset
		if avail > remaining {
			avail = remaining
		}
		copy(buf[offset:offset+avail], raw[pos:pos+avail])
		if err := m.c.Write(m.dev, sector, buf); err != nil {
			return fmt.Errorf("freemap: write sector %d: %w", sector, err)
		}

		pos += avail
		remaining -= avail
		if remaining <= 0 {
			break
		}

		sector++
		offset = 0
		buf = make([]byte, m.sectorSz)
	}
	return nil
}

// ReservedSectors returns how many sectors the header+bitmap occupy for a
// device with the given geometry, so callers can reserve sector 1 onward for
// the root directory inode and regular data.
func ReservedSectors(sectorSize int, total uint32) uint32 {
	bitmapLen := (total + 7) / 8
	firstSectorBits := uint32(sectorSize - headerBitmapOff - headerBitmapBytes)
	if bitmapLen <= firstSectorBits {
		return 1
	}
	remaining := bitmapLen - firstSectorBits
	extra := (remaining + uint32(sectorSize) - 1) / uint32(sectorSize)
	return 1 + extra
}
