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

	"go.uber.org/multierr"
)

func ceilDivSectors(bytes uint32) uint32 {
	return (bytes + SectorSize - 1) / SectorSize
}

// growState tracks sectors allocated during a single growDisk call so they
// can be released if a later allocation step fails partway through: any
// sectors reserved so far during the same call are released via the
// free-map on create/grow failure (DESIGN.md Open Question 1).
type growState struct {
	l         *Layer
	allocated []uint32
}

func (g *growState) allocOne() (uint32, error) {
	sector, ok := g.l.fm.Allocate(1)
	if !ok {
		return 0, fmt.Errorf("inode: free map exhausted")
	}
	g.allocated = append(g.allocated, sector)
	return sector, nil
}

func (g *growState) rollback() {
	for _, s := range g.allocated {
		g.l.fm.Release(s, 1)
	}
}

// growDisk grows d, which currently occupies d.totalSectorsUsed sectors, to
// hold newLength bytes, allocating and zeroing new sectors as needed across
// the direct/indirect/double-indirect phases. On success it sets
// d.length = newLength. On failure it leaves d exactly as it was and
// releases every sector it allocated during this call.
func (l *Layer) growDisk(d *onDisk, newLength uint32) error {
	need := int64(ceilDivSectors(newLength)) - int64(d.totalSectorsUsed)
	if need <= 0 {
		d.length = newLength
		return nil
	}

	g := &growState{l: l}
	before := *d // shallow copy; blocks array copies by value

	if err := l.growPhases(d, g, uint32(need)); err != nil {
		g.rollback()
		*d = before
		return err
	}

	d.length = newLength
	return nil
}

func (l *Layer) growPhases(d *onDisk, g *growState, need uint32) error {
	var zero [SectorSize]byte

	// Direct phase.
	for d.directUsed < DirectCount && need > 0 {
		sector, err := g.allocOne()
		if err != nil {
			return err
		}
		if err := l.writeSector(sector, zero[:]); err != nil {
			return err
		}
		d.blocks[d.directUsed] = sector
		d.directUsed++
		d.totalSectorsUsed++
		need--
	}
	if need == 0 {
		return nil
	}

	// Single-indirect phase.
	if d.indirectBlockCount < IndirectCapacity {
		var ib indirectBlock
		if d.indirectUsed == 1 {
			buf, err := l.readSectorBuf(d.blocks[indirectBlockIdx])
			if err != nil {
				return err
			}
			ib = decodeIndirectBlock(buf)
		} else {
			sector, err := g.allocOne()
			if err != nil {
				return err
			}
			d.blocks[indirectBlockIdx] = sector
			d.indirectUsed = 1
		}

		for d.indirectBlockCount < IndirectCapacity && need > 0 {
			sector, err := g.allocOne()
			if err != nil {
				return err
			}
			if err := l.writeSector(sector, zero[:]); err != nil {
				return err
			}
			ib[d.indirectBlockCount] = sector
			d.indirectBlockCount++
			d.totalSectorsUsed++
			need--
		}

		var buf [SectorSize]byte
		ib.encode(buf[:])
		if err := l.writeSector(d.blocks[indirectBlockIdx], buf[:]); err != nil {
			return err
		}
	}
	if need == 0 {
		return nil
	}

	// Double-indirect phase.
	return l.growDouble(d, g, need, &zero)
}

func (l *Layer) growDouble(d *onDisk, g *growState, need uint32, zero *[SectorSize]byte) error {
	var l1 indirectBlock
	if d.doubleUsed == 1 {
		buf, err := l.readSectorBuf(d.blocks[doubleBlockIdx])
		if err != nil {
			return err
		}
		l1 = decodeIndirectBlock(buf)
	} else {
		sector, err := g.allocOne()
		if err != nil {
			return err
		}
		d.blocks[doubleBlockIdx] = sector
		d.doubleUsed = 1
	}

	for d.doubleL1Count < DoubleL1Capacity && need > 0 {
		var l2 indirectBlock
		freshL2 := false
		if d.doubleL2Count == 0 && l1[d.doubleL1Count] == 0 {
			sector, err := g.allocOne()
			if err != nil {
				return err
			}
			l1[d.doubleL1Count] = sector
			freshL2 = true
		} else {
			buf, err := l.readSectorBuf(l1[d.doubleL1Count])
			if err != nil {
				return err
			}
			l2 = decodeIndirectBlock(buf)
		}
		// A freshly allocated level-2 block always starts its fill counter
		// at zero (DESIGN.md Open Question 3).
		if freshL2 {
			d.doubleL2Count = 0
		}

		for d.doubleL2Count < DoubleL2Capacity && need > 0 {
			sector, err := g.allocOne()
			if err != nil {
				return err
			}
			if err := l.writeSector(sector, zero[:]); err != nil {
				return err
			}
			l2[d.doubleL2Count] = sector
			d.doubleL2Count++
			d.totalSectorsUsed++
			need--
		}

		var l2buf [SectorSize]byte
		l2.encode(l2buf[:])
		if err := l.writeSector(l1[d.doubleL1Count], l2buf[:]); err != nil {
			return err
		}

		if d.doubleL2Count == DoubleL2Capacity {
			d.doubleL2Count = 0
			d.doubleL1Count++
		}
	}

	var l1buf [SectorSize]byte
	l1.encode(l1buf[:])
	if err := l.writeSector(d.blocks[doubleBlockIdx], l1buf[:]); err != nil {
		return err
	}

	if need > 0 {
		return fmt.Errorf("inode: file exceeds maximum size of %d sectors", MaxSectors)
	}
	return nil
}

// freeDisk releases every data sector, indirect block, and double-indirect
// structure belonging to d via the free map, mirroring growDisk in reverse.
// Any errors reading the indirect structures themselves are best-effort and
// collected, returned combined, rather than aborting partway through.
func (l *Layer) freeDisk(d *onDisk) error {
	var errs error

	for i := uint32(0); i < d.directUsed; i++ {
		l.fm.Release(d.blocks[i], 1)
	}

	if d.indirectUsed == 1 {
		if buf, err := l.readSectorBuf(d.blocks[indirectBlockIdx]); err == nil {
			ib := decodeIndirectBlock(buf)
			for i := uint32(0); i < d.indirectBlockCount; i++ {
				l.fm.Release(ib[i], 1)
			}
		} else {
			errs = multierr.Append(errs, fmt.Errorf("inode: free indirect block: %w", err))
		}
		l.fm.Release(d.blocks[indirectBlockIdx], 1)
	}

	if d.doubleUsed == 1 {
		if l1buf, err := l.readSectorBuf(d.blocks[doubleBlockIdx]); err == nil {
			l1 := decodeIndirectBlock(l1buf)
			l1Count := d.doubleL1Count
			if d.doubleL2Count > 0 {
				l1Count++ // the partially filled level-2 block still holds live entries
			}
			for i := uint32(0); i < l1Count; i++ {
				if l1[i] == 0 {
					continue
				}
				limit := uint32(DoubleL2Capacity)
				if i == d.doubleL1Count {
					limit = d.doubleL2Count
				}
				if l2buf, err := l.readSectorBuf(l1[i]); err == nil {
					l2 := decodeIndirectBlock(l2buf)
					for j := uint32(0); j < limit; j++ {
						l.fm.Release(l2[j], 1)
					}
				} else {
					errs = multierr.Append(errs, fmt.Errorf("inode: free double-indirect level-2 block: %w", err))
				}
				l.fm.Release(l1[i], 1)
			}
		} else {
			errs = multierr.Append(errs, fmt.Errorf("inode: free double-indirect level-1 block: %w", err))
		}
		l.fm.Release(d.blocks[doubleBlockIdx], 1)
	}

	return errs
}
