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

package block

import (
	"fmt"
	"sync"
)

// FakeDevice is an in-memory Device for tests. It supports injecting
// failures for a specific sector, for exercising the cache's best-effort
// failure semantics.
type FakeDevice struct {
	mu          sync.Mutex
	sectorSize  int
	sectorCount uint32
	sectors     [][]byte
	failSector  map[uint32]error
	reads       int
	writes      int
}

func NewFakeDevice(sectorSize int, sectorCount uint32) *FakeDevice {
	sectors := make([][]byte, sectorCount)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}
	return &FakeDevice{
		sectorSize:  sectorSize,
		sectorCount: sectorCount,
		sectors:     sectors,
		failSector:  make(map[uint32]error),
	}
}

// FailNextAccessTo makes the next read or write of the given sector return err.
func (d *FakeDevice) FailNextAccessTo(sector uint32, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSector[sector] = err
}

func (d *FakeDevice) ReadSector(sector uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sector >= d.sectorCount {
		return fmt.Errorf("block: sector %d out of range", sector)
	}
	if err, ok := d.failSector[sector]; ok {
		delete(d.failSector, sector)
		return err
	}

	d.reads++
	copy(buf, d.sectors[sector])
	return nil
}

func (d *FakeDevice) WriteSector(sector uint32, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sector >= d.sectorCount {
		return fmt.Errorf("block: sector %d out of range", sector)
	}
	if err, ok := d.failSector[sector]; ok {
		delete(d.failSector, sector)
		return err
	}

	d.writes++
	copy(d.sectors[sector], buf)
	return nil
}

func (d *FakeDevice) SectorSize() int     { return d.sectorSize }
func (d *FakeDevice) SectorCount() uint32 { return d.sectorCount }
func (d *FakeDevice) Role() Role          { return RoleFilesys }

// ReadDirect bypasses any cache, for test assertions that observe
// pre-flush device state directly.
func (d *FakeDevice) ReadDirect(sector uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, d.sectorSize)
	copy(out, d.sectors[sector])
	return out
}

func (d *FakeDevice) Counts() (reads, writes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads, d.writes
}

var _ Device = (*FakeDevice)(nil)
