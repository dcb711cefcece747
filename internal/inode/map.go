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

import "fmt"

// sectorAt maps a byte offset to its backing sector through the direct,
// single-indirect, and double-indirect block pointers. p must be < d.length
// (the reader/writer is responsible for having grown the file first).
func (l *Layer) sectorAt(d *onDisk, p uint32) (uint32, error) {
	const directSpan = DirectCount * SectorSize
	const indirectSpan = (DirectCount + IndirectCapacity) * SectorSize

	switch {
	case p < directSpan:
		return d.blocks[p/SectorSize], nil

	case p < indirectSpan:
		buf, err := l.readSectorBuf(d.blocks[indirectBlockIdx])
		if err != nil {
			return 0, err
		}
		ib := decodeIndirectBlock(buf)
		idx := (p - directSpan) / SectorSize
		return ib[idx], nil

	default:
		buf, err := l.readSectorBuf(d.blocks[doubleBlockIdx])
		if err != nil {
			return 0, err
		}
		l1 := decodeIndirectBlock(buf)

		q := p - indirectSpan
		l1idx := q / (DoubleL2Capacity * SectorSize)
		if l1idx >= DoubleL1Capacity {
			return 0, fmt.Errorf("inode: offset %d beyond max file size", p)
		}

		l2buf, err := l.readSectorBuf(l1[l1idx])
		if err != nil {
			return 0, err
		}
		l2 := decodeIndirectBlock(l2buf)
		l2idx := (q % (DoubleL2Capacity * SectorSize)) / SectorSize
		return l2[l2idx], nil
	}
}
