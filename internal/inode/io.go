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

// TotalSectorsUsed returns how many data sectors in currently occupies; the
// indirect and double-indirect index blocks are not counted.
func (in *Inode) TotalSectorsUsed() uint32 { return in.disk.totalSectorsUsed }

// ReadAt reads up to len(buf) bytes starting at offset. Reads past EOF are
// truncated rather than treated as an error.
func (l *Layer) ReadAt(in *Inode, buf []byte, offset uint32) (int, error) {
	if offset >= in.disk.length {
		return 0, nil
	}

	n := uint32(len(buf))
	if offset+n > in.disk.length {
		n = in.disk.length - offset
	}

	read := uint32(0)
	for read < n {
		p := offset + read
		sectorOfs := p % SectorSize
		chunk := SectorSize - sectorOfs
		if chunk > n-read {
			chunk = n - read
		}

		sector, err := l.sectorAt(&in.disk, p)
		if err != nil {
			return int(read), err
		}

		if sectorOfs == 0 && chunk == SectorSize {
			if err := l.readSector(sector, buf[read:read+chunk]); err != nil {
				return int(read), err
			}
		} else {
			var scratch [SectorSize]byte
			if err := l.readSector(sector, scratch[:]); err != nil {
				return int(read), err
			}
			copy(buf[read:read+chunk], scratch[sectorOfs:sectorOfs+chunk])
		}

		read += chunk
	}

	return int(read), nil
}

// WriteAt writes len(buf) bytes starting at offset, growing the file first
// if the write extends past the current length. If in's deny-write counter
// is positive, it returns (0, nil) immediately.
func (l *Layer) WriteAt(in *Inode, buf []byte, offset uint32) (int, error) {
	in.Mu.Lock()
	denied := in.denyWriteCount > 0
	in.Mu.Unlock()
	if denied {
		return 0, nil
	}

	n := uint32(len(buf))
	oldLength := in.disk.length
	newEnd := offset + n
	if newEnd > oldLength {
		if err := l.growDisk(&in.disk, newEnd); err != nil {
			return 0, fmt.Errorf("inode: grow sector %d to %d bytes: %w", in.sector, newEnd, err)
		}
	}

	written := uint32(0)
	for written < n {
		p := offset + written
		sectorOfs := p % SectorSize
		sectorStart := p - sectorOfs
		chunk := SectorSize - sectorOfs
		if chunk > n-written {
			chunk = n - written
		}

		sector, err := l.sectorAt(&in.disk, p)
		if err != nil {
			return int(written), err
		}

		if sectorOfs == 0 && chunk == SectorSize {
			if err := l.writeSector(sector, buf[written:written+chunk]); err != nil {
				return int(written), err
			}
		} else {
			var scratch [SectorSize]byte
			// This chunk reaches the end of the sector and the sector lies
			// entirely beyond the file's old length, so its previous
			// contents are the zero-fill growDisk just wrote: skip the
			// read and start from a zeroed scratch buffer instead.
			coversTail := sectorOfs+chunk == SectorSize
			if coversTail && sectorStart >= oldLength {
				// scratch is already zeroed.
			} else if err := l.readSector(sector, scratch[:]); err != nil {
				return int(written), err
			}
			copy(scratch[sectorOfs:sectorOfs+chunk], buf[written:written+chunk])
			if err := l.writeSector(sector, scratch[:]); err != nil {
				return int(written), err
			}
		}

		written += chunk
	}

	return int(written), nil
}
