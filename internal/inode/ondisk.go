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

// Package inode implements the on-disk inode format, the multi-level
// direct/indirect/double-indirect block map, the open-inode registry, and
// deferred inode deletion.
package inode

import "encoding/binary"

const (
	// SectorSize is the fixed size of every sector, including an inode's own.
	SectorSize = 512

	// Magic identifies a sector as holding an on-disk inode.
	Magic uint32 = 0x494E4F44

	// DirectCount, IndirectCapacity, DoubleL1Capacity are the block-map
	// geometry: 10 direct pointers, a single-indirect block of 128 pointers,
	// and a double-indirect block whose 128 level-1 pointers each point at a
	// 128-pointer level-2 block.
	DirectCount      = 10
	IndirectCapacity = SectorSize / 4 // 128, assuming 4-byte sector indices
	DoubleL1Capacity = IndirectCapacity
	DoubleL2Capacity = IndirectCapacity

	// MaxSectors is the maximum file size in sectors: 10 + 128 + 128*128.
	MaxSectors = DirectCount + IndirectCapacity + DoubleL1Capacity*DoubleL2Capacity

	// blockCount is the length of the blocks[12] array: 10 direct + 1
	// single-indirect + 1 double-indirect.
	blockCount = DirectCount + 2

	indirectBlockIdx = DirectCount     // blocks[10]
	doubleBlockIdx   = DirectCount + 1 // blocks[11]
)

// onDisk is the exactly-one-sector on-disk inode record.
// Encoded layout (little-endian), padded with zeros to SectorSize:
//
//	blocks[12]            uint32 * 12  = 48 bytes
//	directUsed             uint32      =  4 bytes
//	indirectUsed           uint32      =  4 bytes
//	indirectBlockCount     uint32      =  4 bytes
//	doubleUsed             uint32      =  4 bytes
//	doubleL1Count          uint32      =  4 bytes
//	doubleL2Count          uint32      =  4 bytes
//	totalSectorsUsed       uint32      =  4 bytes
//	length                 uint32      =  4 bytes
//	magic                  uint32      =  4 bytes
//	isDir                  uint32      =  4 bytes
//	parent                 uint32      =  4 bytes
//	                                   = 92 bytes, padded to 512
type onDisk struct {
	blocks             [blockCount]uint32
	directUsed         uint32
	indirectUsed       uint32
	indirectBlockCount uint32
	doubleUsed         uint32
	doubleL1Count      uint32
	doubleL2Count      uint32
	totalSectorsUsed   uint32
	length             uint32
	magic              uint32
	isDir              uint32
	parent             uint32
}

func (d *onDisk) encode(buf []byte) {
	if len(buf) < SectorSize {
		panic("inode: encode buffer smaller than a sector")
	}
	for i := range buf {
		buf[i] = 0
	}

	off := 0
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}

	for _, b := range d.blocks {
		putU32(b)
	}
	putU32(d.directUsed)
	putU32(d.indirectUsed)
	putU32(d.indirectBlockCount)
	putU32(d.doubleUsed)
	putU32(d.doubleL1Count)
	putU32(d.doubleL2Count)
	putU32(d.totalSectorsUsed)
	putU32(d.length)
	putU32(d.magic)
	putU32(d.isDir)
	putU32(d.parent)
}

func decodeOnDisk(buf []byte) onDisk {
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		return v
	}

	var d onDisk
	for i := range d.blocks {
		d.blocks[i] = getU32()
	}
	d.directUsed = getU32()
	d.indirectUsed = getU32()
	d.indirectBlockCount = getU32()
	d.doubleUsed = getU32()
	d.doubleL1Count = getU32()
	d.doubleL2Count = getU32()
	d.totalSectorsUsed = getU32()
	d.length = getU32()
	d.magic = getU32()
	d.isDir = getU32()
	d.parent = getU32()
	return d
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// indirectBlock is a sector's worth of sector-index entries (128 of them,
// given SectorSize=512 and 4-byte indices).
type indirectBlock [IndirectCapacity]uint32

func (b *indirectBlock) encode(buf []byte) {
	for i, v := range b {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
}

func decodeIndirectBlock(buf []byte) indirectBlock {
	var b indirectBlock
	for i := range b {
		b[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return b
}
