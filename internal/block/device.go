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

// Package block provides the block-device interface consumed by the sector
// cache, and a regular-file-backed implementation of it.
package block

import "fmt"

// DefaultSectorSize is the sector size every corefs device is formatted
// and mounted with. It is fixed rather than configurable since the
// on-disk inode and indirect-block layouts bake in a 512-byte sector.
const DefaultSectorSize = 512

// Role identifies what a device is used for. Only one role exists today;
// the type is kept open so a future swap device could be added without
// touching the Device interface.
type Role int

const (
	RoleFilesys Role = iota
)

func (r Role) String() string {
	switch r {
	case RoleFilesys:
		return "filesys"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Device is the block device interface the sector cache depends on.
type Device interface {
	// ReadSector reads exactly SectorSize() bytes into buf, which must be at
	// least that long.
	ReadSector(sector uint32, buf []byte) error

	// WriteSector writes exactly SectorSize() bytes from buf.
	WriteSector(sector uint32, buf []byte) error

	// SectorSize returns the fixed sector size S, in bytes.
	SectorSize() int

	// SectorCount returns the total number of addressable sectors.
	SectorCount() uint32

	// Role reports what this device is used for.
	Role() Role
}
