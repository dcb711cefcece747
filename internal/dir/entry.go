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

// Package dir implements the directory layer: a directory's data is a
// dense array of fixed-size entries stored in its inode, with
// lookup/add/remove, emptiness checks, and the "." / ".." linkage that the
// path resolver relies on.
package dir

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NameMax is the maximum directory entry name length.
const NameMax = 14

// entrySize is the on-disk size of one directory entry: a 4-byte sector
// index, NameMax+1 bytes for a null-terminated name, and a 1-byte in-use
// flag.
const entrySize = 4 + (NameMax + 1) + 1

const (
	entryOffSector = 0
	entryOffName   = 4
	entryOffInUse  = 4 + (NameMax + 1)
)

var (
	ErrNameEmpty    = errors.New("dir: name must not be empty")
	ErrNameTooLong  = errors.New("dir: name exceeds NAME_MAX")
	ErrNameExists   = errors.New("dir: name already present")
	ErrNotFound     = errors.New("dir: name not found")
	ErrDirNotEmpty  = errors.New("dir: directory not empty")
	ErrDirBusy      = errors.New("dir: directory has an open handle elsewhere")
	ErrNotDirectory = errors.New("dir: inode is not a directory")
)

type entry struct {
	inodeSector uint32
	name        string
	inUse       bool
}

func validateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > NameMax {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	return nil
}

func encodeEntry(e entry) []byte {
	buf := make([]byte, entrySize)
	binary.LittleEndian.PutUint32(buf[entryOffSector:], e.inodeSector)
	copy(buf[entryOffName:entryOffName+NameMax+1], []byte(e.name))
	if e.inUse {
		buf[entryOffInUse] = 1
	}
	return buf
}

func decodeEntry(buf []byte) entry {
	sector := binary.LittleEndian.Uint32(buf[entryOffSector:])
	nameBuf := buf[entryOffName : entryOffName+NameMax+1]
	nul := len(nameBuf)
	for i, b := range nameBuf {
		if b == 0 {
			nul = i
			break
		}
	}
	return entry{
		inodeSector: sector,
		name:        string(nameBuf[:nul]),
		inUse:       buf[entryOffInUse] != 0,
	}
}
