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

package cache

import (
	"github.com/jacobsa/syncutil"

	"github.com/segfaultlabs/corefs/internal/block"
)

// line is a single cache line: one cached sector plus its identity and
// state. Lines are built by newLine, which allocates data and installs the
// invariant-checked mutex; the zero value is not usable.
//
// INVARIANT: !valid => !dirty
// INVARIANT: !valid => data is meaningless (but always len(data) == sectorSize)
type line struct {
	// Mu guards everything below. It must be held by exactly one goroutine
	// at a time; find and chooseEvict never hold more than one line's Mu
	// simultaneously except while the eviction candidate is held and other
	// lines are being rejected one at a time.
	Mu syncutil.InvariantMutex

	valid    bool
	dirty    bool
	dev      block.Device
	sector   uint32
	lastUsed uint64
	data     []byte
}

func newLine(sectorSize int) *line {
	l := &line{data: make([]byte, sectorSize)}
	l.Mu = syncutil.NewInvariantMutex(l.checkInvariants)
	return l
}

func (l *line) checkInvariants() {
	if !l.valid && l.dirty {
		panic("cache: invalid line marked dirty")
	}
	if len(l.data) == 0 {
		panic("cache: line has no backing buffer")
	}
}

func (l *line) matches(dev block.Device, sector uint32) bool {
	return l.valid && l.dev == dev && l.sector == sector
}
