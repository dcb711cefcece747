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
	"sync"

	"github.com/segfaultlabs/corefs/internal/block"
)

// readAheadRequest is one pending prefetch: read dev's sector through the
// cache and discard the data.
type readAheadRequest struct {
	dev    block.Device
	sector uint32
}

// readAheadBuffer is the bounded read-ahead request buffer. Despite the name
// it is a stack, not a queue: push and pop both act on the same end, so
// requests are serviced LIFO rather than FIFO. This is deliberately kept as
// is rather than changed to FIFO ordering.
type readAheadBuffer struct {
	mu      sync.Mutex
	notFull *sync.Cond
	notEmpty *sync.Cond
	items   []readAheadRequest
	cap     int
	closed  bool
}

func newReadAheadBuffer(capacity int) *readAheadBuffer {
	b := &readAheadBuffer{cap: capacity}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// push blocks while the buffer is full, then stacks req onto the end.
func (b *readAheadBuffer) push(req readAheadRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.items) >= b.cap && !b.closed {
		b.notFull.Wait()
	}
	if b.closed {
		return
	}

	b.items = append(b.items, req)
	b.notEmpty.Signal()
}

// pop blocks until a request is available or the buffer is closed, in which
// case ok is false. It pops from the same end push appends to (LIFO).
func (b *readAheadBuffer) pop() (req readAheadRequest, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.items) == 0 && !b.closed {
		b.notEmpty.Wait()
	}
	if len(b.items) == 0 {
		return readAheadRequest{}, false
	}

	last := len(b.items) - 1
	req = b.items[last]
	b.items = b.items[:last]
	b.notFull.Signal()
	return req, true
}

// close unblocks any goroutine waiting in push or pop.
func (b *readAheadBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}
