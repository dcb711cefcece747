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

// Package cache implements a write-back sector cache: the single point of
// contact between the inode/directory layers and the block device, with
// LRU eviction, asynchronous read-ahead, and periodic flush.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/clock"
)

// DefaultSize is the number of cache lines used when a caller doesn't
// have an opinion (tests, Mkfs).
const DefaultSize = 64

// DefaultReadAheadBufferSize is the read-ahead buffer capacity used when
// a caller doesn't have an opinion.
const DefaultReadAheadBufferSize = 64

// DefaultFlushInterval is the flusher's cooperative-sleep period used
// when a caller doesn't have an opinion.
const DefaultFlushInterval = 5000 * time.Millisecond

// Cache is a write-back sector cache backed by an LRU line table.
type Cache struct {
	sectorSize    int
	lines         []*line
	tick          atomic.Uint64
	ra            *readAheadBuffer
	clock         clock.Clock
	logger        *slog.Logger
	metrics       *Metrics
	flushInterval time.Duration
}

// Options tunes a Cache's size and timing; the zero value of each field
// falls back to this package's Default* constant.
type Options struct {
	Lines               int
	FlushInterval       time.Duration
	ReadAheadBufferSize int
}

// New constructs a Cache. sectorSize must match every Device later passed to
// Read/Write.
func New(sectorSize int, opts Options, clk clock.Clock, logger *slog.Logger, metrics *Metrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	lines := opts.Lines
	if lines <= 0 {
		lines = DefaultSize
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	readAheadBufferSize := opts.ReadAheadBufferSize
	if readAheadBufferSize <= 0 {
		readAheadBufferSize = DefaultReadAheadBufferSize
	}

	c := &Cache{
		sectorSize:    sectorSize,
		lines:         make([]*line, lines),
		ra:            newReadAheadBuffer(readAheadBufferSize),
		clock:         clk,
		logger:        logger,
		metrics:       metrics,
		flushInterval: flushInterval,
	}
	for i := range c.lines {
		c.lines[i] = newLine(sectorSize)
	}
	return c
}

func (c *Cache) nextTick() uint64 {
	return c.tick.Add(1)
}

// find scans all lines for one matching (dev, sector), returning it locked.
// Returns nil if no line matches.
func (c *Cache) find(dev block.Device, sector uint32) *line {
	for _, l := range c.lines {
		l.Mu.Lock()
		if l.matches(dev, sector) {
			return l
		}
		l.Mu.Unlock()
	}
	return nil
}

// chooseEvict picks a line to reuse, returning it locked with dirty=false:
// the first invalid line as is (valid=false), or else the least recently
// used line (valid=true) with any prior dirty data already written back.
func (c *Cache) chooseEvict() (*line, error) {
	var victim *line
	var victimLastUsed uint64

	for _, l := range c.lines {
		l.Mu.Lock()

		if !l.valid {
			if victim != nil {
				victim.Mu.Unlock()
			}
			return l, nil
		}

		if victim == nil || l.lastUsed < victimLastUsed {
			if victim != nil {
				victim.Mu.Unlock()
			}
			victim = l
			victimLastUsed = l.lastUsed
			continue
		}

		l.Mu.Unlock()
	}

	if victim == nil {
		// Size > 0 always, so this is unreachable, but keep the invariant
		// explicit rather than returning a nil line.
		return nil, fmt.Errorf("cache: no line to evict")
	}

	if victim.dirty {
		if err := victim.dev.WriteSector(victim.sector, victim.data); err != nil {
			victim.Mu.Unlock()
			return nil, fmt.Errorf("cache: write-back sector %d during eviction: %w", victim.sector, err)
		}
		victim.dirty = false
	}

	c.metrics.Evictions.Inc()
	return victim, nil
}

// installMiss evicts a line, installs (dev, sector) as its identity, and
// returns it locked with its buffer populated from the device.
func (c *Cache) installMiss(dev block.Device, sector uint32) (*line, error) {
	l, err := c.chooseEvict()
	if err != nil {
		return nil, err
	}

	l.dev = dev
	l.sector = sector
	l.dirty = false

	if err := dev.ReadSector(sector, l.data); err != nil {
		l.valid = false
		l.Mu.Unlock()
		return nil, fmt.Errorf("cache: load sector %d: %w", sector, err)
	}

	l.valid = true
	l.lastUsed = c.nextTick()
	return l, nil
}

// Read copies sector's contents into out (which must be at least
// dev.SectorSize() bytes) and enqueues a read-ahead request for sector+1.
func (c *Cache) Read(dev block.Device, sector uint32, out []byte) error {
	l := c.find(dev, sector)
	if l == nil {
		var err error
		l, err = c.installMiss(dev, sector)
		if err != nil {
			return err
		}
		c.metrics.Misses.Inc()
	} else {
		c.metrics.Hits.Inc()
	}

	copy(out, l.data)
	l.lastUsed = c.nextTick()
	l.Mu.Unlock()

	c.enqueueReadAhead(dev, sector+1)
	return nil
}

// Write makes the cache authoritative for sector, marking it dirty. No
// device write happens until eviction, Flush, or the periodic flusher.
func (c *Cache) Write(dev block.Device, sector uint32, in []byte) error {
	l := c.find(dev, sector)
	if l == nil {
		victim, err := c.chooseEvict()
		if err != nil {
			return err
		}
		victim.dev = dev
		victim.sector = sector
		victim.valid = true
		l = victim
		c.metrics.Misses.Inc()
	} else {
		c.metrics.Hits.Inc()
	}

	copy(l.data, in)
	l.dirty = true
	l.lastUsed = c.nextTick()
	l.Mu.Unlock()
	return nil
}

// enqueueReadAhead stages a prefetch request for (dev, sector). It blocks
// while the buffer is full.
func (c *Cache) enqueueReadAhead(dev block.Device, sector uint32) {
	if sector >= dev.SectorCount() {
		return
	}
	c.ra.push(readAheadRequest{dev: dev, sector: sector})
}

// Flush writes every dirty line back to its device, clearing the dirty bit
// on success. Every write that completed before Flush was called is durable
// once Flush returns.
func (c *Cache) Flush() error {
	start := c.clock.Now()
	defer func() {
		c.metrics.FlushSecs.Observe(c.clock.Now().Sub(start).Seconds())
	}()

	for _, l := range c.lines {
		l.Mu.Lock()
		if l.valid && l.dirty {
			if err := l.dev.WriteSector(l.sector, l.data); err != nil {
				sector := l.sector
				l.Mu.Unlock()
				return fmt.Errorf("cache: flush sector %d: %w", sector, err)
			}
			l.dirty = false
		}
		l.Mu.Unlock()
	}
	return nil
}

// Run starts the background flusher and read-ahead consumer, blocking until
// ctx is cancelled. It always returns a non-nil error (context.Canceled on a
// clean shutdown), matching errgroup.Group's contract.
func (c *Cache) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.runFlusher(ctx) })
	g.Go(func() error { return c.runReadAheadConsumer(ctx) })

	<-ctx.Done()
	c.ra.close()
	_ = g.Wait()
	return ctx.Err()
}

func (c *Cache) runFlusher(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.flushInterval):
			if err := c.Flush(); err != nil {
				c.logger.WarnContext(ctx, "periodic flush failed", "error", err)
			}
		}
	}
}

func (c *Cache) runReadAheadConsumer(ctx context.Context) error {
	for {
		req, ok := c.ra.pop()
		if !ok {
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if req.sector >= req.dev.SectorCount() {
			continue
		}

		// Best-effort: a cache hit means there's nothing to do; a read
		// error is silently dropped.
		if l := c.find(req.dev, req.sector); l != nil {
			l.Mu.Unlock()
			continue
		}
		if l, err := c.installMiss(req.dev, req.sector); err != nil {
			c.logger.DebugContext(ctx, "read-ahead miss", "sector", req.sector, "error", err)
		} else {
			l.Mu.Unlock()
		}
	}
}
