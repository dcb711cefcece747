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

// Package fs ties the cache, inode, directory, and path-resolution layers
// together into the user-visible syscall surface, per-process state, and
// the coarse filesystem-wide lock that serialises every entry point except
// chdir.
package fs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacobsa/syncutil"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/clock"
	"github.com/segfaultlabs/corefs/internal/dir"
	"github.com/segfaultlabs/corefs/internal/freemap"
	"github.com/segfaultlabs/corefs/internal/inode"
	"github.com/segfaultlabs/corefs/internal/path"
)

// FileSystem owns every layer and the single process-wide lock that gives
// create/remove/open/read/write/mkdir/seek/tell/close/filesize
// directory-operation atomicity. chdir is deliberately not taken under it,
// since it mutates only per-process state.
type FileSystem struct {
	cache    *cache.Cache
	dev      block.Device
	freemap  *freemap.Map
	inodes   *inode.Layer
	dirs     *dir.Layer
	resolver *path.Resolver
	logger   *slog.Logger

	root *dir.Handle

	// Mu is the coarse entry-point lock described above.
	Mu syncutil.InvariantMutex
}

// Mkfs formats dev: writes a fresh free map reserving its own header
// sectors plus the root directory's inode sector, then creates the root
// directory with "." and ".." both pointing at itself.
func Mkfs(dev block.Device, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	sectorSize := dev.SectorSize()
	total := dev.SectorCount()

	c := cache.New(sectorSize, cache.Options{}, clock.RealClock{}, logger, cache.NewNoopMetrics())

	reserved := freemap.ReservedSectors(sectorSize, total) + 1
	fm, err := freemap.Create(c, dev, sectorSize, total, reserved)
	if err != nil {
		return fmt.Errorf("fs: mkfs: format free map: %w", err)
	}

	inodes := inode.New(c, dev, fm, logger)
	dirs := dir.New(inodes)

	if err := dirs.Create(inode.RootSector, 2); err != nil {
		return fmt.Errorf("fs: mkfs: create root inode: %w", err)
	}

	root, err := dirs.Open(inode.RootSector)
	if err != nil {
		return fmt.Errorf("fs: mkfs: open root inode: %w", err)
	}
	if err := dirs.Add(root, ".", inode.RootSector); err != nil {
		return fmt.Errorf("fs: mkfs: add root '.': %w", err)
	}
	if err := dirs.Add(root, "..", inode.RootSector); err != nil {
		return fmt.Errorf("fs: mkfs: add root '..': %w", err)
	}
	if err := dirs.Close(root); err != nil {
		return fmt.Errorf("fs: mkfs: close root inode: %w", err)
	}

	if err := fm.Flush(); err != nil {
		return fmt.Errorf("fs: mkfs: flush free map: %w", err)
	}
	return c.Flush()
}

// New mounts an already-formatted device. opts tunes the sector cache;
// the zero value picks the cache package's defaults (see cache.Options).
func New(dev block.Device, opts cache.Options, logger *slog.Logger, metrics *cache.Metrics) (*FileSystem, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = cache.NewNoopMetrics()
	}

	sectorSize := dev.SectorSize()
	total := dev.SectorCount()

	c := cache.New(sectorSize, opts, clock.RealClock{}, logger, metrics)

	fm, err := freemap.Open(c, dev, sectorSize, total)
	if err != nil {
		return nil, fmt.Errorf("fs: mount: open free map: %w", err)
	}

	inodes := inode.New(c, dev, fm, logger)
	dirs := dir.New(inodes)
	resolver := path.New(dirs)

	root, err := dirs.Open(inode.RootSector)
	if err != nil {
		return nil, fmt.Errorf("fs: mount: open root inode: %w", err)
	}

	fsys := &FileSystem{
		cache:    c,
		dev:      dev,
		freemap:  fm,
		inodes:   inodes,
		dirs:     dirs,
		resolver: resolver,
		logger:   logger,
		root:     root,
	}
	fsys.Mu = syncutil.NewInvariantMutex(fsys.checkInvariants)
	return fsys, nil
}

func (fsys *FileSystem) checkInvariants() {}

// Run starts the cache's background flusher and read-ahead consumer,
// blocking until ctx is cancelled.
func (fsys *FileSystem) Run(ctx context.Context) error {
	return fsys.cache.Run(ctx)
}

// Shutdown persists the free map and then flushes the cache, matching the
// required teardown order.
func (fsys *FileSystem) Shutdown() error {
	if err := fsys.freemap.Flush(); err != nil {
		return fmt.Errorf("fs: shutdown: flush free map: %w", err)
	}
	return fsys.cache.Flush()
}

// NewProcess creates a process whose initial working directory is the
// filesystem root.
func (fsys *FileSystem) NewProcess() *Process {
	return newProcess(fsys.dirs.Reopen(fsys.root))
}

// CloseProcess releases every descriptor a process still has open, plus
// its working directory.
func (fsys *FileSystem) CloseProcess(p *Process) error {
	var firstErr error
	for fd := range p.fds {
		if err := fsys.Close(p, fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := fsys.dirs.Close(p.cwd); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
