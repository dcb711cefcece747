// Copyright 2025 Google LLC
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

package fs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/fs"
)

const sectorSize = 512

func mount(t *testing.T, sectorCount uint32) *fs.FileSystem {
	t.Helper()
	dev := block.NewFakeDevice(sectorSize, sectorCount)
	require.NoError(t, fs.Mkfs(dev, nil))
	fsys, err := fs.New(dev, cache.Options{}, nil, nil)
	require.NoError(t, err)
	return fsys
}

func TestDirectIndirectDoubleIndirectBoundary(t *testing.T) {
	fsys := mount(t, 600)
	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	require.NoError(t, fsys.Create(p, "/big", 0))
	fd, err := fsys.Open(p, "/big")
	require.NoError(t, err)

	offsets := []uint32{
		0,
		10*sectorSize - 1,
		10 * sectorSize,
		(10+128)*sectorSize - 1,
		(10 + 128) * sectorSize,
		(10 + 128 + 128) * sectorSize,
	}

	for _, off := range offsets {
		require.NoError(t, fsys.Seek(p, fd, off))
		n, err := fsys.Write(p, fd, []byte{0xAA})
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
	require.NoError(t, fsys.Close(p, fd))

	fd, err = fsys.Open(p, "/big")
	require.NoError(t, err)
	for _, off := range offsets {
		require.NoError(t, fsys.Seek(p, fd, off))
		var buf [1]byte
		n, err := fsys.Read(p, fd, buf[:])
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, byte(0xAA), buf[0])
	}

	// A handful of positions that were never written must read back zero.
	for _, off := range []uint32{1, 5 * sectorSize, 9*sectorSize + 1, 20 * sectorSize} {
		require.NoError(t, fsys.Seek(p, fd, off))
		var buf [1]byte
		_, err := fsys.Read(p, fd, buf[:])
		require.NoError(t, err)
		require.Equal(t, byte(0), buf[0])
	}
	require.NoError(t, fsys.Close(p, fd))
}

func TestSparseGrowthViaSeek(t *testing.T) {
	const oneMiB = 1 << 20
	fsys := mount(t, oneMiB/sectorSize+256)
	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	require.NoError(t, fsys.Create(p, "/s", 0))
	fd, err := fsys.Open(p, "/s")
	require.NoError(t, err)

	require.NoError(t, fsys.Seek(p, fd, oneMiB))
	n, err := fsys.Write(p, fd, []byte("X"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, fsys.Close(p, fd))

	fd, err = fsys.Open(p, "/s")
	require.NoError(t, err)
	size, err := fsys.Filesize(p, fd)
	require.NoError(t, err)
	require.EqualValues(t, oneMiB+1, size)

	require.NoError(t, fsys.Seek(p, fd, 0))
	buf := make([]byte, oneMiB)
	total := 0
	for total < len(buf) {
		n, err := fsys.Read(p, fd, buf[total:])
		require.NoError(t, err)
		total += n
	}
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
	require.NoError(t, fsys.Close(p, fd))
}

func TestDeferredDeletionAcrossProcesses(t *testing.T) {
	fsys := mount(t, 128)
	a := fsys.NewProcess()
	defer fsys.CloseProcess(a)
	b := fsys.NewProcess()
	defer fsys.CloseProcess(b)

	require.NoError(t, fsys.Create(a, "/f", 0))
	fdA, err := fsys.Open(a, "/f")
	require.NoError(t, err)
	_, err = fsys.Write(a, fdA, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, fsys.Remove(b, "/f"))

	// A can still read what it already wrote.
	require.NoError(t, fsys.Seek(a, fdA, 0))
	buf := make([]byte, 5)
	n, err := fsys.Read(a, fdA, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	require.NoError(t, fsys.Close(a, fdA))
}

func TestNonEmptyDirectoryRemoval(t *testing.T) {
	fsys := mount(t, 128)
	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	require.NoError(t, fsys.Mkdir(p, "/d"))
	require.NoError(t, fsys.Create(p, "/d/x", 0))

	require.Error(t, fsys.Remove(p, "/d"))

	require.NoError(t, fsys.Remove(p, "/d/x"))
	require.NoError(t, fsys.Remove(p, "/d"))
}

func TestPathWithRedundantSeparatorsAndTrailingSlash(t *testing.T) {
	fsys := mount(t, 128)
	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	require.NoError(t, fsys.Mkdir(p, "/a"))
	require.NoError(t, fsys.Mkdir(p, "/a//b/"))
	require.NoError(t, fsys.Chdir(p, "//a///b/."))

	cwdFd, err := fsys.Open(p, ".")
	require.NoError(t, err)
	cwdInum, err := fsys.Inumber(p, cwdFd)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(p, cwdFd))

	targetFd, err := fsys.Open(p, "/a/b")
	require.NoError(t, err)
	targetInum, err := fsys.Inumber(p, targetFd)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(p, targetFd))

	require.Equal(t, targetInum, cwdInum)
}
