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

package inode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/clock"
	"github.com/segfaultlabs/corefs/internal/freemap"
	"github.com/segfaultlabs/corefs/internal/inode"
)

func newLayer(t *testing.T, sectorCount uint32) *inode.Layer {
	t.Helper()
	dev := block.NewFakeDevice(inode.SectorSize, sectorCount)
	c := cache.New(inode.SectorSize, cache.Options{}, clock.RealClock{}, nil, nil)
	fm, err := freemap.Create(c, dev, inode.SectorSize, sectorCount, 2)
	require.NoError(t, err)
	return inode.New(c, dev, fm, nil)
}

func TestOpenReturnsTheSameInstanceForConcurrentOpeners(t *testing.T) {
	l := newLayer(t, 64)
	const sector = 2
	require.NoError(t, l.Create(sector, 0, false))

	a, err := l.Open(sector)
	require.NoError(t, err)
	b, err := l.Open(sector)
	require.NoError(t, err)

	require.Same(t, a, b)
	require.EqualValues(t, 2, a.OpenCount())

	require.NoError(t, l.Close(a))
	require.NoError(t, l.Close(b))
}

func TestWriteAtGrowsBeforeWriting(t *testing.T) {
	l := newLayer(t, 64)
	const sector = 2
	require.NoError(t, l.Create(sector, 0, false))

	in, err := l.Open(sector)
	require.NoError(t, err)

	payload := []byte("hello")
	n, err := l.WriteAt(in, payload, 10)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.EqualValues(t, 15, in.Length())

	out := make([]byte, len(payload))
	n, err = l.ReadAt(in, out, 10)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, out)

	require.NoError(t, l.Close(in))
}

func TestDenyWriteBlocksWriteAtUntilAllowWrite(t *testing.T) {
	l := newLayer(t, 64)
	const sector = 2
	require.NoError(t, l.Create(sector, 0, false))

	in, err := l.Open(sector)
	require.NoError(t, err)

	l.DenyWrite(in)
	n, err := l.WriteAt(in, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 0, n, "WriteAt must return 0 while a deny is outstanding")
	require.EqualValues(t, 0, in.Length())

	// Nested deny/allow: still denied until every DenyWrite is matched.
	l.DenyWrite(in)
	l.AllowWrite(in)
	n, err = l.WriteAt(in, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	l.AllowWrite(in)
	n, err = l.WriteAt(in, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, l.Close(in))
}

func TestAllowWriteWithoutMatchingDenyWritePanics(t *testing.T) {
	l := newLayer(t, 64)
	const sector = 2
	require.NoError(t, l.Create(sector, 0, false))

	in, err := l.Open(sector)
	require.NoError(t, err)
	defer l.Close(in)

	require.Panics(t, func() { l.AllowWrite(in) })
}

func TestRemoveDefersDestructionUntilLastClose(t *testing.T) {
	l := newLayer(t, 64)
	const sector = 2
	require.NoError(t, l.Create(sector, 512, false))

	a, err := l.Open(sector)
	require.NoError(t, err)
	b := l.Reopen(a)

	l.Remove(a)

	// Still open elsewhere: closing once must not destroy it.
	require.NoError(t, l.Close(a))

	reopened, err := l.Open(sector)
	require.NoError(t, err)
	require.Same(t, b, reopened)

	require.NoError(t, l.Close(b))
	require.NoError(t, l.Close(reopened))
}
