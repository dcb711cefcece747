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

package block_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/internal/block"
)

func TestFileDeviceRoundTripsSectorsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")

	dev, err := block.CreateFileDevice(path, block.DefaultSectorSize, 8, block.RoleFilesys)
	require.NoError(t, err)

	var in [block.DefaultSectorSize]byte
	in[0], in[block.DefaultSectorSize-1] = 0x11, 0x22
	require.NoError(t, dev.WriteSector(3, in[:]))
	require.NoError(t, dev.Close())

	reopened, err := block.OpenFileDevice(path, block.DefaultSectorSize, 8, block.RoleFilesys)
	require.NoError(t, err)
	defer reopened.Close()

	var out [block.DefaultSectorSize]byte
	require.NoError(t, reopened.ReadSector(3, out[:]))
	require.Equal(t, in, out)
}

func TestFileDeviceRejectsOutOfRangeSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := block.CreateFileDevice(path, block.DefaultSectorSize, 4, block.RoleFilesys)
	require.NoError(t, err)
	defer dev.Close()

	var buf [block.DefaultSectorSize]byte
	require.Error(t, dev.ReadSector(4, buf[:]))
	require.Error(t, dev.WriteSector(4, buf[:]))
}

func TestOpenFileDeviceFailsWhileAnotherHandleHoldsTheLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.img")
	dev, err := block.CreateFileDevice(path, block.DefaultSectorSize, 4, block.RoleFilesys)
	require.NoError(t, err)
	defer dev.Close()

	_, err = block.OpenFileDevice(path, block.DefaultSectorSize, 4, block.RoleFilesys)
	require.Error(t, err, "a second concurrent mount of the same image must be rejected")
}
