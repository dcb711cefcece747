// Copyright 2024 Google Inc. All Rights Reserved.
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

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/cfg"
	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/fs"
)

func TestRunVerifyWalksFilesAndDirectories(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "test.img")
	c := &cfg.Config{Device: cfg.DeviceConfig{SectorCount: 512}}
	require.NoError(t, runMkfs(c, devicePath))

	populate(t, devicePath, c)

	require.NoError(t, runVerify(c, devicePath))
}

func TestRunVerifyFailsOnMissingDevice(t *testing.T) {
	c := &cfg.Config{Device: cfg.DeviceConfig{SectorCount: 512}}
	require.Error(t, runVerify(c, filepath.Join(t.TempDir(), "does-not-exist.img")))
}

func populate(t *testing.T, devicePath string, c *cfg.Config) {
	t.Helper()

	dev, err := block.OpenFileDevice(devicePath, block.DefaultSectorSize, c.Device.SectorCount, block.RoleFilesys)
	require.NoError(t, err)

	fsys, err := fs.New(dev, cache.Options{}, nil, nil)
	require.NoError(t, err)

	p := fsys.NewProcess()

	require.NoError(t, fsys.Mkdir(p, "/sub"))
	require.NoError(t, fsys.Create(p, "/top.txt", 0))
	require.NoError(t, fsys.Create(p, "/sub/nested.txt", 0))

	fd, err := fsys.Open(p, "/sub/nested.txt")
	require.NoError(t, err)
	_, err = fsys.Write(p, fd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, fsys.Close(p, fd))

	require.NoError(t, fsys.CloseProcess(p))
	require.NoError(t, fsys.Shutdown())
	require.NoError(t, dev.Close())
}
