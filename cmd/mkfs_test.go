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

func TestRunMkfsFormatsAnEmptyRoot(t *testing.T) {
	devicePath := filepath.Join(t.TempDir(), "test.img")
	c := &cfg.Config{Device: cfg.DeviceConfig{SectorCount: 256}}

	require.NoError(t, runMkfs(c, devicePath))

	dev, err := block.OpenFileDevice(devicePath, block.DefaultSectorSize, 256, block.RoleFilesys)
	require.NoError(t, err)
	defer dev.Close()

	fsys, err := fs.New(dev, cache.Options{}, nil, nil)
	require.NoError(t, err)

	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	fd, err := fsys.Open(p, "/")
	require.NoError(t, err)
	_, ok, err := fsys.Readdir(p, fd)
	require.NoError(t, err)
	require.False(t, ok, "freshly formatted root should have no entries")
	require.NoError(t, fsys.Close(p, fd))
}
