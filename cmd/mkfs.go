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
	"github.com/spf13/cobra"

	"github.com/segfaultlabs/corefs/cfg"
	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/fs"
	"github.com/segfaultlabs/corefs/internal/logger"
)

func newMkfsCmd(action func(c *cfg.Config, devicePath string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "mkfs [device-path]",
		Short: "Format a backing file as a fresh corefs device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := resolveConfig()
			if err != nil {
				return err
			}
			devicePath := string(c.Device.Path)
			if len(args) == 1 {
				devicePath = args[0]
			}
			return action(c, devicePath)
		},
	}
}

// runMkfs creates devicePath (if necessary), preallocates it to
// c.Device.SectorCount sectors, and formats it.
func runMkfs(c *cfg.Config, devicePath string) error {
	dev, err := block.CreateFileDevice(devicePath, block.DefaultSectorSize, c.Device.SectorCount, block.RoleFilesys)
	if err != nil {
		return err
	}
	defer dev.Close()

	logger.Infof("formatting %s: %d sectors", devicePath, c.Device.SectorCount)
	return fs.Mkfs(dev, logger.Default())
}
