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
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/segfaultlabs/corefs/cfg"
	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/fs"
	"github.com/segfaultlabs/corefs/internal/logger"
)

func newRunCmd(action func(c *cfg.Config, devicePath string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "run [device-path]",
		Short: "Mount a formatted device and keep its background workers alive",
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

// runRun opens devicePath, mounts it, and blocks running the cache's
// background flusher and read-ahead consumer until interrupted, flushing
// everything back to disk before returning.
func runRun(c *cfg.Config, devicePath string) error {
	dev, err := block.OpenFileDevice(devicePath, block.DefaultSectorSize, c.Device.SectorCount, block.RoleFilesys)
	if err != nil {
		return err
	}
	defer dev.Close()

	metrics := cache.NewMetrics(prometheus.DefaultRegisterer)

	fsys, err := fs.New(dev, cacheOptions(c), logger.Default(), metrics)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Infof("running %s until interrupted", devicePath)
	// Run blocks until ctx is cancelled (normally by SIGINT/SIGTERM), at
	// which point it returns ctx.Err(); that's the expected exit path, not
	// a failure, so only a non-cancellation error is propagated.
	if err := fsys.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return fsys.Shutdown()
}
