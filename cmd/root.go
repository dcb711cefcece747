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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/segfaultlabs/corefs/cfg"
	"github.com/segfaultlabs/corefs/internal/cache"
	"github.com/segfaultlabs/corefs/internal/logger"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	mountConfig   cfg.Config
)

// NewRootCmd builds the root command, wiring mkfs/run/verify as
// subcommands. Each action is injected so tests can observe the resolved
// config without touching a real device file.
func NewRootCmd(mkfsFn func(c *cfg.Config, devicePath string) error,
	runFn func(c *cfg.Config, devicePath string) error,
	verifyFn func(c *cfg.Config, devicePath string) error) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:   "corefs",
		Short: "Format, run, and verify a corefs sector-cached filesystem image",
		Long: `corefs hosts a write-back sector cache, a multi-level-indexed inode
layer, and a hierarchical directory layer over a single backing file,
standing in for a block device.`,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(root.PersistentFlags())

	cobra.OnInitialize(initConfig)

	root.AddCommand(newMkfsCmd(mkfsFn))
	root.AddCommand(newRunCmd(runFn))
	root.AddCommand(newVerifyCmd(verifyFn))

	return root, bindErr
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&mountConfig, viper.DecodeHook(cfg.DecodeHook()))
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&mountConfig, viper.DecodeHook(cfg.DecodeHook()))
}

func resolveConfig() (*cfg.Config, error) {
	if bindErr != nil {
		return nil, bindErr
	}
	if configFileErr != nil {
		return nil, configFileErr
	}
	if unmarshalErr != nil {
		return nil, unmarshalErr
	}
	if err := cfg.Rationalize(&mountConfig); err != nil {
		return nil, err
	}
	if err := cfg.ValidateConfig(&mountConfig); err != nil {
		return nil, err
	}
	logger.SetFormat(mountConfig.Logging.Format)
	logger.SetLevel(string(mountConfig.Logging.Severity))
	if mountConfig.Logging.FilePath != "" {
		rotate := mountConfig.Logging.LogRotate
		logger.SetOutputFile(string(mountConfig.Logging.FilePath), rotate.MaxFileSizeMb, rotate.BackupFileCount, rotate.Compress)
	}
	return &mountConfig, nil
}

// cacheOptions translates the resolved cache configuration into the
// internal/cache package's Options, so "run" and "verify" share one
// place that interprets c.Cache.
func cacheOptions(c *cfg.Config) cache.Options {
	return cache.Options{
		Lines:               c.Cache.Lines,
		FlushInterval:       time.Duration(c.Cache.FlushIntervalMs) * time.Millisecond,
		ReadAheadBufferSize: c.Cache.ReadAheadBufferSize,
	}
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero on failure.
func Execute() {
	root, err := NewRootCmd(runMkfs, runRun, runVerify)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
