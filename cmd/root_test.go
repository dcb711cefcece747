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
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/cfg"
)

// resetGlobals undoes the package-level state NewRootCmd/initConfig
// accumulate, so tests don't bleed into each other through viper's
// process-wide singleton.
func resetGlobals(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	bindErr = nil
	configFileErr = nil
	unmarshalErr = nil
	mountConfig = cfg.Config{}
}

func TestRootCmdInvokesMkfsWithResolvedDevicePath(t *testing.T) {
	resetGlobals(t)

	var gotPath string
	root, err := NewRootCmd(
		func(c *cfg.Config, devicePath string) error { gotPath = devicePath; return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
	)
	require.NoError(t, err)

	root.SetArgs([]string{"mkfs", "/tmp/explicit.img"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "/tmp/explicit.img", gotPath)
}

func TestRootCmdFallsBackToConfiguredDevicePath(t *testing.T) {
	resetGlobals(t)

	var gotPath string
	root, err := NewRootCmd(
		func(c *cfg.Config, devicePath string) error { gotPath = devicePath; return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
	)
	require.NoError(t, err)

	root.SetArgs([]string{"mkfs", "--device", "/tmp/from-flag.img"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "/tmp/from-flag.img", gotPath)
}

func TestRootCmdPropagatesValidationFailure(t *testing.T) {
	resetGlobals(t)

	called := false
	root, err := NewRootCmd(
		func(c *cfg.Config, devicePath string) error { called = true; return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
		func(c *cfg.Config, devicePath string) error { return nil },
	)
	require.NoError(t, err)

	root.SetArgs([]string{"mkfs", "--sector-count", "0"})
	root.SilenceErrors = true
	root.SilenceUsage = true
	assert.Error(t, root.Execute())
	assert.False(t, called)
}
