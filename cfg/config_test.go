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

package cfg

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsPopulatesConfigOnUnmarshal(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--device", "/tmp/x.img", "--cache-lines", "1024"}))

	var c Config
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(DecodeHook())))

	assert.Equal(t, ResolvedPath("/tmp/x.img"), c.Device.Path)
	assert.Equal(t, 1024, c.Cache.Lines)
}

func TestValidateConfigRejectsEmptyDevicePath(t *testing.T) {
	c := Config{
		Device:  DeviceConfig{SectorCount: 1},
		Cache:   GetDefaultCacheConfig(),
		Logging: GetDefaultLoggingConfig(),
	}
	err := ValidateConfig(&c)
	assert.Error(t, err)
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	c := Config{
		Device:  DeviceConfig{Path: "/tmp/x.img", SectorCount: DefaultSectorCount},
		Cache:   GetDefaultCacheConfig(),
		Logging: GetDefaultLoggingConfig(),
	}
	assert.NoError(t, ValidateConfig(&c))
}

func TestRationalizeBumpsSeverityWhenMutexDebugEnabled(t *testing.T) {
	c := Config{Debug: DebugConfig{LogMutex: true}, Logging: GetDefaultLoggingConfig()}
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, TraceLogSeverity, c.Logging.Severity)
}
