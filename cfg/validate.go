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

import "fmt"

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidCacheConfig(c *CacheConfig) error {
	if c.Lines < 1 {
		return fmt.Errorf("cache.lines must be at least 1")
	}
	if c.FlushIntervalMs < 1 {
		return fmt.Errorf("cache.flush-interval-ms must be at least 1")
	}
	if c.ReadAheadBufferSize < 1 {
		return fmt.Errorf("cache.read-ahead-buffer-size must be at least 1")
	}
	return nil
}

func isValidDeviceConfig(d *DeviceConfig) error {
	if d.Path == "" {
		return fmt.Errorf("device.path must not be empty")
	}
	if d.SectorCount < 1 {
		return fmt.Errorf("device.sector-count must be at least 1")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}
	if err := isValidCacheConfig(&config.Cache); err != nil {
		return fmt.Errorf("error parsing cache config: %w", err)
	}
	if err := isValidDeviceConfig(&config.Device); err != nil {
		return fmt.Errorf("error parsing device config: %w", err)
	}
	return nil
}
