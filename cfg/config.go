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
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one corefs mount: the
// backing device, the sector cache, and logging. It is populated by viper
// from (in increasing priority) defaults, an optional YAML file, and
// command-line flags.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Cache   CacheConfig   `yaml:"cache"`
	Debug   DebugConfig   `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`
}

// DeviceConfig describes the backing store corefs formats and mounts.
type DeviceConfig struct {
	// Path is the backing regular file standing in for a block device.
	Path ResolvedPath `yaml:"path"`

	// SectorCount sizes a freshly created device; ignored when mounting an
	// already-formatted one.
	SectorCount uint32 `yaml:"sector-count"`

	// FileMode is the backing file's permission bits. mkfs does not apply
	// it: the device file is always created with mode 0600.
	FileMode Octal `yaml:"file-mode"`
}

// CacheConfig tunes the write-back sector cache.
type CacheConfig struct {
	// Lines is the number of sector-sized cache lines held in memory.
	Lines int `yaml:"lines"`

	// FlushIntervalMs is how often the background flusher writes back
	// dirty lines, in milliseconds.
	FlushIntervalMs int `yaml:"flush-interval-ms"`

	// ReadAheadBufferSize bounds the pending read-ahead request stack.
	ReadAheadBufferSize int `yaml:"read-ahead-buffer-size"`
}

// DebugConfig holds debugging switches, both off by default. LogMutex
// raises the log severity to TRACE (see Rationalize). ExitOnInvariantViolation
// is reported by ShouldExitOnInvariantViolation; no code path acts on it.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`
	LogMutex                 bool `yaml:"log-mutex"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Severity  LogSeverity            `yaml:"severity"`
	Format    string                 `yaml:"format"`
	FilePath  ResolvedPath           `yaml:"file-path"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

// LogRotateLoggingConfig mirrors lumberjack.Logger's rotation knobs.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// BindFlags declares every corefs flag and binds it into viper under the
// dotted key its struct field maps to, so a flag and a YAML file entry
// resolve to the same value. Environment variables are not bound.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("device", "d", "corefs.img", "Path to the backing device file.")
	if err = viper.BindPFlag("device.path", flagSet.Lookup("device")); err != nil {
		return err
	}

	flagSet.Uint32P("sector-count", "", 65536, "Number of sectors to format a new device with.")
	if err = viper.BindPFlag("device.sector-count", flagSet.Lookup("sector-count")); err != nil {
		return err
	}

	flagSet.IntP("file-mode", "", 0600, "Backing file permission bits; not applied by mkfs, which creates the file with mode 0600.")
	if err = viper.BindPFlag("device.file-mode", flagSet.Lookup("file-mode")); err != nil {
		return err
	}

	flagSet.IntP("cache-lines", "", 512, "Number of sector-sized lines held in the write-back cache.")
	if err = viper.BindPFlag("cache.lines", flagSet.Lookup("cache-lines")); err != nil {
		return err
	}

	flagSet.IntP("flush-interval-ms", "", 5000, "Interval between background cache flushes, in milliseconds.")
	if err = viper.BindPFlag("cache.flush-interval-ms", flagSet.Lookup("flush-interval-ms")); err != nil {
		return err
	}

	flagSet.IntP("read-ahead-buffer-size", "", 32, "Maximum pending read-ahead requests held at once.")
	if err = viper.BindPFlag("cache.read-ahead-buffer-size", flagSet.Lookup("read-ahead-buffer-size")); err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Set debug.exit-on-invariant-violation; no code path acts on it.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Raise the log severity to TRACE.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "Log output format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Optional log output file; empty logs to stdout.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	return nil
}
