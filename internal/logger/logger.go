// Copyright 2023 Google Inc. All Rights Reserved.
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

// Package logger provides the package-level structured logger: cmd logs
// through it directly and hands Default() to the cache, inode, and fs
// layers, which take a *slog.Logger; the dir layer does not log.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels below slog's built-in Info, matching the two extra levels
// text and json output both need to express (trace is noisier than debug).
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.Level(-4)
	LevelInfo  = slog.Level(0)
	LevelWarn  = slog.Level(4)
	LevelError = slog.Level(8)
	LevelOff   = slog.Level(12)
)

// Severity name strings accepted by SetLevel, matching cfg's
// LoggingConfig.Severity values.
const (
	Trace = "TRACE"
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARNING"
	Error = "ERROR"
	Off   = "OFF"
)

func severityToLevel(s string) slog.Level {
	switch s {
	case Trace:
		return LevelTrace
	case Debug:
		return LevelDebug
	case Warn:
		return LevelWarn
	case Error:
		return LevelError
	case Off:
		return LevelOff
	default:
		return LevelInfo
	}
}

// loggerFactory owns the live *slog.Logger plus the state needed to rebuild it
// when the format, level, or output file changes at runtime.
type loggerFactory struct {
	level    *slog.LevelVar
	format   string
	file     *lumberjack.Logger
	sysOut   io.Writer
	severity string
}

var (
	defaultFactory = &loggerFactory{
		level:  new(slog.LevelVar),
		format: "text",
		sysOut: os.Stdout,
	}
	defaultLogger = slog.New(defaultFactory.handler())
)

func (f *loggerFactory) writer() io.Writer {
	if f.file != nil {
		return f.file
	}
	return f.sysOut
}

func (f *loggerFactory) handler() slog.Handler {
	opts := &slog.HandlerOptions{Level: f.level, ReplaceAttr: replaceSeverity}
	if f.format == "json" {
		return slog.NewJSONHandler(f.writer(), opts)
	}
	return &textHandler{w: f.writer(), level: f.level}
}

// replaceSeverity renames slog's "level" attribute to "severity" and
// prints TRACE for levels below Debug, matching the JSON format's
// {"severity":"TRACE",...} shape.
func replaceSeverity(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level := a.Value.Any().(slog.Level)
	a.Key = "severity"
	switch {
	case level < LevelDebug:
		a.Value = slog.StringValue(Trace)
	case level < LevelInfo:
		a.Value = slog.StringValue(Debug)
	case level < LevelWarn:
		a.Value = slog.StringValue(Info)
	case level < LevelError:
		a.Value = slog.StringValue(Warn)
	default:
		a.Value = slog.StringValue(Error)
	}
	return a
}

// textHandler emits the `time="..." severity=LEVEL message="..."` line
// shape; slog's built-in text handler quotes keys differently, so this is
// a small custom handler rather than configuring TextHandler.
type textHandler struct {
	w     io.Writer
	level *slog.LevelVar
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	sev := Info
	switch {
	case r.Level < LevelDebug:
		sev = Trace
	case r.Level < LevelInfo:
		sev = Debug
	case r.Level < LevelWarn:
		sev = Info
	case r.Level < LevelError:
		sev = Warn
	default:
		sev = Error
	}
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n", r.Time.Format("2006/01/02 15:04:05.000000"), sev, r.Message)
	return err
}

func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(_ string) slog.Handler      { return h }

// SetFormat switches between "text" and "json" output, rebuilding the
// default logger in place.
func SetFormat(format string) {
	if format != "json" {
		format = "text"
	}
	defaultFactory.format = format
	defaultLogger = slog.New(defaultFactory.handler())
}

// SetLevel sets the minimum severity that reaches output.
func SetLevel(severity string) {
	defaultFactory.severity = severity
	defaultFactory.level.Set(severityToLevel(severity))
}

// SetOutputFile redirects output to path, rotated through lumberjack once
// it exceeds maxSizeMB (0 disables rotation limits beyond lumberjack's
// own defaults).
func SetOutputFile(path string, maxSizeMB, backups int, compress bool) {
	defaultFactory.file = &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		MaxAge:   28,
		Backups:  backups,
		Compress: compress,
	}
	defaultLogger = slog.New(defaultFactory.handler())
}

func Tracef(format string, args ...any) { defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { defaultLogger.Log(context.Background(), LevelDebug, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { defaultLogger.Log(context.Background(), LevelInfo, fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { defaultLogger.Log(context.Background(), LevelWarn, fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { defaultLogger.Log(context.Background(), LevelError, fmt.Sprintf(format, args...)) }

// Default returns the shared *slog.Logger for packages that want to pass
// it through as a dependency (cache.New, inode.New, fs.New all take one).
func Default() *slog.Logger { return defaultLogger }
