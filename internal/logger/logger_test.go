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

package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectToBuffer(buf *bytes.Buffer, severity string) {
	level := new(slog.LevelVar)
	level.Set(severityToLevel(severity))
	defaultFactory = &loggerFactory{level: level, format: "text", sysOut: buf}
	defaultLogger = slog.New(defaultFactory.handler())
}

func emitAll() []func() {
	return []func(){
		func() { Tracef("trace %d", 1) },
		func() { Debugf("debug %d", 1) },
		func() { Infof("info %d", 1) },
		func() { Warnf("warn %d", 1) },
		func() { Errorf("error %d", 1) },
	}
}

func (t *LoggerTest) capture(severity string) []string {
	var buf bytes.Buffer
	redirectToBuffer(&buf, severity)
	var out []string
	for _, f := range emitAll() {
		f()
		out = append(out, buf.String())
		buf.Reset()
	}
	return out
}

func (t *LoggerTest) TestLevelOffSuppressesEverything() {
	for _, line := range t.capture(Off) {
		t.Empty(line)
	}
}

func (t *LoggerTest) TestLevelErrorOnlyLetsErrorThrough() {
	out := t.capture(Error)
	t.Empty(out[0])
	t.Empty(out[1])
	t.Empty(out[2])
	t.Empty(out[3])
	t.Regexp(regexp.MustCompile(`severity=ERROR message="error 1"`), out[4])
}

func (t *LoggerTest) TestLevelTraceLetsEverythingThrough() {
	out := t.capture(Trace)
	t.Regexp(regexp.MustCompile(`severity=TRACE`), out[0])
	t.Regexp(regexp.MustCompile(`severity=DEBUG`), out[1])
	t.Regexp(regexp.MustCompile(`severity=INFO`), out[2])
	t.Regexp(regexp.MustCompile(`severity=WARNING`), out[3])
	t.Regexp(regexp.MustCompile(`severity=ERROR`), out[4])
}

func (t *LoggerTest) TestSetFormatJSON() {
	var buf bytes.Buffer
	defaultFactory = &loggerFactory{level: new(slog.LevelVar), format: "text", sysOut: &buf}
	defaultLogger = slog.New(defaultFactory.handler())

	SetFormat("json")
	Infof("hello")

	assert.Contains(t.T(), buf.String(), `"severity":"INFO"`)
	assert.Contains(t.T(), buf.String(), `"msg":"hello"`)
}

func (t *LoggerTest) TestSeverityToLevelUnknownDefaultsToInfo() {
	assert.Equal(t.T(), LevelInfo, severityToLevel("not-a-real-severity"))
}
