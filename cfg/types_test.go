// Copyright 2024 Google LLC
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

	"github.com/stretchr/testify/assert"
)

func TestOctalUnmarshalText(t *testing.T) {
	var o Octal
	assert.NoError(t, o.UnmarshalText([]byte("644")))
	assert.Equal(t, Octal(0o644), o)
}

func TestOctalMarshalText(t *testing.T) {
	o := Octal(0o600)
	b, err := o.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "600", string(b))
}

func TestLogSeverityUnmarshalTextRejectsUnknown(t *testing.T) {
	var s LogSeverity
	assert.Error(t, s.UnmarshalText([]byte("LOUD")))
}

func TestLogSeverityUnmarshalTextUppercases(t *testing.T) {
	var s LogSeverity
	assert.NoError(t, s.UnmarshalText([]byte("debug")))
	assert.Equal(t, DebugLogSeverity, s)
}

func TestLogSeverityRankOrdersNoisiestFirst(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, ErrorLogSeverity.Rank(), OffLogSeverity.Rank())
	assert.Equal(t, -1, LogSeverity("bogus").Rank())
}

func TestResolvedPathUnmarshalTextMakesAbsolute(t *testing.T) {
	var p ResolvedPath
	assert.NoError(t, p.UnmarshalText([]byte("relative/path")))
	assert.True(t, len(p) > 0 && p[0] == '/')
}
