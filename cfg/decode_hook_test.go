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
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookFuncDecodesOctal(t *testing.T) {
	fn := hookFunc()
	out, err := fn(reflect.TypeOf(""), reflect.TypeOf(Octal(0)), "755")
	require.NoError(t, err)
	assert.EqualValues(t, 0o755, out)
}

func TestHookFuncRejectsBadLogSeverity(t *testing.T) {
	fn := hookFunc()
	_, err := fn(reflect.TypeOf(""), reflect.TypeOf(LogSeverity("")), "LOUD")
	assert.Error(t, err)
}

func TestHookFuncResolvesRelativePath(t *testing.T) {
	fn := hookFunc()
	out, err := fn(reflect.TypeOf(""), reflect.TypeOf(ResolvedPath("")), "relative")
	require.NoError(t, err)
	assert.True(t, len(out.(string)) > 0 && out.(string)[0] == '/')
}
