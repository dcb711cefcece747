// Copyright 2025 Google LLC
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

package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/segfaultlabs/corefs/internal/clock"
)

func TestRealClockNowAdvances(t *testing.T) {
	var c clock.Clock = clock.RealClock{}
	first := c.Now()
	time.Sleep(time.Millisecond)
	require.True(t, c.Now().After(first))
}

func TestRealClockAfterFiresPastDeadline(t *testing.T) {
	var c clock.Clock = clock.RealClock{}
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire in time")
	}
}
