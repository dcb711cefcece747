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

const (
	// DefaultSectorCount is how many sectors Mkfs formats a new device
	// with when none is given on the command line.
	DefaultSectorCount uint32 = 65536

	// DefaultCacheLines is how many sector-sized lines the write-back
	// cache holds by default.
	DefaultCacheLines = 512

	// DefaultFlushIntervalMs is the background flusher's period.
	DefaultFlushIntervalMs = 5000

	// DefaultReadAheadBufferSize bounds the read-ahead request stack.
	DefaultReadAheadBufferSize = 32
)
