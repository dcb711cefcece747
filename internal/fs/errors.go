// Copyright 2015 Google Inc. All Rights Reserved.
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

package fs

import "errors"

var (
	ErrBadFD      = errors.New("fs: no such open descriptor")
	ErrReservedFD = errors.New("fs: descriptor 0 and 1 are reserved for the console")
	ErrIsDir      = errors.New("fs: is a directory")
	ErrNotDir     = errors.New("fs: not a directory")
	ErrNoSpace    = errors.New("fs: free map exhausted")
)
