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

package dir

import "github.com/segfaultlabs/corefs/internal/inode"

// Handle is a directory handle: an owned in-memory inode plus a byte
// cursor for sequential Readdir. The cursor starts past the first two
// entries ("." and "..") so Readdir skips them naturally.
type Handle struct {
	Inode *inode.Inode
	pos   uint32
}

func newHandle(in *inode.Inode) *Handle {
	return &Handle{Inode: in, pos: 2 * entrySize}
}

// Sector returns the directory's inode sector (its inumber).
func (h *Handle) Sector() uint32 { return h.Inode.Inumber() }
