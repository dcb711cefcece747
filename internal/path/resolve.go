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

// Package path implements the directory-walking resolver: splitting a path
// into components and walking from the root or from a process's current
// working directory down to the parent of the final component.
package path

import (
	"errors"
	"fmt"
	"strings"

	"github.com/segfaultlabs/corefs/internal/dir"
)

// Max is the maximum accepted path length in bytes.
const Max = 256

var (
	ErrEmpty       = errors.New("path: empty")
	ErrTooLong     = errors.New("path: exceeds PATH_MAX")
	ErrNameTooLong = errors.New("path: component exceeds NAME_MAX")
	ErrNotFound    = errors.New("path: intermediate component not found")
)

// Resolver walks paths against a directory layer.
type Resolver struct {
	dirs *dir.Layer
}

// New constructs a Resolver over the given directory layer.
func New(dirs *dir.Layer) *Resolver {
	return &Resolver{dirs: dirs}
}

// Find walks path, starting from root if path is absolute or from cwd
// otherwise, and returns a freshly-opened handle on the parent directory of
// the final path component together with that component's name. The caller
// is responsible for closing the returned handle and for applying whatever
// directory operation (lookup, add, remove) the syscall in question needs
// on the (parent, name) pair.
//
// Only the components before the last are required to exist; a missing
// final component is reported by the caller's subsequent directory
// operation, not by Find itself (this is what lets create/mkdir address a
// name that doesn't exist yet). A missing intermediate component is an
// error.
//
// A trailing slash after a final component that exists descends into it
// and returns that directory with the name "."; after a missing final
// component it has no effect, so mkdir "/a/b/" still creates b.
func (r *Resolver) Find(p string, root, cwd *dir.Handle) (parent *dir.Handle, lastName string, err error) {
	if p == "" {
		return nil, "", ErrEmpty
	}
	if len(p) > Max {
		return nil, "", ErrTooLong
	}

	trailingSlash := strings.HasSuffix(p, "/") && p != "/"
	absolute := strings.HasPrefix(p, "/")

	tokens := splitComponents(p)

	start := cwd
	if absolute {
		start = root
	}
	cur := r.dirs.Reopen(start)

	if len(tokens) == 0 {
		return cur, ".", nil
	}

	for i, tok := range tokens[:len(tokens)-1] {
		if len(tok) > dir.NameMax {
			r.dirs.Close(cur)
			return nil, "", fmt.Errorf("%w: %q", ErrNameTooLong, tok)
		}

		child, lookupErr := r.dirs.Lookup(cur, tok)
		if lookupErr != nil {
			r.dirs.Close(cur)
			return nil, "", fmt.Errorf("%w: %q (component %d)", ErrNotFound, tok, i)
		}

		next, adoptErr := r.dirs.Adopt(child)
		r.dirs.Close(cur)
		if adoptErr != nil {
			return nil, "", fmt.Errorf("path: %q is not a directory: %w", tok, adoptErr)
		}
		cur = next
	}

	last := tokens[len(tokens)-1]
	if len(last) > dir.NameMax {
		r.dirs.Close(cur)
		return nil, "", fmt.Errorf("%w: %q", ErrNameTooLong, last)
	}
	if trailingSlash {
		if child, lookupErr := r.dirs.Lookup(cur, last); lookupErr == nil {
			next, adoptErr := r.dirs.Adopt(child)
			r.dirs.Close(cur)
			if adoptErr != nil {
				return nil, "", fmt.Errorf("path: %q is not a directory: %w", last, adoptErr)
			}
			cur = next
			last = "."
		}
	}

	return cur, last, nil
}

// splitComponents tokenises p on "/", collapsing repeated separators and
// dropping the leading/trailing empty components that produces.
func splitComponents(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
