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

package cmd

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/segfaultlabs/corefs/cfg"
	"github.com/segfaultlabs/corefs/internal/block"
	"github.com/segfaultlabs/corefs/internal/fs"
	"github.com/segfaultlabs/corefs/internal/logger"
)

func newVerifyCmd(action func(c *cfg.Config, devicePath string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [device-path]",
		Short: "Walk every directory and confirm the tree is internally consistent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := resolveConfig()
			if err != nil {
				return err
			}
			devicePath := string(c.Device.Path)
			if len(args) == 1 {
				devicePath = args[0]
			}
			return action(c, devicePath)
		},
	}
}

// runVerify mounts devicePath read-write (there is no read-only mode) and
// walks the directory tree from the root, visiting every entry exactly
// once through the same syscall surface an ordinary process would use.
// It fails on the first inconsistency: a directory entry whose inode
// cannot be opened, or a file whose declared size disagrees with what a
// full read produces.
func runVerify(c *cfg.Config, devicePath string) error {
	dev, err := block.OpenFileDevice(devicePath, block.DefaultSectorSize, c.Device.SectorCount, block.RoleFilesys)
	if err != nil {
		return err
	}
	defer dev.Close()

	fsys, err := fs.New(dev, cacheOptions(c), logger.Default(), nil)
	if err != nil {
		return err
	}
	defer fsys.Shutdown()

	p := fsys.NewProcess()
	defer fsys.CloseProcess(p)

	dirs, files := 0, 0
	if err := walk(fsys, p, "/", &dirs, &files); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	logger.Infof("verify %s: ok, %d directories, %d files", devicePath, dirs, files)
	return nil
}

func walk(fsys *fs.FileSystem, p *fs.Process, dirPath string, dirs, files *int) error {
	*dirs++

	fd, err := fsys.Open(p, dirPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dirPath, err)
	}
	isDir, err := fsys.IsDir(p, fd)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dirPath, err)
	}
	if !isDir {
		return fmt.Errorf("%s: expected directory", dirPath)
	}

	var children []string
	for {
		name, ok, err := fsys.Readdir(p, fd)
		if err != nil {
			_ = fsys.Close(p, fd)
			return fmt.Errorf("readdir %s: %w", dirPath, err)
		}
		if !ok {
			break
		}
		children = append(children, name)
	}
	if err := fsys.Close(p, fd); err != nil {
		return fmt.Errorf("close %s: %w", dirPath, err)
	}

	for _, name := range children {
		childPath := path.Join(dirPath, name)
		if err := visit(fsys, p, childPath, dirs, files); err != nil {
			return err
		}
	}
	return nil
}

func visit(fsys *fs.FileSystem, p *fs.Process, childPath string, dirs, files *int) error {
	fd, err := fsys.Open(p, childPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", childPath, err)
	}

	isDir, err := fsys.IsDir(p, fd)
	if err != nil {
		_ = fsys.Close(p, fd)
		return fmt.Errorf("stat %s: %w", childPath, err)
	}
	if err := fsys.Close(p, fd); err != nil {
		return fmt.Errorf("close %s: %w", childPath, err)
	}

	if isDir {
		return walk(fsys, p, childPath, dirs, files)
	}
	return verifyFile(fsys, p, childPath, files)
}

func verifyFile(fsys *fs.FileSystem, p *fs.Process, filePath string, files *int) error {
	*files++

	fd, err := fsys.Open(p, filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer fsys.Close(p, fd)

	size, err := fsys.Filesize(p, fd)
	if err != nil {
		return fmt.Errorf("filesize %s: %w", filePath, err)
	}

	var read uint32
	buf := make([]byte, 4096)
	for read < size {
		n, err := fsys.Read(p, fd, buf)
		if err != nil {
			return fmt.Errorf("read %s at %d: %w", filePath, read, err)
		}
		if n == 0 {
			return fmt.Errorf("%s: read stalled at %d of %d declared bytes", filePath, read, size)
		}
		read += uint32(n)
	}
	return nil
}
