// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile writes files so that a concurrent reader observes
// either the previous complete content or the new complete content,
// never a partial file, and the content survives a crash once the
// write returns.
package atomicfile

import (
	"os"
	"path/filepath"
)

// WriteFile writes content to path via a temp file in the same
// directory followed by a rename, with fsync of both the file and the
// parent directory.
func WriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	parent, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer parent.Close()
	return parent.Sync()
}
