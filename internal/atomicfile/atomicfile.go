// Package atomicfile writes files atomically: temp file in the target
// directory, fsync, then rename. A crash mid-write can never leave an
// empty or partial document at the final path. Leaf package shared by
// the auth and metastore persistence layers.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirPerms is used when creating parent directories.
const DirPerms = 0o700

// WriteFile writes data to path atomically with the given permissions,
// creating parent directories as needed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("atomicfile: creating directory %s: %w", dir, err)
	}

	// Temp file in the same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".write-*.tmp")
	if err != nil {
		return fmt.Errorf("atomicfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, perm); err != nil {
		tmp.Close()
		return fmt.Errorf("atomicfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("atomicfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("atomicfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomicfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomicfile: renaming: %w", err)
	}

	success = true

	return nil
}
