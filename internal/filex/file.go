// Package filex holds the filesystem helpers used by the frame stores:
// directory preparation and publication of a finished file by rename.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir resolves dir against the working directory when it is relative,
// creates it if needed and returns the absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// TempPath returns the in-progress path for a file that will be published
// as name inside dir. The leading dot keeps it out of frame listings.
func TempPath(dir, name string) string {
	return filepath.Join(dir, "."+name+".part")
}

// Publish atomically moves a finished temporary file to its final path.
// Both paths must be on the same filesystem.
func Publish(tmp, final string) error {
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(final), err)
	}
	return nil
}

// RemoveIfExists deletes path, treating an already missing file as success.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
