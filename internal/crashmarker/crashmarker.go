// Package crashmarker persists a marker around native library loads so that a
// load that kills the process can be detected on the next start.
package crashmarker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Protocol brackets a load attempt. MarkAttemptStart must be durable before
// the attempt begins; MarkAttemptSucceeded runs once the attempt returned,
// whatever its result.
type Protocol interface {
	MarkAttemptStart() error
	MarkAttemptSucceeded() error
	WasPreviousAttemptUnclean() bool
}

// File implements Protocol with a zero-byte file.
type File struct {
	Path string
}

// NewFile returns a marker stored at path.
func NewFile(path string) *File { return &File{Path: path} }

func (f *File) MarkAttemptStart() error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("crash marker dir: %w", err)
	}
	fh, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("crash marker: %w", err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return fmt.Errorf("crash marker sync: %w", err)
	}
	return fh.Close()
}

func (f *File) MarkAttemptSucceeded() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("crash marker: %w", err)
	}
	return nil
}

func (f *File) WasPreviousAttemptUnclean() bool {
	_, err := os.Lstat(f.Path)
	return err == nil
}
