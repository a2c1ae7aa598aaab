package unpack

import (
	"errors"
	"fmt"
)

var (
	// ErrArchive marks archives that cannot be read or extracted.
	ErrArchive = errors.New("archive error")
	// ErrPathTraversal marks entries that would be written outside the destination.
	ErrPathTraversal = errors.New("archive entry escapes destination")
)

// PathTraversalError names the offending entry.
type PathTraversalError struct {
	Entry string
	Base  string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("%s: %q outside %s", ErrPathTraversal, e.Entry, e.Base)
}

func (e *PathTraversalError) Unwrap() error { return ErrPathTraversal }

// IsPathTraversal reports whether err was caused by a traversing entry.
func IsPathTraversal(err error) bool { return errors.Is(err, ErrPathTraversal) }

func archiveErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrArchive, err))
}
