package cache

import "errors"

var (
	// ErrResourceNotFound indicates a missing file inside an installation or an
	// unreachable source archive.
	ErrResourceNotFound = errors.New("cache: resource not found")

	// ErrInvalidName indicates a model name or resource path that is not a
	// plain relative path.
	ErrInvalidName = errors.New("cache: invalid name")
)

// IsResourceNotFound reports whether err means the requested resource is missing.
func IsResourceNotFound(err error) bool { return errors.Is(err, ErrResourceNotFound) }
