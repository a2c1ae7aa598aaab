package install

import "errors"

var (
	// ErrUnsupportedArchive indicates a library archive that is neither zip nor tar.gz.
	ErrUnsupportedArchive = errors.New("install: unsupported archive")

	// ErrNoOrigin indicates a variant without URL or local path.
	ErrNoOrigin = errors.New("install: variant has no origin")
)
