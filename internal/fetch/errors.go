package fetch

import "errors"

var (
	// ErrNotFound indicates the source does not exist (HTTP 404 or a missing file).
	ErrNotFound = errors.New("fetch: not found")

	// ErrNetwork indicates a transport failure or an unexpected HTTP status.
	ErrNetwork = errors.New("fetch: network error")
)

// IsNotFound reports whether err means the source is missing.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
