package version

import "errors"

// ErrMalformedRecord is returned when a version record does not have 3 or 5 fields.
var ErrMalformedRecord = errors.New("malformed version record")
