package host

import "errors"

// versionNotFoundError signals an activation request for a variant that is
// not offered on this platform.
type versionNotFoundError struct{ version, mode string }

func (e versionNotFoundError) Error() string {
	if e.mode == "" {
		return "version not found: " + e.version
	}
	return "version not found: " + e.version + " " + e.mode
}

// ErrVersionNotFound returns an error for an unknown version and mode.
func ErrVersionNotFound(version, mode string) error {
	return versionNotFoundError{version: version, mode: mode}
}

// IsVersionNotFound reports whether err indicates an unknown variant.
func IsVersionNotFound(err error) bool {
	var e versionNotFoundError
	return errors.As(err, &e)
}

// badRequestError signals a malformed request so the HTTP layer can return 400.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

// IsBadRequest reports whether err was caused by invalid input.
func IsBadRequest(err error) bool {
	var e badRequestError
	return errors.As(err, &e)
}
