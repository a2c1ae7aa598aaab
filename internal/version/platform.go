package version

import "runtime"

// Platform names used in the on-disk layout and the registry.
const (
	Linux64 = "linux64"
	Linux32 = "linux32"
	Win64   = "win64"
	Win32   = "win32"
	MacOSX  = "macosx"
)

// Current returns the platform name of the running binary.
func Current() string {
	return platformOf(runtime.GOOS, runtime.GOARCH)
}

func platformOf(goos, goarch string) string {
	bits := "64"
	switch goarch {
	case "386", "arm", "mips", "mipsle":
		bits = "32"
	}
	switch goos {
	case "windows":
		return "win" + bits
	case "darwin":
		return MacOSX
	default:
		return goos + bits
	}
}
