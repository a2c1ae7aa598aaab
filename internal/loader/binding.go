package loader

import "runtime"

// OutcomeKind classifies one load attempt.
type OutcomeKind int

const (
	OutcomeLoaded OutcomeKind = iota
	// OutcomeNotFound means no library exists at the location; the caller may fall back.
	OutcomeNotFound
	// OutcomeLinkError means the library exists but cannot be linked. It is terminal.
	OutcomeLinkError
	// OutcomeFailed is any other failure.
	OutcomeFailed
)

// Outcome is the result of a load attempt.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// Binding loads the inference engine into the process. A call may terminate
// the process without returning.
type Binding interface {
	// LoadNative loads the library from dir.
	LoadNative(dir string) Outcome
	// LoadBundled loads the library shipped with the binary from the default search path.
	LoadBundled() Outcome
	// Version reports the version of the loaded library, "" if unknown.
	Version() string
	// GPU reports whether the loaded library supports GPUs, nil if unknown.
	GPU() *bool
}

// BindingConfig names the libraries a native binding opens.
type BindingConfig struct {
	NativeName  string
	BundledName string
	BundledGPU  *bool
}

// DefaultNativeName is the file name of the downloaded library for the running OS.
func DefaultNativeName() string {
	switch runtime.GOOS {
	case "windows":
		return "tensorflow_jni.dll"
	case "darwin":
		return "libtensorflow_jni.dylib"
	default:
		return "libtensorflow_jni.so"
	}
}

// DefaultBundledName is the library looked up on the default search path.
func DefaultBundledName() string {
	switch runtime.GOOS {
	case "windows":
		return "tensorflow.dll"
	case "darwin":
		return "libtensorflow.dylib"
	default:
		return "libtensorflow.so"
	}
}

func (c BindingConfig) withDefaults() BindingConfig {
	if c.NativeName == "" {
		c.NativeName = DefaultNativeName()
	}
	if c.BundledName == "" {
		c.BundledName = DefaultBundledName()
	}
	return c
}
