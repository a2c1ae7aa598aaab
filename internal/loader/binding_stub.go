//go:build !native || !(linux || darwin)

package loader

// This file provides the cgo-free binding compiled when the 'native' build tag
// is not set. It never loads anything, so the loader ends in Failed with a
// clear message instead of pretending a library is present.

const nativeBuilt = false

type stubBinding struct{ cfg BindingConfig }

// NewNativeBinding returns a Binding that reports native support as missing.
func NewNativeBinding(cfg BindingConfig) Binding {
	return stubBinding{cfg: cfg.withDefaults()}
}

func (stubBinding) LoadNative(dir string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Message: "native support not built (missing 'native' build tag)"}
}

func (stubBinding) LoadBundled() Outcome {
	return Outcome{Kind: OutcomeFailed, Message: "native support not built (missing 'native' build tag)"}
}

func (stubBinding) Version() string { return "" }
func (stubBinding) GPU() *bool      { return nil }
