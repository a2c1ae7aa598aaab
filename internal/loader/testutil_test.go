package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"engined/internal/layout"
	"engined/internal/version"
)

// fakeBinding returns scripted outcomes and counts calls.
type fakeBinding struct {
	mu       sync.Mutex
	native   Outcome
	bundled  Outcome
	version  string
	gpu      *bool
	nativeN  int
	bundledN int
	// onNative runs inside LoadNative, while the crash marker should be present.
	onNative func()
}

func (f *fakeBinding) LoadNative(dir string) Outcome {
	f.mu.Lock()
	f.nativeN++
	hook := f.onNative
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.native
}

func (f *fakeBinding) LoadBundled() Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundledN++
	return f.bundled
}

func (f *fakeBinding) Version() string { return f.version }
func (f *fakeBinding) GPU() *bool      { return f.gpu }

func (f *fakeBinding) calls() (native, bundled int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nativeN, f.bundledN
}

func newLayout(t *testing.T) layout.Layout {
	t.Helper()
	l := layout.New(t.TempDir(), version.Linux64)
	if err := os.MkdirAll(l.LibDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return l
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func newLoader(l layout.Layout, b Binding) *Loader {
	return New(Config{
		Layout:  l,
		Binding: b,
		Bundled: version.Variant{Version: "1.15.0", GPU: version.Bool(false)},
	})
}

func libFile(l layout.Layout, name string) string { return filepath.Join(l.LibDir(), name) }
