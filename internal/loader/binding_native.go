//go:build native && (linux || darwin)

package loader

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef const char* (*version_fn)(void);

static const char* call_version(void* fn) {
	return ((version_fn)fn)();
}
*/
import "C"

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"unsafe"
)

// nativeBuilt indicates this binary can load the engine in-process.
const nativeBuilt = true

type dlBinding struct {
	cfg BindingConfig

	mu      sync.Mutex
	handle  unsafe.Pointer
	version string
	gpu     *bool
}

// NewNativeBinding returns a Binding that opens libraries with dlopen.
func NewNativeBinding(cfg BindingConfig) Binding {
	return &dlBinding{cfg: cfg.withDefaults()}
}

func (b *dlBinding) LoadNative(dir string) Outcome {
	path := filepath.Join(dir, b.cfg.NativeName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Outcome{Kind: OutcomeNotFound, Message: path + " not found"}
	}
	if msg, ok := b.open(path); !ok {
		return Outcome{Kind: OutcomeLinkError, Message: msg}
	}
	return Outcome{Kind: OutcomeLoaded}
}

func (b *dlBinding) LoadBundled() Outcome {
	if msg, ok := b.open(b.cfg.BundledName); !ok {
		return Outcome{Kind: OutcomeFailed, Message: msg}
	}
	b.mu.Lock()
	b.gpu = b.cfg.BundledGPU
	b.mu.Unlock()
	return Outcome{Kind: OutcomeLoaded}
}

func (b *dlBinding) open(name string) (string, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	h := C.dlopen(cname, C.RTLD_NOW|C.RTLD_GLOBAL)
	if h == nil {
		return C.GoString(C.dlerror()), false
	}
	sym := C.CString("TF_Version")
	defer C.free(unsafe.Pointer(sym))
	fn := C.dlsym(h, sym)
	if fn == nil {
		msg := C.GoString(C.dlerror())
		C.dlclose(h)
		return msg, false
	}
	b.mu.Lock()
	b.handle = h
	b.version = C.GoString(C.call_version(fn))
	b.mu.Unlock()
	return "", true
}

func (b *dlBinding) Version() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (b *dlBinding) GPU() *bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gpu
}
