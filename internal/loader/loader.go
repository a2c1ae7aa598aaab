// Package loader loads the inference engine library exactly once per process
// and remembers why it did or did not load.
//
// Loading native code can kill the process. A crash marker is written before
// each attempt and removed after it returns; a marker found at startup means
// the previous attempt never returned. If the version record written by an
// activation is also present, the crash is attributed to that downloaded
// library, which is removed before trying the bundled library. Without a
// record the bundled library crashed, and nothing is loaded at all.
package loader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"engined/internal/common/fsutil"
	"engined/internal/crashmarker"
	"engined/internal/layout"
	"engined/internal/status"
	"engined/internal/version"
)

// Config wires a Loader.
type Config struct {
	Layout  layout.Layout
	Binding Binding
	// Marker defaults to the crash marker file of Layout.
	Marker crashmarker.Protocol
	// Bundled describes the library shipped with the binary. Empty fields are
	// filled from the binding after a successful load.
	Bundled version.Variant
	Sink    status.Sink
	Logger  zerolog.Logger
}

// Loader is safe for concurrent use.
type Loader struct {
	layout  layout.Layout
	binding Binding
	marker  crashmarker.Protocol
	bundled version.Variant
	sink    status.Sink
	log     zerolog.Logger

	mu     sync.Mutex
	status Status
	loaded *version.Variant
}

// New returns a Loader in the NotAttempted state.
func New(cfg Config) *Loader {
	m := cfg.Marker
	if m == nil {
		m = crashmarker.NewFile(cfg.Layout.CrashMarker())
	}
	b := cfg.Binding
	if b == nil {
		b = NewNativeBinding(BindingConfig{})
	}
	bundled := cfg.Bundled
	bundled.Platform = cfg.Layout.Platform
	if bundled.URL == "" {
		bundled.URL = version.BundledScheme + DefaultBundledName()
	}
	return &Loader{
		layout:  cfg.Layout,
		binding: b,
		marker:  m,
		bundled: bundled,
		sink:    status.OrNop(cfg.Sink),
		log:     cfg.Logger,
	}
}

// Status returns the current status.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// LoadedVersion returns the variant that is loaded in the process, if any.
func (l *Loader) LoadedVersion() (version.Variant, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded == nil {
		return version.Variant{}, false
	}
	return *l.loaded, true
}

// Bundled describes the library shipped with the binary.
func (l *Loader) Bundled() version.Variant { return l.bundled }

// LoadLibrary runs the load sequence on the first call and returns the
// resulting status on every call. Concurrent callers wait for the first.
func (l *Loader) LoadLibrary() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.TriedLoading() {
		return l.status
	}
	l.log.Debug().Bool("native_built", nativeBuilt).Str("lib_dir", l.layout.LibDir()).Msg("loading library")

	if l.marker.WasPreviousAttemptUnclean() {
		l.recoverFromCrash()
		return l.status
	}

	l.attempt(func() {
		out := l.binding.LoadNative(l.layout.LibDir())
		switch out.Kind {
		case OutcomeLoaded:
			v := l.nativeVariant()
			l.loaded = &v
			l.set(Loaded, "native: "+v.String())
		case OutcomeNotFound:
			l.log.Debug().Str("reason", out.Message).Msg("no native library, trying bundled")
			l.loadBundled(false)
		default:
			l.set(Failed, "native: "+out.Message)
		}
	})
	if !l.status.TriedLoading() {
		l.set(Failed, "no library found")
	}
	return l.status
}

func (l *Loader) recoverFromCrash() {
	rec, ok, err := version.ReadRecord(l.layout.VersionRecord())
	if err != nil {
		l.log.Warn().Err(err).Msg("unreadable version record")
	}
	if !ok {
		l.set(Crashed, fmt.Sprintf("bundled: %s crashed the process during the last load. "+
			"It will not be loaded again; activate a different version and restart.", l.bundledVariant()))
		return
	}
	if err != nil {
		rec = version.Unknown("").WithPlatform(l.layout.Platform)
	}
	removed, rmErr := fsutil.RemoveMatching(l.layout.LibDir(), func(name string) bool {
		return strings.Contains(strings.ToLower(name), "tensorflow")
	})
	for _, p := range removed {
		l.log.Info().Str("path", p).Msg("deleted native library file")
	}
	if rmErr != nil {
		l.log.Error().Err(rmErr).Msg("removing native libraries")
	}
	l.set(Crashed, fmt.Sprintf("native: %s crashed the process during the last load and was removed", rec))
	l.attempt(func() { l.loadBundled(true) })
}

// attempt brackets fn with the crash marker.
func (l *Loader) attempt(fn func()) {
	if err := l.marker.MarkAttemptStart(); err != nil {
		l.log.Error().Err(err).Msg("cannot write crash marker; a crash will not be detected")
	}
	fn()
	if err := l.marker.MarkAttemptSucceeded(); err != nil {
		l.log.Error().Err(err).Msg("cannot clear crash marker")
	}
}

// loadBundled tries the bundled library. After a native crash the Crashed
// status is kept and the outcome is appended to its info.
func (l *Loader) loadBundled(afterCrash bool) {
	out := l.binding.LoadBundled()
	if out.Kind == OutcomeLoaded {
		v := l.bundledVariant()
		l.loaded = &v
		if afterCrash {
			l.amend("bundled: " + v.String() + " loaded")
			return
		}
		l.set(Loaded, "bundled: "+v.String())
		return
	}
	if afterCrash {
		l.amend("bundled: " + out.Message)
		return
	}
	l.set(Failed, "bundled: "+out.Message)
}

func (l *Loader) nativeVariant() version.Variant {
	rec, ok, err := version.ReadRecord(l.layout.VersionRecord())
	if ok && err == nil {
		return rec
	}
	if err != nil {
		l.log.Warn().Err(err).Msg("malformed version record, reporting unknown version")
	}
	v := version.Unknown(l.binding.Version())
	v.GPU = l.binding.GPU()
	return v.WithPlatform(l.layout.Platform).WithLocalPath(l.layout.LibDir())
}

func (l *Loader) bundledVariant() version.Variant {
	v := l.bundled
	if v.Version == "" {
		v.Version = l.binding.Version()
	}
	if v.Version == "" {
		v.Version = "?"
	}
	if v.GPU == nil {
		v.GPU = l.binding.GPU()
	}
	return v
}

func (l *Loader) set(k Kind, info string) {
	l.status = Status{Kind: k, Info: info}
	l.publish()
}

func (l *Loader) amend(info string) {
	l.status.Info += "; " + info
	l.publish()
}

func (l *Loader) publish() {
	ev := l.log.Info()
	if l.status.Kind != Loaded {
		ev = l.log.Warn()
	}
	ev.Str("status", l.status.Kind.String()).Msg(l.status.Info)
	l.sink.Status("Library " + l.status.String())
	publishStatus(l.status.Kind)
}
