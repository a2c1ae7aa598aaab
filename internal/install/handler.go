// Package install stages library variants for the next start of the process.
//
// Activation downloads the variant's archive into <root>/downloads, unpacks it
// into <root>/update/lib/<platform> together with its version record, and
// clears the crash marker. The loaded library is never touched; ApplyStaged
// promotes the staged files before the next load.
package install

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"engined/internal/common/fsutil"
	"engined/internal/crashmarker"
	"engined/internal/fetch"
	"engined/internal/layout"
	"engined/internal/status"
	"engined/internal/unpack"
	"engined/internal/version"
)

// Handler serializes activations.
type Handler struct {
	layout  layout.Layout
	fetcher fetch.Fetcher
	sink    status.Sink
	log     zerolog.Logger

	mu sync.Mutex
}

// Option configures a Handler.
type Option func(*Handler)

func WithSink(s status.Sink) Option { return func(h *Handler) { h.sink = status.OrNop(s) } }

func WithLogger(l zerolog.Logger) Option { return func(h *Handler) { h.log = l } }

// New returns a Handler for the given layout.
func New(l layout.Layout, f fetch.Fetcher, opts ...Option) *Handler {
	h := &Handler{layout: l, fetcher: f, sink: status.Nop(), log: zerolog.Nop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// UpdateCacheStatus sets LocalPath when the variant's archive is available
// locally: file URLs and the bundled library always are, downloads once
// <root>/downloads/<name> exists.
func (h *Handler) UpdateCacheStatus(v version.Variant) version.Variant {
	if v.URL == "" {
		return v
	}
	if strings.HasPrefix(v.URL, version.BundledScheme) {
		return v.WithLocalPath(v.URL)
	}
	if u, err := url.Parse(v.URL); err == nil && strings.EqualFold(u.Scheme, "file") {
		return v.WithLocalPath(filepath.FromSlash(u.Path))
	}
	p := filepath.Join(h.layout.DownloadsDir(), fetch.Basename(v.URL))
	if fsutil.PathExists(p) {
		return v.WithLocalPath(p)
	}
	v.LocalPath = ""
	return v
}

// ActivateVersion stages v for the next start. Cancelling ctx during the
// download leaves no partial file behind.
func (h *Handler) ActivateVersion(ctx context.Context, v version.Variant) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.sink.Clear()

	if v.Platform == "" {
		v.Platform = h.layout.Platform
	}
	v = h.UpdateCacheStatus(v)
	log := h.log.With().Str("variant", v.String()).Logger()
	log.Info().Msg("activating version")

	if v.IsBundled() {
		if err := h.useBundled(); err != nil {
			return err
		}
		log.Info().Msg("using bundled library from the next start")
		return h.clearMarker()
	}
	if v.LocalPath == "" {
		if v.URL == "" {
			return ErrNoOrigin
		}
		p, err := h.download(ctx, v.URL)
		if err != nil {
			return err
		}
		v.LocalPath = p
	}
	if err := h.stage(v); err != nil {
		return err
	}
	log.Info().Str("staged", h.layout.UpdateLibDir()).Msg("version staged, restart to apply")
	return h.clearMarker()
}

func (h *Handler) download(ctx context.Context, rawURL string) (string, error) {
	dir := h.layout.DownloadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("downloads dir: %w", err)
	}
	name := fetch.Basename(rawURL)
	final := filepath.Join(dir, name)
	tmp := filepath.Join(dir, "."+name+".part-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	h.log.Info().Str("url", rawURL).Str("path", final).Msg("downloading")
	label := "Downloading " + name
	_, err = h.fetcher.Fetch(ctx, rawURL, f, func(done, total int64) {
		h.sink.Progress(done, total, status.Bytes(label, done, total))
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return final, nil
}

func (h *Handler) stage(v version.Variant) error {
	dest := h.layout.UpdateLibDir()
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	opts := unpack.Options{
		Log: h.log,
		Progress: func(done, size int64, msg string) {
			h.sink.Progress(done, size, msg)
		},
	}
	lower := strings.ToLower(v.LocalPath)
	var err error
	switch {
	case strings.HasSuffix(lower, ".zip"):
		err = unpack.ZipFile(v.LocalPath, dest, opts)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		// links point at the live directory the files are moved to on restart
		opts.LinkBase = h.layout.LibDir()
		err = unpack.TarGzFile(v.LocalPath, dest, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedArchive, v.LocalPath)
	}
	if err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("unpack %s: %w", v.LocalPath, err)
	}
	return version.WriteRecord(filepath.Join(dest, layout.VersionRecordName), v)
}

// useBundled removes downloaded libraries and anything staged.
func (h *Handler) useBundled() error {
	removed, err := removeNativeLibraries(h.layout.LibDir())
	for _, p := range removed {
		h.log.Info().Str("path", p).Msg("deleted native library file")
	}
	if err != nil {
		return err
	}
	if err := os.RemoveAll(h.layout.UpdateLibDir()); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	return nil
}

func (h *Handler) clearMarker() error {
	return crashmarker.NewFile(h.layout.CrashMarker()).MarkAttemptSucceeded()
}

// ApplyStaged replaces the live library files with the staged ones. It must
// run before the library is loaded. It reports whether anything was staged.
func (h *Handler) ApplyStaged() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	staged := h.layout.UpdateLibDir()
	if !fsutil.DirExists(staged) {
		return false, nil
	}
	if _, err := removeNativeLibraries(h.layout.LibDir()); err != nil {
		return false, err
	}
	if err := fsutil.MoveTree(staged, h.layout.LibDir()); err != nil {
		return false, fmt.Errorf("apply staged version: %w", err)
	}
	h.log.Info().Str("lib_dir", h.layout.LibDir()).Msg("applied staged version")
	return true, nil
}

// Staged returns the variant waiting for the next start, if any.
func (h *Handler) Staged() (version.Variant, bool) {
	v, ok, err := version.ReadRecord(filepath.Join(h.layout.UpdateLibDir(), layout.VersionRecordName))
	if err != nil || !ok {
		return version.Variant{}, false
	}
	return v, true
}

func removeNativeLibraries(dir string) ([]string, error) {
	removed, err := fsutil.RemoveMatching(dir, func(name string) bool {
		return strings.Contains(strings.ToLower(name), "tensorflow")
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return removed, fmt.Errorf("remove native libraries: %w", err)
	}
	return removed, nil
}
