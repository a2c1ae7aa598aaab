package host

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"engined/internal/cache"
	"engined/internal/fetch"
	"engined/internal/install"
	"engined/internal/layout"
	"engined/internal/loader"
	"engined/internal/status"
	"engined/internal/version"
)

type stubBinding struct {
	native  loader.Outcome
	bundled loader.Outcome
}

func (b stubBinding) LoadNative(string) loader.Outcome { return b.native }
func (b stubBinding) LoadBundled() loader.Outcome      { return b.bundled }
func (stubBinding) Version() string                    { return "" }
func (stubBinding) GPU() *bool                         { return nil }

var bundledOnly = stubBinding{
	native:  loader.Outcome{Kind: loader.OutcomeNotFound, Message: "not found"},
	bundled: loader.Outcome{Kind: loader.OutcomeLoaded},
}

// offlineFetcher fails every request; tests pre-populate the downloads dir.
type offlineFetcher struct{}

func (offlineFetcher) Fetch(context.Context, string, io.Writer, fetch.ProgressFunc) (int64, error) {
	return 0, errors.New("offline")
}

func newTestHost(t *testing.T, b loader.Binding) (*Host, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir(), version.Linux64)
	mem := status.NewMemorySink(16)
	ld := loader.New(loader.Config{
		Layout:  l,
		Binding: b,
		Bundled: version.Variant{Version: "1.15.0", GPU: version.Bool(false)},
		Sink:    mem,
	})
	c, err := cache.New(l.ModelsDir(), offlineFetcher{})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	h := New(Deps{
		Layout:    l,
		Loader:    ld,
		Cache:     c,
		Installer: install.New(l, offlineFetcher{}, install.WithSink(mem)),
		Progress:  mem,
	})
	return h, l
}

// cacheArchive places a tar.gz for v where an earlier download would have left it.
func cacheArchive(t *testing.T, l layout.Layout, v version.Variant) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "./libtensorflow_jni.so", Typeflag: tar.TypeReg, Mode: 0o755, Size: 3}); err != nil {
		t.Fatalf("tar: %v", err)
	}
	_, _ = tw.Write([]byte("jni"))
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.MkdirAll(l.DownloadsDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(l.DownloadsDir(), fetch.Basename(v.URL))
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}
