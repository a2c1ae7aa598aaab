package e2e

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	"engined/internal/cache"
	"engined/internal/fetch"
	"engined/internal/host"
	"engined/internal/httpapi"
	"engined/internal/install"
	"engined/internal/layout"
	"engined/internal/loader"
	"engined/internal/status"
	"engined/internal/version"
)

// dirBinding loads a native library when libtensorflow_jni.so exists in the
// directory, and always loads the bundled one.
type dirBinding struct {
	// crash simulates a load that never returns by panicking while the marker is set.
	crash bool
}

func (b dirBinding) LoadNative(dir string) loader.Outcome {
	if _, err := os.Stat(filepath.Join(dir, "libtensorflow_jni.so")); err != nil {
		return loader.Outcome{Kind: loader.OutcomeNotFound, Message: err.Error()}
	}
	if b.crash {
		panic(errCrash)
	}
	return loader.Outcome{Kind: loader.OutcomeLoaded}
}

func (dirBinding) LoadBundled() loader.Outcome { return loader.Outcome{Kind: loader.OutcomeLoaded} }
func (dirBinding) Version() string             { return "" }
func (dirBinding) GPU() *bool                  { return nil }

var errCrash = errors.New("simulated crash")

// process is one start of the service over a persistent root directory.
type process struct {
	layout layout.Layout
	loader *loader.Loader
	host   *host.Host
	srv    *httptest.Server
}

func start(t *testing.T, root string, b loader.Binding) *process {
	t.Helper()
	l := layout.New(root, version.Linux64)
	log := zerolog.New(io.Discard)
	mem := status.NewMemorySink(32)
	f := fetch.New(fetch.WithBackoff(time.Millisecond))
	inst := install.New(l, f, install.WithSink(mem))
	if _, err := inst.ApplyStaged(); err != nil {
		t.Fatalf("apply staged: %v", err)
	}
	ld := loader.New(loader.Config{
		Layout:  l,
		Binding: b,
		Bundled: version.Variant{Version: "1.15.0", GPU: version.Bool(false)},
		Sink:    mem,
		Logger:  log,
	})
	c, err := cache.New(l.ModelsDir(), f, cache.WithSink(mem))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	h := host.New(host.Deps{Layout: l, Loader: ld, Cache: c, Installer: inst, Progress: mem, Logger: log})
	srv := httptest.NewServer(httpapi.NewMux(h))
	t.Cleanup(srv.Close)
	return &process{layout: l, loader: ld, host: h, srv: srv}
}

func httpGet(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func httpPostJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

// jniArchive is a library archive shaped like the published linux builds.
func jniArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	add := func(h *tar.Header, body string) {
		if err := tw.WriteHeader(h); err != nil {
			t.Fatalf("tar: %v", err)
		}
		_, _ = tw.Write([]byte(body))
	}
	add(&tar.Header{Name: "./libtensorflow_framework.so.1.14.0", Typeflag: tar.TypeReg, Mode: 0o755, Size: 2}, "fw")
	add(&tar.Header{Name: "./libtensorflow_framework.so.1", Typeflag: tar.TypeSymlink, Linkname: "libtensorflow_framework.so.1.14.0"}, "")
	add(&tar.Header{Name: "./libtensorflow_jni.so", Typeflag: tar.TypeReg, Mode: 0o755, Size: 3}, "jni")
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// placeDownload puts data where a previous download of v would have left it.
func placeDownload(t *testing.T, l layout.Layout, v version.Variant, data []byte) {
	t.Helper()
	if err := os.MkdirAll(l.DownloadsDir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(l.DownloadsDir(), fetch.Basename(v.URL)), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func modelZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		_, _ = w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
