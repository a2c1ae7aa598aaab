package install

import (
	"archive/tar"
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"engined/internal/fetch"
	"engined/internal/layout"
	"engined/internal/version"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
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

// jniTarGz mimics the layout of the published linux archives.
func jniTarGz(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	write := func(h *tar.Header, body string) {
		if err := tw.WriteHeader(h); err != nil {
			t.Fatalf("tar: %v", err)
		}
		if body != "" {
			_, _ = tw.Write([]byte(body))
		}
	}
	write(&tar.Header{Name: "./libtensorflow_framework.so.1.15.0", Typeflag: tar.TypeReg, Mode: 0o755, Size: 2}, "fw")
	write(&tar.Header{Name: "./libtensorflow_framework.so.1", Typeflag: tar.TypeSymlink, Linkname: "libtensorflow_framework.so.1.15.0"}, "")
	write(&tar.Header{Name: "./libtensorflow_jni.so", Typeflag: tar.TypeReg, Mode: 0o755, Size: 3}, "jni")
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// archiveServer serves archives by path and counts requests.
func archiveServer(t *testing.T, files map[string][]byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		b, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, platform string) (*Handler, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir(), platform)
	return New(l, fetch.New(fetch.WithBackoff(time.Millisecond))), l
}

func gpuVariant(platform, url string) version.Variant {
	return version.GPUBuild(platform, "1.15.0", "10.1", ">= 7.5.1", url)
}
