package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchHTTP(t *testing.T) {
	body := strings.Repeat("a", 200_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	var last int64
	n, err := New().Fetch(context.Background(), srv.URL+"/model.zip", &buf, func(done, _ int64) { last = done })
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n != int64(len(body)) || buf.String() != body || last != n {
		t.Fatalf("n=%d last=%d len=%d", n, last, buf.Len())
	}
}

func TestFetchHTTPNotFoundIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()
	_, err := New(WithBackoff(time.Millisecond)).Fetch(context.Background(), srv.URL, &bytes.Buffer{}, nil)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("404 retried %d times", n)
	}
}

func TestFetchHTTPRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	var buf bytes.Buffer
	if _, err := New(WithBackoff(time.Millisecond)).Fetch(context.Background(), srv.URL, &buf, nil); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := atomic.LoadInt32(&hits); buf.String() != "ok" || n != 3 {
		t.Fatalf("body=%q hits=%d", buf.String(), n)
	}

	atomic.StoreInt32(&hits, -10)
	_, err := New(WithRetries(2), WithBackoff(time.Millisecond)).Fetch(context.Background(), srv.URL, &bytes.Buffer{}, nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Fetch(ctx, srv.URL, &bytes.Buffer{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "labels.txt")
	if err := os.WriteFile(p, []byte("cat"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, loc := range []string{p, "file://" + filepath.ToSlash(p)} {
		var buf bytes.Buffer
		if _, err := New().Fetch(context.Background(), loc, &buf, nil); err != nil {
			t.Fatalf("%s: %v", loc, err)
		}
		if buf.String() != "cat" {
			t.Fatalf("%s: got %q", loc, buf.String())
		}
	}
	if _, err := New().Fetch(context.Background(), filepath.Join(dir, "missing"), &bytes.Buffer{}, nil); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"https://storage.googleapis.com/tensorflow/libtensorflow/libtensorflow_jni-cpu-linux-x86_64-1.15.0.tar.gz": "libtensorflow_jni-cpu-linux-x86_64-1.15.0.tar.gz",
		"file:///opt/archives/model.zip": "model.zip",
		"/tmp/x/model.zip":               "model.zip",
	}
	for in, want := range cases {
		if got := Basename(in); got != want {
			t.Fatalf("%s: got %q want %q", in, got, want)
		}
	}
}
