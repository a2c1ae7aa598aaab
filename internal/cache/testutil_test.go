package cache

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"google.golang.org/protobuf/encoding/protowire"

	"engined/internal/fetch"
)

// fakeFetcher serves archives from memory and counts calls per location.
type fakeFetcher struct {
	mu      sync.Mutex
	data    map[string][]byte
	calls   map[string]int
	total   atomic.Int32
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{data: map[string][]byte{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string, w io.Writer, progress fetch.ProgressFunc) (int64, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[location]++
	data, ok := f.data[location]
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if !ok {
		return 0, fetch.ErrNotFound
	}
	n, err := io.Copy(w, bytes.NewReader(data))
	if progress != nil {
		progress(n, int64(len(data)))
	}
	return n, err
}

func (f *fakeFetcher) count(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

func zipOf(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		_, _ = w.Write(body)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// tarEntry is a regular file unless link is set, in which case it is a symlink.
type tarEntry struct {
	name string
	body string
	link string
}

func tarGzOf(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		h := &tar.Header{Name: e.name, Mode: 0o644, Typeflag: tar.TypeReg, Size: int64(len(e.body))}
		if e.link != "" {
			h = &tar.Header{Name: e.name, Mode: 0o777, Typeflag: tar.TypeSymlink, Linkname: e.link}
		}
		if err := tw.WriteHeader(h); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if e.link == "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("tar write: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func graphDef(nodes ...string) []byte {
	var b []byte
	for _, n := range nodes {
		var node []byte
		node = protowire.AppendTag(node, 1, protowire.BytesType)
		node = protowire.AppendString(node, n)
		node = protowire.AppendTag(node, 2, protowire.BytesType)
		node = protowire.AppendString(node, "Const")
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, node)
	}
	return b
}

func savedModel(tags ...string) []byte {
	var info []byte
	for _, t := range tags {
		info = protowire.AppendTag(info, 4, protowire.BytesType)
		info = protowire.AppendString(info, t)
	}
	var meta []byte
	meta = protowire.AppendTag(meta, 1, protowire.BytesType)
	meta = protowire.AppendBytes(meta, info)
	meta = protowire.AppendTag(meta, 2, protowire.BytesType)
	meta = protowire.AppendBytes(meta, graphDef("serving_default"))
	var b []byte
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendBytes(b, meta)
}

const modelURL = "https://example.invalid/models/inception.zip"

func inceptionArchive(t *testing.T) []byte {
	return zipOf(t, map[string][]byte{
		"graph.pb":       graphDef("input", "output"),
		"labels.txt":     []byte("background\ncat\ndog\n"),
		"saved_model.pb": savedModel("serve"),
		"extra/notes":    []byte("n"),
	})
}

func newTestCache(t *testing.T) (*Cache, *fakeFetcher) {
	t.Helper()
	f := newFakeFetcher()
	f.data[modelURL] = inceptionArchive(t)
	c, err := New(t.TempDir(), f)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c, f
}
