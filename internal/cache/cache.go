// Package cache installs model archives under a models directory on first use
// and memoizes the artifacts parsed from them for the life of the process.
//
// An installation directory that exists is complete: archives are unpacked
// into a hidden staging directory and renamed into place. Concurrent requests
// for the same model share one download.
package cache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"engined/internal/common/fsutil"
	"engined/internal/fetch"
	"engined/internal/graph"
	"engined/internal/status"
	"engined/internal/unpack"
)

const partialMarker = ".partial-"

// Cache is safe for concurrent use.
type Cache struct {
	dir     string
	fetcher fetch.Fetcher
	sink    status.Sink
	log     zerolog.Logger

	installs singleflight.Group
	loads    singleflight.Group

	mu      sync.RWMutex
	graphs  map[string]*graph.Graph
	bundles map[string]*graph.Bundle
	labels  map[string][]string
}

// Option configures a Cache.
type Option func(*Cache)

// WithSink reports download and unpack progress to s. Callers should pass a
// throttled sink.
func WithSink(s status.Sink) Option { return func(c *Cache) { c.sink = status.OrNop(s) } }

func WithLogger(l zerolog.Logger) Option { return func(c *Cache) { c.log = l } }

// New creates dir if needed and removes staging directories left behind by
// interrupted installations.
func New(dir string, f fetch.Fetcher, opts ...Option) (*Cache, error) {
	c := &Cache{
		dir:     dir,
		fetcher: f,
		sink:    status.Nop(),
		log:     zerolog.Nop(),
		graphs:  map[string]*graph.Graph{},
		bundles: map[string]*graph.Bundle{},
		labels:  map[string][]string{},
	}
	for _, o := range opts {
		o(c)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("models dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("models dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), ".") && strings.Contains(e.Name(), partialMarker) {
			c.log.Warn().Str("dir", e.Name()).Msg("removing interrupted installation")
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return nil, fmt.Errorf("sweep %s: %w", e.Name(), err)
			}
		}
	}
	return c, nil
}

// Dir is the models directory.
func (c *Cache) Dir() string { return c.dir }

func validName(name string) error {
	if name == "" || !filepath.IsLocal(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// EnsureInstalled returns the installation directory of modelName, fetching
// and unpacking source first when the directory does not exist. Concurrent
// callers for the same model share the first caller's download and context.
func (c *Cache) EnsureInstalled(ctx context.Context, source, modelName string) (string, error) {
	if err := validName(modelName); err != nil {
		return "", err
	}
	dir := filepath.Join(c.dir, modelName)
	if fsutil.DirExists(dir) {
		observeLookup("install", true, nil)
		return dir, nil
	}
	_, err, _ := c.installs.Do(modelName, func() (any, error) {
		if fsutil.DirExists(dir) {
			return nil, nil
		}
		return nil, c.install(ctx, source, modelName, dir)
	})
	observeLookup("install", false, err)
	if err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Cache) install(ctx context.Context, source, modelName, dir string) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		installsTotal.WithLabelValues(result).Inc()
		c.sink.Clear()
	}()
	log := c.log.With().Str("model", modelName).Str("source", source).Logger()
	log.Info().Msg("installing model")

	var buf bytes.Buffer
	label := "Downloading " + modelName
	n, err := c.fetcher.Fetch(ctx, source, &buf, func(done, total int64) {
		c.sink.Progress(done, total, status.Bytes(label, done, total))
	})
	fetchBytesTotal.Add(float64(n))
	if err != nil {
		if fetch.IsNotFound(err) {
			return fmt.Errorf("install %s: %w", modelName, errors.Join(ErrResourceNotFound, err))
		}
		return fmt.Errorf("install %s: %w", modelName, err)
	}
	data := buf.Bytes()
	kind := unpack.DetectKind(fetch.Basename(source), data)

	staging := filepath.Join(c.dir, "."+modelName+partialMarker+uuid.NewString())
	// links in the archive must point into the final directory, not the staging one
	opts := unpack.Options{
		Log:      log,
		LinkBase: dir,
		Progress: func(done, size int64, msg string) {
			c.sink.Progress(done, size, msg)
		},
	}
	if err := unpack.Bytes(kind, data, staging, opts); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("install %s: %w", modelName, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		_ = os.RemoveAll(staging)
		if fsutil.DirExists(dir) {
			// installed concurrently by another process
			return nil
		}
		return fmt.Errorf("install %s: %w", modelName, err)
	}
	log.Info().Int64("bytes", n).Str("kind", kind.String()).Msg("model installed")
	return nil
}

// resolve returns the path of rel inside the installation of modelName.
func (c *Cache) resolve(ctx context.Context, source, modelName, rel string) (string, error) {
	dir, err := c.EnsureInstalled(ctx, source, modelName)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, rel)
	}
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrResourceNotFound, modelName, rel)
		}
		return "", err
	}
	return p, nil
}

// LoadFile returns the path of a file inside the model installation.
func (c *Cache) LoadFile(ctx context.Context, source, modelName, filePath string) (string, error) {
	p, err := c.resolve(ctx, source, modelName, filePath)
	observeLookup("file", false, err)
	return p, err
}

// LoadGraph returns the parsed GraphDef at graphPath inside the installation.
func (c *Cache) LoadGraph(ctx context.Context, source, modelName, graphPath string) (*graph.Graph, error) {
	key := modelName + "/" + graphPath
	c.mu.RLock()
	g, ok := c.graphs[key]
	c.mu.RUnlock()
	if ok && !g.Closed() {
		observeLookup("graph", true, nil)
		return g, nil
	}
	v, err, _ := c.loads.Do("graph\x00"+key, func() (any, error) {
		c.mu.RLock()
		g, ok := c.graphs[key]
		c.mu.RUnlock()
		if ok && !g.Closed() {
			return g, nil
		}
		p, err := c.resolve(ctx, source, modelName, graphPath)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		g, err = graph.ParseGraphDef(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		c.mu.Lock()
		c.graphs[key] = g
		c.mu.Unlock()
		return g, nil
	})
	observeLookup("graph", false, err)
	if err != nil {
		return nil, err
	}
	return v.(*graph.Graph), nil
}

// BundleKey is the memo key of a bundle: model/[tag1, tag2].
func BundleKey(modelName string, tags []string) string {
	return modelName + "/[" + strings.Join(tags, ", ") + "]"
}

// LoadBundle returns the SavedModel meta graph tagged with tags. A bundle the
// caller has closed is loaded again.
func (c *Cache) LoadBundle(ctx context.Context, source, modelName string, tags ...string) (*graph.Bundle, error) {
	key := BundleKey(modelName, tags)
	c.mu.RLock()
	b, ok := c.bundles[key]
	c.mu.RUnlock()
	if ok && !b.Closed() {
		observeLookup("bundle", true, nil)
		return b, nil
	}
	v, err, _ := c.loads.Do("bundle\x00"+key, func() (any, error) {
		c.mu.RLock()
		b, ok := c.bundles[key]
		c.mu.RUnlock()
		if ok && !b.Closed() {
			return b, nil
		}
		dir, err := c.EnsureInstalled(ctx, source, modelName)
		if err != nil {
			return nil, err
		}
		b, err = graph.LoadBundle(dir, tags...)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s: %v", ErrResourceNotFound, key, err)
			}
			return nil, err
		}
		c.mu.Lock()
		c.bundles[key] = b
		c.mu.Unlock()
		return b, nil
	})
	observeLookup("bundle", false, err)
	if err != nil {
		return nil, err
	}
	return v.(*graph.Bundle), nil
}

// LoadLabels returns the lines of the text file at labelsPath.
func (c *Cache) LoadLabels(ctx context.Context, source, modelName, labelsPath string) ([]string, error) {
	key := modelName + "/" + labelsPath
	c.mu.RLock()
	l, ok := c.labels[key]
	c.mu.RUnlock()
	if ok {
		observeLookup("labels", true, nil)
		return l, nil
	}
	v, err, _ := c.loads.Do("labels\x00"+key, func() (any, error) {
		c.mu.RLock()
		l, ok := c.labels[key]
		c.mu.RUnlock()
		if ok {
			return l, nil
		}
		p, err := c.resolve(ctx, source, modelName, labelsPath)
		if err != nil {
			return nil, err
		}
		l, err = readLines(p)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.labels[key] = l
		c.mu.Unlock()
		return l, nil
	})
	observeLookup("labels", false, err)
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// Dispose closes every memoized graph and bundle and forgets all artifacts.
// Installations on disk are kept.
func (c *Cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bundles {
		_ = b.Close()
	}
	for _, g := range c.graphs {
		_ = g.Close()
	}
	c.bundles = map[string]*graph.Bundle{}
	c.graphs = map[string]*graph.Graph{}
	c.labels = map[string][]string{}
	c.log.Debug().Msg("resource cache disposed")
}
