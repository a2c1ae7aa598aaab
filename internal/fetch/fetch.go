// Package fetch reads resources from http(s) URLs, file:// URLs and local
// paths. Calls block until the transfer completes or the context is cancelled.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Retry configuration for HTTP requests.
const (
	MaxRetries     = 3
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 4 * time.Second
)

// ProgressFunc receives bytes copied so far and the total (-1 when unknown).
type ProgressFunc func(done, total int64)

// Fetcher copies the resource at location into w.
type Fetcher interface {
	Fetch(ctx context.Context, location string, w io.Writer, progress ProgressFunc) (int64, error)
}

// Client is the default Fetcher.
type Client struct {
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithRetries sets the number of attempts per HTTP request. Values below 1 mean one attempt.
func WithRetries(n int) Option {
	return func(cl *Client) {
		if n < 1 {
			n = 1
		}
		cl.maxRetries = n
	}
}

// WithBackoff sets the initial delay between attempts; it doubles up to MaxBackoff.
func WithBackoff(d time.Duration) Option { return func(cl *Client) { cl.backoff = d } }

func WithLogger(l zerolog.Logger) Option { return func(cl *Client) { cl.log = l } }

// New returns a Client with default retry settings.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 10 * time.Minute},
		maxRetries: MaxRetries,
		backoff:    InitialBackoff,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Fetch(ctx context.Context, location string, w io.Writer, progress ProgressFunc) (int64, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, including windows drive letters
		return c.fetchFile(ctx, location, w, progress)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return c.fetchFile(ctx, u.Path, w, progress)
	case "http", "https":
		return c.fetchHTTP(ctx, location, w, progress)
	default:
		return 0, fmt.Errorf("%w: unsupported scheme %q", ErrNetwork, u.Scheme)
	}
}

func (c *Client) fetchFile(ctx context.Context, p string, w io.Writer, progress ProgressFunc) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return 0, err
	}
	defer f.Close()
	total := int64(-1)
	if fi, err := f.Stat(); err == nil {
		total = fi.Size()
	}
	return copyCtx(ctx, w, f, total, progress)
}

func (c *Client) fetchHTTP(ctx context.Context, location string, w io.Writer, progress ProgressFunc) (int64, error) {
	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		n, err := c.getOnce(ctx, location, w, progress)
		// Bytes already handed to w cannot be taken back.
		if err == nil || n > 0 || !retryable(err) || ctx.Err() != nil {
			return n, err
		}
		lastErr = err
		if attempt == c.maxRetries {
			break
		}
		c.log.Warn().Err(err).Str("url", location).Int("attempt", attempt).Dur("backoff", backoff).Msg("fetch failed, retrying")
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MaxBackoff {
			backoff = MaxBackoff
		}
	}
	return 0, lastErr
}

type statusError struct{ code int }

func (e statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) getOnce(ctx context.Context, location string, w io.Writer, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, location)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, fmt.Errorf("%w: %s: %w", ErrNetwork, location, statusError{resp.StatusCode})
	}
	c.log.Debug().Str("url", location).Int64("length", resp.ContentLength).Msg("downloading")
	return copyCtx(ctx, w, resp.Body, resp.ContentLength, progress)
}

func copyCtx(ctx context.Context, w io.Writer, r io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, 64*1024)
	var done int64
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return done, werr
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if rerr == io.EOF {
			return done, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			return done, fmt.Errorf("%w: %v", ErrNetwork, rerr)
		}
	}
}

// Basename returns the last path element of a URL or file path.
func Basename(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return path.Base(u.Path)
	}
	return path.Base(strings.ReplaceAll(location, "\\", "/"))
}
