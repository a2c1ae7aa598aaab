package unpack

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// TarGzFile extracts the gzip-compressed tar archive at path into dest.
func TarGzFile(path, dest string, opts Options) error {
	open := func() (io.ReadCloser, error) { return os.Open(path) }
	opts.Log.Info().Str("archive", path).Str("dest", dest).Str("links", opts.LinkBase).Msg("unpacking tar.gz")
	return untarGz(open, dest, opts)
}

// TarGzBytes extracts an in-memory gzip-compressed tar archive into dest.
func TarGzBytes(data []byte, dest string, opts Options) error {
	open := func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
	return untarGz(open, dest, opts)
}

type tarEntry struct {
	target string
	link   string
}

// untarGz reads the stream twice: once to validate every header, once to write.
func untarGz(open func() (io.ReadCloser, error), dest string, opts Options) error {
	linkBase := opts.LinkBase
	if linkBase == "" {
		linkBase = dest
	}
	var plan []tarEntry
	err := walkTar(open, func(h *tar.Header, _ io.Reader) error {
		target, err := resolve(dest, h.Name)
		if err != nil {
			return err
		}
		e := tarEntry{target: target}
		if h.Typeflag == tar.TypeSymlink || h.Typeflag == tar.TypeLink {
			if e.link, err = resolve(linkBase, h.Linkname); err != nil {
				return err
			}
		}
		plan = append(plan, e)
		return nil
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	i := 0
	return walkTar(open, func(h *tar.Header, r io.Reader) error {
		e := plan[i]
		i++
		switch h.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(e.target, 0o755)
		case tar.TypeSymlink:
			opts.Log.Debug().Str("link", e.target).Str("target", e.link).Msg("creating symbolic link")
			return replaceWith(e.target, func() error { return os.Symlink(e.link, e.target) })
		case tar.TypeLink:
			src := e.link
			if _, err := os.Lstat(src); err != nil {
				// not yet in the link base: link to the copy extracted earlier
				local, rerr := resolve(dest, h.Linkname)
				if rerr != nil {
					return rerr
				}
				src = local
			}
			opts.Log.Debug().Str("link", e.target).Str("target", src).Msg("creating link")
			return replaceWith(e.target, func() error { return os.Link(src, e.target) })
		case tar.TypeReg:
			opts.Log.Debug().Str("entry", h.Name).Msg("unpacking")
			if err := copyEntry(e.target, os.FileMode(h.Mode).Perm(), r, h.Size, h.Name, opts); err != nil {
				return archiveErr(h.Name, err)
			}
			return nil
		default:
			opts.Log.Debug().Str("entry", h.Name).Int("type", int(h.Typeflag)).Msg("skipping entry")
			return nil
		}
	})
}

func walkTar(open func() (io.ReadCloser, error), fn func(*tar.Header, io.Reader) error) error {
	rc, err := open()
	if err != nil {
		return archiveErr("open", err)
	}
	defer rc.Close()
	gz, err := gzip.NewReader(rc)
	if err != nil {
		return archiveErr("gzip", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return archiveErr("tar", err)
		}
		if err := fn(h, tr); err != nil {
			return err
		}
	}
}

func replaceWith(path string, create func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := create(); err != nil {
		return archiveErr("link", fmt.Errorf("%s: %w", path, err))
	}
	return nil
}
