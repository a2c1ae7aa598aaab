package unpack

import (
	"bytes"
	"os"

	"github.com/klauspost/compress/zip"
)

// ZipFile extracts the zip archive at path into dest.
func ZipFile(path, dest string, opts Options) error {
	// A reader returned alongside an error means only insecure names were
	// found; those are rejected entry by entry below.
	rc, err := zip.OpenReader(path)
	if rc == nil {
		return archiveErr(path, err)
	}
	defer rc.Close()
	opts.Log.Info().Str("archive", path).Str("dest", dest).Msg("unpacking zip")
	return unzip(&rc.Reader, dest, opts)
}

// ZipBytes extracts an in-memory zip archive into dest.
func ZipBytes(data []byte, dest string, opts Options) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if r == nil {
		return archiveErr("zip", err)
	}
	return unzip(r, dest, opts)
}

func unzip(r *zip.Reader, dest string, opts Options) error {
	// Validate every entry before the first write.
	targets := make([]string, len(r.File))
	for i, f := range r.File {
		p, err := resolve(dest, f.Name)
		if err != nil {
			return err
		}
		targets[i] = p
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for i, f := range r.File {
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targets[i], 0o755); err != nil {
				return err
			}
			continue
		}
		opts.Log.Debug().Str("entry", f.Name).Msg("unpacking")
		rc, err := f.Open()
		if err != nil {
			return archiveErr(f.Name, err)
		}
		err = copyEntry(targets[i], f.Mode().Perm(), rc, int64(f.UncompressedSize64), f.Name, opts)
		rc.Close()
		if err != nil {
			return archiveErr(f.Name, err)
		}
	}
	return nil
}
