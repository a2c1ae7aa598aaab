// Package unpack extracts zip and gzip-compressed tar archives from files or
// memory, refusing entries that would land outside the destination.
package unpack

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// BufferSize bounds the copy buffer used per entry.
const BufferSize = 64 * 1024

// Kind is an archive format.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindTarGz
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

// ProgressFunc receives the bytes written so far for the current entry, the
// entry size (0 when unknown) and a message naming the entry.
type ProgressFunc func(done, size int64, msg string)

// Options configure an extraction. The zero value is usable.
type Options struct {
	// LinkBase is the directory tar link targets are resolved against. It
	// defaults to the destination.
	LinkBase string
	Progress ProgressFunc
	Log      zerolog.Logger
}

func (o Options) progress(done, size int64, msg string) {
	if o.Progress != nil {
		o.Progress(done, size, msg)
	}
}

// DetectKind picks the format from the name suffix, falling back to magic bytes.
func DetectKind(name string, head []byte) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	}
	switch {
	case bytes.HasPrefix(head, []byte("PK\x03\x04")), bytes.HasPrefix(head, []byte("PK\x05\x06")):
		return KindZip
	case bytes.HasPrefix(head, []byte{0x1f, 0x8b}):
		return KindTarGz
	}
	return KindUnknown
}

// Bytes extracts an in-memory archive of the given kind into dest.
func Bytes(kind Kind, data []byte, dest string, opts Options) error {
	switch kind {
	case KindZip:
		return ZipBytes(data, dest, opts)
	case KindTarGz:
		return TarGzBytes(data, dest, opts)
	default:
		return archiveErr("unpack", errUnknownKind)
	}
}

// File extracts the archive at path into dest, detecting its kind.
func File(path, dest string, opts Options) error {
	head := make([]byte, 4)
	f, err := os.Open(path)
	if err != nil {
		return archiveErr("open", err)
	}
	n, _ := io.ReadFull(f, head)
	f.Close()
	switch DetectKind(path, head[:n]) {
	case KindZip:
		return ZipFile(path, dest, opts)
	case KindTarGz:
		return TarGzFile(path, dest, opts)
	default:
		return archiveErr(path, errUnknownKind)
	}
}

var errUnknownKind = unknownKindError{}

type unknownKindError struct{}

func (unknownKindError) Error() string { return "unrecognised archive format" }

// resolve joins name onto base and rejects results outside base.
func resolve(base, name string) (string, error) {
	target := filepath.Join(base, filepath.FromSlash(name))
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathTraversalError{Entry: name, Base: base}
	}
	return target, nil
}

// copyEntry streams r into path through a BufferSize buffer.
func copyEntry(path string, mode os.FileMode, r io.Reader, size int64, name string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	msg := "Unpacking " + name
	buf := make([]byte, BufferSize)
	var done int64
	for {
		opts.progress(done, size, msg)
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return werr
			}
			done += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			return rerr
		}
	}
	opts.progress(done, size, msg)
	return out.Close()
}
