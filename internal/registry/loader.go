// Package registry lists the model installations found on disk.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"engined/internal/common/fsutil"
	"engined/pkg/types"
)

// Scanner lists installed models under a directory.
type Scanner interface {
	Scan(dir string) ([]types.InstalledModel, error)
}

type dirScanner struct{}

// NewDirScanner returns a Scanner that treats every visible subdirectory as
// one installation. Hidden entries, including interrupted installs, are skipped.
func NewDirScanner() Scanner { return dirScanner{} }

func (dirScanner) Scan(dir string) ([]types.InstalledModel, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.InstalledModel
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(abs, e.Name())
		size, files := du(p)
		models = append(models, types.InstalledModel{
			Name:      e.Name(),
			Path:      p,
			SizeBytes: size,
			Size:      humanize.Bytes(uint64(size)),
			Files:     files,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// du sums the sizes of regular files below dir.
func du(dir string) (size int64, files int) {
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			size += fi.Size()
			files++
		}
		return nil
	})
	return size, files
}

// LoadDir scans dir with the default scanner.
func LoadDir(dir string) ([]types.InstalledModel, error) {
	return NewDirScanner().Scan(dir)
}
