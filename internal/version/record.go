package version

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"engined/internal/common/fsutil"
)

const unknownField = "?"

// FormatRecord renders v as platform,version,GPU|CPU|?[,cuda,cudnn].
func FormatRecord(v Variant) string {
	fields := []string{v.Platform, v.Version, v.Mode()}
	if v.CUDA != "" || v.CuDNN != "" {
		fields = append(fields, orUnknown(v.CUDA), orUnknown(v.CuDNN))
	}
	return strings.Join(fields, ",")
}

// ParseRecord parses the content of a version record.
func ParseRecord(s string) (Variant, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 && len(parts) != 5 {
		return Variant{}, fmt.Errorf("%w: %d fields", ErrMalformedRecord, len(parts))
	}
	v := Variant{
		Platform: fromField(parts[0]),
		Version:  fromField(parts[1]),
	}
	switch strings.ToUpper(parts[2]) {
	case "GPU":
		v.GPU = Bool(true)
	case "CPU":
		v.GPU = Bool(false)
	}
	if len(parts) == 5 {
		v.CUDA = fromField(parts[3])
		v.CuDNN = fromField(parts[4])
	}
	return v, nil
}

// ReadRecord reads the record at path. ok is false when the file does not exist.
func ReadRecord(path string) (v Variant, ok bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Variant{}, false, nil
		}
		return Variant{}, false, err
	}
	v, err = ParseRecord(string(b))
	if err != nil {
		return Variant{}, true, fmt.Errorf("%s: %w", path, err)
	}
	return v, true, nil
}

// WriteRecord atomically replaces the record at path.
func WriteRecord(path string, v Variant) error {
	return fsutil.WriteFileAtomic(path, []byte(FormatRecord(v)), 0o644)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}

func fromField(s string) string {
	if s == unknownField {
		return ""
	}
	return s
}
