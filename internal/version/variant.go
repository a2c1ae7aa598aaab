// Package version describes native library variants and the record that
// attributes an installed variant on disk.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant identifies one build of the inference engine library. It is a value
// type; the With* helpers return modified copies.
type Variant struct {
	Version string
	// GPU is nil when the build's GPU support is unknown.
	GPU      *bool
	CUDA     string
	CuDNN    string
	Platform string
	// URL is the remote origin of the archive, if any.
	URL string
	// LocalPath is set once the archive is available locally.
	LocalPath string
}

// Bool returns a pointer to b, for building Variant.GPU.
func Bool(b bool) *bool { return &b }

// CPU returns a CPU-only variant.
func CPU(platform, ver, url string) Variant {
	return Variant{Version: ver, GPU: Bool(false), Platform: platform, URL: url}
}

// GPUBuild returns a GPU variant with its CUDA and CuDNN compatibility.
func GPUBuild(platform, ver, cuda, cudnn, url string) Variant {
	return Variant{Version: ver, GPU: Bool(true), CUDA: cuda, CuDNN: cudnn, Platform: platform, URL: url}
}

// Unknown is the variant reported when no record attributes the loaded library.
func Unknown(ver string) Variant {
	if ver == "" {
		ver = "?"
	}
	return Variant{Version: ver}
}

// Mode is "GPU", "CPU" or "?" when unknown.
func (v Variant) Mode() string {
	if v.GPU == nil {
		return "?"
	}
	if *v.GPU {
		return "GPU"
	}
	return "CPU"
}

// Equal compares version, GPU flag (unknown included) and platform. Origins
// and companion versions are ignored.
func (v Variant) Equal(o Variant) bool {
	return v.Version == o.Version && v.Mode() == o.Mode() && v.Platform == o.Platform
}

// Harvest fills the fields v leaves empty from o.
func (v Variant) Harvest(o Variant) Variant {
	if v.CUDA == "" {
		v.CUDA = o.CUDA
	}
	if v.CuDNN == "" {
		v.CuDNN = o.CuDNN
	}
	if v.URL == "" {
		v.URL = o.URL
	}
	if v.LocalPath == "" {
		v.LocalPath = o.LocalPath
	}
	return v
}

func (v Variant) WithLocalPath(p string) Variant {
	v.LocalPath = p
	return v
}

func (v Variant) WithPlatform(p string) Variant {
	v.Platform = p
	return v
}

// Origin is the local path when cached, otherwise the URL.
func (v Variant) Origin() string {
	if v.LocalPath != "" {
		return v.LocalPath
	}
	return v.URL
}

// IsBundled reports whether v refers to the library shipped with the binary.
func (v Variant) IsBundled() bool {
	return strings.HasPrefix(v.URL, BundledScheme) || strings.HasSuffix(v.Origin(), ".jar")
}

// BundledScheme prefixes the origin of the bundled variant.
const BundledScheme = "bundled:"

func (v Variant) String() string {
	var b strings.Builder
	b.WriteString("TF ")
	b.WriteString(v.Version)
	if v.GPU != nil {
		b.WriteByte(' ')
		b.WriteString(v.Mode())
	}
	if v.CUDA != "" || v.CuDNN != "" {
		b.WriteString(" (")
		if v.CUDA != "" {
			b.WriteString("CUDA " + v.CUDA)
		}
		if v.CUDA != "" && v.CuDNN != "" {
			b.WriteString(", ")
		}
		if v.CuDNN != "" {
			b.WriteString("CuDNN " + v.CuDNN)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// ComparableVersion pads each numeric component to three digits so that
// versions order correctly as strings: 1.13.1 becomes 001.013.001.
func (v Variant) ComparableVersion() string {
	parts := strings.Split(v.Version, ".")
	for i, p := range parts {
		if n, err := strconv.Atoi(p); err == nil && n >= 0 {
			parts[i] = fmt.Sprintf("%03d", n)
		}
	}
	return strings.Join(parts, ".")
}
