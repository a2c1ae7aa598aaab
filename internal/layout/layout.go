// Package layout names the files and directories engined keeps under its root.
//
//	<root>/lib/<platform>/              active native library
//	<root>/lib/<platform>/.crashed      crash marker
//	<root>/lib/<platform>/.tensorflowversion
//	<root>/update/lib/<platform>/       staged variant, applied on restart
//	<root>/models/<name>/               installed model archives
//	<root>/downloads/                   downloaded library archives
package layout

import "path/filepath"

const (
	CrashMarkerName   = ".crashed"
	VersionRecordName = ".tensorflowversion"
)

// Layout resolves paths for one root and platform.
type Layout struct {
	Root     string
	Platform string
}

// New returns a Layout for root and platform.
func New(root, platform string) Layout {
	return Layout{Root: root, Platform: platform}
}

func (l Layout) LibDir() string { return filepath.Join(l.Root, "lib", l.Platform) }

func (l Layout) CrashMarker() string { return filepath.Join(l.LibDir(), CrashMarkerName) }

func (l Layout) VersionRecord() string { return filepath.Join(l.LibDir(), VersionRecordName) }

func (l Layout) UpdateDir() string { return filepath.Join(l.Root, "update") }

func (l Layout) UpdateLibDir() string { return filepath.Join(l.UpdateDir(), "lib", l.Platform) }

func (l Layout) ModelsDir() string { return filepath.Join(l.Root, "models") }

// ModelDir is the installation directory of a model archive.
func (l Layout) ModelDir(name string) string { return filepath.Join(l.ModelsDir(), name) }

func (l Layout) DownloadsDir() string { return filepath.Join(l.Root, "downloads") }
