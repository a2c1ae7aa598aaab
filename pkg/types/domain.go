package types

// InstalledModel is a model archive unpacked under the models directory.
type InstalledModel struct {
	// Directory name, used as the model name in cache lookups.
	// example: inception5h
	Name string `json:"name" example:"inception5h"`
	// Absolute path of the installation directory.
	// example: /home/user/.engined/models/inception5h
	Path string `json:"path" example:"/home/user/.engined/models/inception5h"`
	// Total size of the files in the installation, in bytes.
	// example: 53884595
	SizeBytes int64 `json:"size_bytes" example:"53884595"`
	// Size formatted for humans.
	// example: 54 MB
	Size string `json:"size" example:"54 MB"`
	// Regular files found in the installation.
	// example: 3
	Files int `json:"files" example:"3"`
}

// Variant is one build of the inference engine library.
type Variant struct {
	// Library version.
	// example: 1.15.0
	Version string `json:"version" example:"1.15.0"`
	// GPU, CPU or ? when unknown.
	// example: GPU
	Mode string `json:"mode" example:"GPU"`
	// Compatible CUDA version, if known.
	// example: 10.1
	CUDA string `json:"cuda,omitempty" example:"10.1"`
	// Compatible CuDNN version, if known.
	// example: >= 7.5.1
	CuDNN string `json:"cudnn,omitempty" example:">= 7.5.1"`
	// Platform the build targets.
	// example: linux64
	Platform string `json:"platform" example:"linux64"`
	// Display label.
	// example: TF 1.15.0 GPU (CUDA 10.1, CuDNN >= 7.5.1)
	Label string `json:"label" example:"TF 1.15.0 GPU (CUDA 10.1, CuDNN >= 7.5.1)"`
	// Local archive path when cached, otherwise the download URL.
	Origin string `json:"origin,omitempty"`
	// Whether this variant is the one loaded in the process.
	Active bool `json:"active"`
	// Whether the archive is available without downloading.
	Cached bool `json:"cached"`
	// Whether this is the library shipped with the binary.
	Bundled bool `json:"bundled,omitempty"`
}
