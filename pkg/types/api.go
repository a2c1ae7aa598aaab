package types

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Library status: not_attempted, loaded, crashed or failed.
	// example: loaded
	Status string `json:"status" example:"loaded"`
	// Explanation of the status.
	// example: native: TF 1.15.0 GPU (CUDA 10.1, CuDNN >= 7.5.1)
	Info string `json:"info" example:"native: TF 1.15.0 GPU (CUDA 10.1, CuDNN >= 7.5.1)"`
	// Variant loaded in the process, absent when nothing is loaded.
	Loaded *Variant `json:"loaded_version,omitempty"`
	// Variant staged for the next start, if any.
	Staged *Variant `json:"staged_version,omitempty"`
	// Platform of this process.
	// example: linux64
	Platform string `json:"platform" example:"linux64"`
	// Latest progress message of a running download or unpack.
	Progress string `json:"progress,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// FilterChoices lists the values accepted by the /versions filters.
type FilterChoices struct {
	Mode []string `json:"mode"`
	CUDA []string `json:"cuda"`
	TF   []string `json:"tf"`
}

// VersionsResponse is returned by GET /versions.
type VersionsResponse struct {
	// Variants matching the filter, newest first.
	Versions []Variant `json:"versions"`
	// Values selectable for each filter; "-" disables a filter.
	Filters FilterChoices `json:"filters"`
}

// ActivateRequest selects a variant for POST /versions/activate.
type ActivateRequest struct {
	// example: 1.15.0
	Version string `json:"version" example:"1.15.0"`
	// GPU or CPU.
	// example: CPU
	Mode string `json:"mode" example:"CPU"`
	// Activate the bundled library instead of a download.
	Bundled bool `json:"bundled,omitempty"`
}

// ActivateResponse acknowledges an activation.
type ActivateResponse struct {
	// Identifier of the activation, echoed in logs.
	// example: 0b6f1c9e-7b55-4f5e-9d1c-2a7f7c4f1e2d
	ID string `json:"id" example:"0b6f1c9e-7b55-4f5e-9d1c-2a7f7c4f1e2d"`
	// Variant that was staged.
	Variant Variant `json:"variant"`
	// Always true: activation takes effect after a restart.
	RestartRequired bool `json:"restart_required"`
}

// ModelsResponse wraps the list of installed models returned by GET /models.
type ModelsResponse struct {
	Models []InstalledModel `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
