// Package host ties the loader, the resource cache and the installation
// handler together behind the operations the admin API and the CLI expose.
package host

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"engined/internal/cache"
	"engined/internal/install"
	"engined/internal/layout"
	"engined/internal/loader"
	"engined/internal/registry"
	"engined/internal/status"
	"engined/internal/version"
	"engined/pkg/types"
)

// Deps are the components a Host serves.
type Deps struct {
	Layout    layout.Layout
	Loader    *loader.Loader
	Cache     *cache.Cache
	Installer *install.Handler
	// Progress receives the updates shown by Status; optional.
	Progress *status.MemorySink
	Logger   zerolog.Logger
}

// Host implements the admin API service.
type Host struct {
	layout    layout.Layout
	loader    *loader.Loader
	cache     *cache.Cache
	installer *install.Handler
	progress  *status.MemorySink
	log       zerolog.Logger
	started   time.Time
}

// New returns a Host over d.
func New(d Deps) *Host {
	return &Host{
		layout:    d.Layout,
		loader:    d.Loader,
		cache:     d.Cache,
		installer: d.Installer,
		progress:  d.Progress,
		log:       d.Logger,
		started:   time.Now(),
	}
}

// Cache returns the resource cache.
func (h *Host) Cache() *cache.Cache { return h.cache }

// Status reports the library status, the staged variant and the latest progress.
func (h *Host) Status() types.StatusResponse {
	st := h.loader.Status()
	resp := types.StatusResponse{
		Status:        st.Kind.String(),
		Info:          st.Info,
		Platform:      h.layout.Platform,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if v, ok := h.loader.LoadedVersion(); ok {
		tv := toType(v)
		tv.Active = true
		resp.Loaded = &tv
	}
	if v, ok := h.installer.Staged(); ok {
		tv := toType(v)
		resp.Staged = &tv
	}
	if h.progress != nil {
		if u, ok := h.progress.Latest(); ok {
			resp.Progress = u.Message
		}
	}
	return resp
}

// Ready reports whether a library is usable.
func (h *Host) Ready() bool {
	_, ok := h.loader.LoadedVersion()
	return ok
}

func (h *Host) available() []install.Entry {
	var cur *version.Variant
	if v, ok := h.loader.LoadedVersion(); ok {
		cur = &v
	}
	b := h.loader.Bundled()
	if b.Version == "" {
		b.Version = version.Unknown("").Version
	}
	return h.installer.Available(cur, b)
}

// Versions lists the variants for this platform that pass f, newest first,
// with the filter values selectable over the whole list.
func (h *Host) Versions(f version.Filter) types.VersionsResponse {
	entries := h.available()
	all := make([]version.Variant, 0, len(entries))
	for _, e := range entries {
		all = append(all, e.Variant)
	}
	choices := version.FilterChoices(all)
	resp := types.VersionsResponse{
		Versions: []types.Variant{},
		Filters:  types.FilterChoices{Mode: choices.Mode, CUDA: choices.CUDA, TF: choices.TF},
	}
	for _, e := range entries {
		if !f.Match(e.Variant) {
			continue
		}
		tv := toType(e.Variant)
		tv.Active = e.Active
		tv.Cached = e.Cached
		resp.Versions = append(resp.Versions, tv)
	}
	return resp
}

// Activate stages the requested variant for the next start.
func (h *Host) Activate(ctx context.Context, req types.ActivateRequest) (types.ActivateResponse, error) {
	var resp types.ActivateResponse
	v, err := h.find(req)
	if err != nil {
		return resp, err
	}
	id := uuid.NewString()
	h.log.Info().Str("activation", id).Str("variant", v.String()).Msg("activate version")
	if err := h.installer.ActivateVersion(ctx, v); err != nil {
		h.log.Error().Str("activation", id).Err(err).Msg("activation failed")
		return resp, err
	}
	resp.ID = id
	resp.Variant = toType(h.installer.UpdateCacheStatus(v))
	resp.RestartRequired = true
	return resp, nil
}

func (h *Host) find(req types.ActivateRequest) (version.Variant, error) {
	if req.Bundled {
		return h.loader.Bundled(), nil
	}
	ver := strings.TrimSpace(req.Version)
	if ver == "" {
		return version.Variant{}, badRequestError{msg: "version is required"}
	}
	mode := strings.ToUpper(strings.TrimSpace(req.Mode))
	if mode != "" && mode != "GPU" && mode != "CPU" {
		return version.Variant{}, badRequestError{msg: "mode must be GPU or CPU"}
	}
	for _, e := range h.available() {
		if e.Version != ver || (mode != "" && e.Mode() != mode) {
			continue
		}
		return e.Variant, nil
	}
	return version.Variant{}, ErrVersionNotFound(ver, mode)
}

// Models lists the installed model directories.
func (h *Host) Models() ([]types.InstalledModel, error) {
	ms, err := registry.LoadDir(h.layout.ModelsDir())
	if ms == nil {
		ms = []types.InstalledModel{}
	}
	return ms, err
}

func toType(v version.Variant) types.Variant {
	return types.Variant{
		Version:  v.Version,
		Mode:     v.Mode(),
		CUDA:     v.CUDA,
		CuDNN:    v.CuDNN,
		Platform: v.Platform,
		Label:    v.String(),
		Origin:   v.Origin(),
		Bundled:  v.IsBundled(),
	}
}
