package install

import (
	"sort"

	"engined/internal/version"
)

// Entry is one selectable variant.
type Entry struct {
	version.Variant
	Active bool
	Cached bool
}

// Available merges the active variant, the bundled variant and the registry
// for this platform. Equal variants are merged into the first occurrence,
// and the result is ordered newest first.
func (h *Handler) Available(current *version.Variant, bundled version.Variant) []Entry {
	var out []Entry
	add := func(v version.Variant, active bool) {
		if v.Platform != h.layout.Platform {
			return
		}
		v = h.UpdateCacheStatus(v)
		for i := range out {
			if out[i].Equal(v) {
				out[i].Variant = out[i].Harvest(v)
				out[i].Active = out[i].Active || active
				out[i].Cached = out[i].LocalPath != ""
				return
			}
		}
		out = append(out, Entry{Variant: v, Active: active, Cached: v.LocalPath != ""})
	}
	if current != nil {
		c := *current
		if c.Platform == "" {
			c.Platform = h.layout.Platform
		}
		add(c, true)
	}
	if bundled.Platform == "" {
		bundled.Platform = h.layout.Platform
	}
	add(bundled, false)
	for _, v := range version.ForPlatform(h.layout.Platform) {
		add(v, false)
	}

	sort.SliceStable(out, func(i, j int) bool { return version.Newer(out[i].Variant, out[j].Variant) })
	return out
}
