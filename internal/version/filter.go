package version

import (
	"sort"
	"strings"
)

// NoFilter disables a filter field.
const NoFilter = "-"

// Filter narrows a variant list by mode, CUDA version and library version.
// Empty fields and NoFilter match everything.
type Filter struct {
	Mode string
	CUDA string
	TF   string
}

func active(s string) bool { return s != "" && s != NoFilter }

// Match reports whether v passes every active field of f.
func (f Filter) Match(v Variant) bool {
	if active(f.Mode) && !strings.EqualFold(v.Mode(), f.Mode) {
		return false
	}
	if active(f.CUDA) && v.CUDA != f.CUDA {
		return false
	}
	if active(f.TF) && v.Version != f.TF {
		return false
	}
	return true
}

// Apply returns the variants of vs that match f.
func (f Filter) Apply(vs []Variant) []Variant {
	out := make([]Variant, 0, len(vs))
	for _, v := range vs {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Choices lists the selectable values per filter field, each led by NoFilter.
type Choices struct {
	Mode []string `json:"mode"`
	CUDA []string `json:"cuda"`
	TF   []string `json:"tf"`
}

// FilterChoices collects the distinct CUDA and library versions present in vs.
func FilterChoices(vs []Variant) Choices {
	cuda := map[string]struct{}{}
	tf := map[string]Variant{}
	for _, v := range vs {
		if v.CUDA != "" {
			cuda[v.CUDA] = struct{}{}
		}
		tf[v.Version] = v
	}
	c := Choices{Mode: []string{NoFilter, "GPU", "CPU"}, CUDA: []string{NoFilter}, TF: []string{NoFilter}}
	cudaKeys := make([]string, 0, len(cuda))
	for k := range cuda {
		cudaKeys = append(cudaKeys, k)
	}
	sort.Strings(cudaKeys)
	c.CUDA = append(c.CUDA, cudaKeys...)

	tfVals := make([]Variant, 0, len(tf))
	for _, v := range tf {
		tfVals = append(tfVals, v)
	}
	SortNewestFirst(tfVals)
	for _, v := range tfVals {
		c.TF = append(c.TF, v.Version)
	}
	return c
}

// Newer orders by descending comparable version, GPU builds first within one version.
func Newer(a, b Variant) bool {
	ca, cb := a.ComparableVersion(), b.ComparableVersion()
	if ca != cb {
		return ca > cb
	}
	return a.Mode() > b.Mode()
}

// SortNewestFirst sorts vs with Newer, keeping the order of equal elements.
func SortNewestFirst(vs []Variant) {
	sort.SliceStable(vs, func(i, j int) bool { return Newer(vs[i], vs[j]) })
}
