package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync/atomic"

	"google.golang.org/protobuf/encoding/protowire"
)

// SavedModelFile is the protobuf file at the root of a SavedModel directory.
const SavedModelFile = "saved_model.pb"

const (
	savedModelMetaGraphs protowire.Number = 2

	metaGraphInfo  protowire.Number = 1
	metaGraphGraph protowire.Number = 2

	metaInfoTags protowire.Number = 4
)

// Bundle is a SavedModel meta graph selected by its tag set.
type Bundle struct {
	Dir   string
	Tags  []string
	Graph *Graph

	closed atomic.Bool
}

type metaGraph struct {
	tags  []string
	graph []byte
}

// LoadBundle reads dir/saved_model.pb and returns the meta graph whose tag
// set equals tags.
func LoadBundle(dir string, tags ...string) (*Bundle, error) {
	b, err := os.ReadFile(filepath.Join(dir, SavedModelFile))
	if err != nil {
		return nil, err
	}
	var metas []metaGraph
	err = walk(b, func(f field) error {
		if f.num != savedModelMetaGraphs || f.typ != protowire.BytesType {
			return nil
		}
		m, err := parseMetaGraph(f.bytes)
		if err != nil {
			return err
		}
		metas = append(metas, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	want := sortedCopy(tags)
	for _, m := range metas {
		if !slices.Equal(sortedCopy(m.tags), want) {
			continue
		}
		g, err := ParseGraphDef(m.graph)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dir, err)
		}
		return &Bundle{Dir: dir, Tags: want, Graph: g}, nil
	}
	return nil, fmt.Errorf("%w: %v in %s", ErrTagsNotFound, tags, dir)
}

func parseMetaGraph(b []byte) (metaGraph, error) {
	var m metaGraph
	err := walk(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case metaGraphInfo:
			return walk(f.bytes, func(i field) error {
				if i.num == metaInfoTags && i.typ == protowire.BytesType {
					m.tags = append(m.tags, string(i.bytes))
				}
				return nil
			})
		case metaGraphGraph:
			m.graph = f.bytes
		}
		return nil
	})
	return m, err
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// Close closes the bundle and its graph.
func (b *Bundle) Close() error {
	b.closed.Store(true)
	return b.Graph.Close()
}

func (b *Bundle) Closed() bool { return b.closed.Load() }
