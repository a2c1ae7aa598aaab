// Package graph decodes the parts of GraphDef and SavedModel protobufs that
// the engine host needs: node names, operations and meta graph tags.
package graph

import (
	"sync/atomic"

	"google.golang.org/protobuf/encoding/protowire"
)

// GraphDef field numbers.
const (
	graphNode     protowire.Number = 1
	graphVersions protowire.Number = 4

	nodeName   protowire.Number = 1
	nodeOp     protowire.Number = 2
	nodeInput  protowire.Number = 3
	nodeDevice protowire.Number = 4

	versionProducer protowire.Number = 1
)

// Node is one operation of a graph.
type Node struct {
	Name   string
	Op     string
	Inputs []string
	Device string
}

// Graph is a parsed GraphDef. Def keeps the serialized form for handing to
// the native library.
type Graph struct {
	Def      []byte
	Nodes    []Node
	Producer int32

	index  map[string]int
	closed atomic.Bool
}

// ParseGraphDef decodes a serialized GraphDef.
func ParseGraphDef(b []byte) (*Graph, error) {
	g := &Graph{Def: b, index: map[string]int{}}
	err := walk(b, func(f field) error {
		switch {
		case f.num == graphNode && f.typ == protowire.BytesType:
			n, err := parseNode(f.bytes)
			if err != nil {
				return err
			}
			g.index[n.Name] = len(g.Nodes)
			g.Nodes = append(g.Nodes, n)
		case f.num == graphVersions && f.typ == protowire.BytesType:
			return walk(f.bytes, func(v field) error {
				if v.num == versionProducer && v.typ == protowire.VarintType {
					g.Producer = int32(v.varint)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func parseNode(b []byte) (Node, error) {
	var n Node
	err := walk(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case nodeName:
			n.Name = string(f.bytes)
		case nodeOp:
			n.Op = string(f.bytes)
		case nodeInput:
			n.Inputs = append(n.Inputs, string(f.bytes))
		case nodeDevice:
			n.Device = string(f.bytes)
		}
		return nil
	})
	return n, err
}

// Operation looks up a node by name.
func (g *Graph) Operation(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Close releases the graph. It is safe to call more than once.
func (g *Graph) Close() error {
	g.closed.Store(true)
	return nil
}

func (g *Graph) Closed() bool { return g.closed.Load() }
