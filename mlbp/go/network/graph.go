// Copyright 2026 The mlbp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package network lays a packing instance out as a flow graph.
//
// Flow runs from a synthetic source through the top-level bins down to the items, the reverse
// of the packing direction. Every node keeps its tree coordinate; the flat id of a coordinate
// is derived from cumulative level offsets taken in construction order: source, level m,
// level m-1, ..., level 0.
package network

import (
	"errors"
	"fmt"

	"github.com/hierpack/mlbp/mlbp/go/instance"
)

// ErrStructural is matched by every *StructuralError.
var ErrStructural = errors.New("structural invariant violated")

// StructuralError reports a broken index or coordinate invariant. It signals a construction
// bug, not bad input.
type StructuralError struct {
	Op     string
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStructural, e.Op, e.Detail)
}

// Is makes errors.Is(err, ErrStructural) hold.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// Coord is a tree coordinate. The source sits at Level m+1, Index 0.
type Coord struct {
	Level int `json:"level"`
	Index int `json:"index"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Level, c.Index)
}

// Node is a vertex of the graph. Capacity bounds the total size of the used outgoing edges.
type Node struct {
	ID       int
	Coord    Coord
	Demand   int64
	Capacity int64
}

// Edge carries flow From a node To one of its possible children. Using it consumes Size of
// the capacity of From and costs Cost.
type Edge struct {
	ID   int
	From int
	To   int
	Size int64
	Cost int64
}

// Graph is the flow network of one instance.
type Graph struct {
	Nodes []Node
	Edges []Edge

	top     int
	sizes   []int // sizes[level] for level 0..top+1
	offsets []int // offsets[level] is the flat id of (level, 0)
	out     [][]int
	in      [][]int
}

// Top returns the top bin level m. The source is at level m+1.
func (g *Graph) Top() int {
	return g.top
}

// Source returns the flat id of the source.
func (g *Graph) Source() int {
	return 0
}

// Out returns the ids of the edges leaving node id.
func (g *Graph) Out(id int) []int {
	return g.out[id]
}

// In returns the ids of the edges entering node id.
func (g *Graph) In(id int) []int {
	return g.in[id]
}

// ID returns the flat id of a coordinate.
func (g *Graph) ID(c Coord) (int, error) {
	if c.Level < 0 || c.Level > g.top+1 || c.Index < 0 || c.Index >= g.sizes[c.Level] {
		return 0, &StructuralError{Op: "ID", Detail: fmt.Sprintf("coordinate %v is outside the graph", c)}
	}
	return g.offsets[c.Level] + c.Index, nil
}

// Invert recovers the coordinate of a flat id by walking the level sizes in construction
// order.
func (g *Graph) Invert(id int) (Coord, error) {
	if id < 0 {
		return Coord{}, &StructuralError{Op: "Invert", Detail: fmt.Sprintf("negative id %d", id)}
	}
	rem := id
	for level := g.top + 1; level >= 0; level-- {
		if rem < g.sizes[level] {
			return Coord{Level: level, Index: rem}, nil
		}
		rem -= g.sizes[level]
	}
	return Coord{}, &StructuralError{Op: "Invert", Detail: fmt.Sprintf("id %d is past the last node", id)}
}

func (g *Graph) addEdge(from, to int, size, cost int64) {
	id := len(g.Edges)
	g.Edges = append(g.Edges, Edge{ID: id, From: from, To: to, Size: size, Cost: cost})
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)
}

// Build lays out the graph of `inst`. The source demands the item count, every item demands
// -1. An edge into an item costs 1; an edge into a bin costs that bin.
func Build(inst *instance.Instance) (*Graph, error) {
	m := inst.M()
	g := &Graph{
		top:     m,
		sizes:   make([]int, m+2),
		offsets: make([]int, m+2),
	}
	for i := 0; i <= m; i++ {
		g.sizes[i] = inst.N(i)
	}
	g.sizes[m+1] = 1
	next := 0
	for level := m + 1; level >= 0; level-- {
		g.offsets[level] = next
		next += g.sizes[level]
	}

	g.Nodes = make([]Node, next)
	g.out = make([][]int, next)
	g.in = make([][]int, next)
	items := int64(inst.N(0))
	for level := m + 1; level >= 0; level-- {
		for j := 0; j < g.sizes[level]; j++ {
			c := Coord{Level: level, Index: j}
			id, err := g.ID(c)
			if err != nil {
				return nil, err
			}
			back, err := g.Invert(id)
			if err != nil {
				return nil, err
			}
			if back != c {
				return nil, &StructuralError{Op: "Build", Detail: fmt.Sprintf("id %d of %v inverts to %v", id, c, back)}
			}
			n := Node{ID: id, Coord: c}
			switch {
			case level == m+1:
				n.Demand = items
			case level == 0:
				n.Demand = -1
			default:
				n.Capacity = inst.Capacity(level, j)
			}
			g.Nodes[id] = n
		}
	}

	for k := 0; k < inst.N(m); k++ {
		g.addEdge(g.Source(), g.offsets[m]+k, 0, inst.Cost(m, k))
	}
	for i := m; i >= 1; i-- {
		for j := 0; j < inst.N(i); j++ {
			for k := 0; k < inst.N(i-1); k++ {
				cost := int64(1)
				if i > 1 {
					cost = inst.Cost(i-1, k)
				}
				g.addEdge(g.offsets[i]+j, g.offsets[i-1]+k, inst.Size(i-1, k), cost)
			}
		}
	}
	return g, nil
}
