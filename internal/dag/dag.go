// SPDX-License-Identifier: MPL-2.0

// Package dag holds the module import graph built while preprocessing. An edge
// from A to B means module B imports module A, so a topological order lists
// every module after the modules it depends on.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError is returned by TopologicalSort when modules import each other.
	CycleError struct {
		// Cycle lists, in insertion order, the modules that lie on a cycle or
		// on a path between two cycles.
		Cycle []string
	}

	// Graph is a directed graph of module keys. Nodes keep insertion order so
	// that every listing is deterministic.
	Graph struct {
		index map[string]int
		names []string
		out   [][]int // importers of each node
		in    [][]int // imports of each node
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

func (g *Graph) id(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.names)
	g.index[name] = i
	g.names = append(g.names, name)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

// AddNode adds name if it is not already present.
func (g *Graph) AddNode(name string) { g.id(name) }

// AddEdge records that to imports from. Both nodes are added as needed and
// repeated edges collapse into one.
func (g *Graph) AddEdge(from, to string) {
	f, t := g.id(from), g.id(to)
	if slices.Contains(g.out[f], t) {
		return
	}
	g.out[f] = append(g.out[f], t)
	g.in[t] = append(g.in[t], f)
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.names) }

// Successors returns, sorted, the modules importing name.
func (g *Graph) Successors(name string) []string {
	return g.sortedNames(name, g.out)
}

// Predecessors returns, sorted, the modules name imports.
func (g *Graph) Predecessors(name string) []string {
	return g.sortedNames(name, g.in)
}

func (g *Graph) sortedNames(name string, edges [][]int) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(edges[i]))
	for n, j := range edges[i] {
		out[n] = g.names[j]
	}
	slices.Sort(out)
	return out
}

// TopologicalSort orders the modules so that each follows everything it
// imports (Kahn's algorithm). Among modules that are ready at the same time,
// the one added first comes first.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.names) == 0 {
		return nil, nil
	}

	pending := make([]int, len(g.names))
	var queue []int
	for i := range g.names {
		pending[i] = len(g.in[i])
		if pending[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, len(g.names))
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		order = append(order, g.names[i])
		for _, j := range g.out[i] {
			if pending[j]--; pending[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(order) < len(g.names) {
		return nil, &CycleError{Cycle: g.cyclic(pending)}
	}
	return order, nil
}

// cyclic narrows the nodes Kahn's algorithm could not place down to those on
// a cycle, by peeling off leftovers that import into a cycle but are not
// imported back.
func (g *Graph) cyclic(pending []int) []string {
	left := make([]bool, len(g.names))
	for i, p := range pending {
		left[i] = p > 0
	}

	for changed := true; changed; {
		changed = false
		for i := range left {
			if !left[i] {
				continue
			}
			if !slices.ContainsFunc(g.out[i], func(j int) bool { return left[j] }) {
				left[i] = false
				changed = true
			}
		}
	}

	var cycle []string
	for i, ok := range left {
		if ok {
			cycle = append(cycle, g.names[i])
		}
	}
	return cycle
}
