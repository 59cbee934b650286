// SPDX-License-Identifier: MPL-2.0

// Package dag orders the packages of a resolution so that every package
// appears after the packages it depends on. Cycles, which NuGet permits,
// are reported rather than fatal when a best-effort order is requested.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle detected")

type (
	// CycleError indicates that the graph contains a cycle, preventing a total order.
	// It wraps ErrCycle for errors.Is() compatibility.
	CycleError struct {
		// Cycle lists the nodes left unordered, in insertion order. They include
		// every cycle plus any node reachable only through one.
		Cycle []string
	}

	// Graph is a directed graph over string nodes. An edge from A to B means
	// A must be ordered before B, so a dependency edge is added as
	// AddEdge(dependency, dependent).
	Graph struct {
		adjacency map[string][]string
		// nodes keeps insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added.
// Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, n := range g.adjacency[from] {
		if n == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a total order using Kahn's algorithm, or a
// CycleError if none exists. Nodes at the same level keep insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	order, rest := g.kahn()
	if len(rest) > 0 {
		return nil, &CycleError{Cycle: rest}
	}
	return order, nil
}

// Order is like TopologicalSort but never drops nodes: nodes that cannot be
// ordered are appended in insertion order and also reported in the CycleError.
func (g *Graph) Order() ([]string, error) {
	order, rest := g.kahn()
	if len(rest) > 0 {
		return append(order, rest...), &CycleError{Cycle: rest}
	}
	return order, nil
}

func (g *Graph) kahn() (order, rest []string) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	order = make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	for _, node := range g.nodes {
		if inDegree[node] > 0 {
			rest = append(rest, node)
		}
	}
	return order, rest
}
