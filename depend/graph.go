// Package depend implements the dependency tracker: an edge set over
// absolute cell positions plus the depth-first topological sort that turns
// it into an evaluation order. A Graph is a transient object; the caller
// (the root package's CalculateCells) builds one fresh per recompute batch,
// hands it to pool.Manager.Run, and discards it.
package depend

import "github.com/ixion-engine/ixion/address"

// Graph is an edge set: origin -> dependency, meaning origin's formula reads
// dependency. It carries no formula or value state of its own; that lives
// in the model context. A Graph is not safe for concurrent use; build it
// serially before handing the resulting order to package pool.
type Graph struct {
	precedents map[address.CellAddress]map[address.CellAddress]struct{}
	dependents map[address.CellAddress]map[address.CellAddress]struct{}
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		precedents: make(map[address.CellAddress]map[address.CellAddress]struct{}),
		dependents: make(map[address.CellAddress]map[address.CellAddress]struct{}),
	}
}

func (g *Graph) touch(addr address.CellAddress) {
	if _, ok := g.precedents[addr]; !ok {
		g.precedents[addr] = make(map[address.CellAddress]struct{})
	}
	if _, ok := g.dependents[addr]; !ok {
		g.dependents[addr] = make(map[address.CellAddress]struct{})
	}
}

// InsertDepend records that origin depends on dependency. Duplicate edges
// are idempotent.
func (g *Graph) InsertDepend(origin, dependency address.CellAddress) {
	g.touch(origin)
	g.touch(dependency)
	g.precedents[origin][dependency] = struct{}{}
	g.dependents[dependency][origin] = struct{}{}
}

// Precedents returns the cells origin directly depends on.
func (g *Graph) Precedents(origin address.CellAddress) []address.CellAddress {
	return keys(g.precedents[origin])
}

// Dependents returns the cells that directly depend on target.
func (g *Graph) Dependents(target address.CellAddress) []address.CellAddress {
	return keys(g.dependents[target])
}

func keys(m map[address.CellAddress]struct{}) []address.CellAddress {
	out := make([]address.CellAddress, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// TopoSort runs a depth-first search over dirty (plus anything dirty
// transitively depends on) emitting each node after its descendants, so the
// returned order is a valid evaluation order: every cell appears after all
// of its precedents. Nodes that participate in a cycle are reported in
// cyclic rather than excluded from order: the tracker does not reject a
// cyclic graph, it schedules every involved cell to be stamped
// ref_result_not_available later, while unrelated cells still evaluate
// normally.
func (g *Graph) TopoSort(dirty []address.CellAddress) (order []address.CellAddress, cyclic map[address.CellAddress]bool) {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[address.CellAddress]int)
	cyclic = make(map[address.CellAddress]bool)
	var stack []address.CellAddress

	var visit func(addr address.CellAddress)
	visit = func(addr address.CellAddress) {
		switch state[addr] {
		case visiting:
			// addr is still on the active path: everything from addr's
			// position to the top of stack forms the cycle.
			for i := len(stack) - 1; i >= 0; i-- {
				cyclic[stack[i]] = true
				if stack[i] == addr {
					break
				}
			}
			return
		case visited:
			return
		}
		state[addr] = visiting
		stack = append(stack, addr)
		for dep := range g.precedents[addr] {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		state[addr] = visited
		order = append(order, addr)
	}

	for _, addr := range dirty {
		visit(addr)
	}
	return order, cyclic
}
