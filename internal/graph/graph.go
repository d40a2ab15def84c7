// Package graph models the apply-order dependency graph between install
// units.
//
// The graph is a plain data structure: adding a unit either succeeds or
// leaves the graph exactly as it was. Cycles and dangling prerequisites are
// configuration errors surfaced at construction time, never at apply time.
package graph

import (
	"slices"
)

// Graph is a DAG over named install units. Edges point from a unit to the
// prerequisites that must be ready before it may be applied.
type Graph struct {
	// order preserves declaration order for deterministic tie-breaking.
	order   []string
	prereqs map[string][]string
}

func New() *Graph {
	return &Graph{prereqs: map[string][]string{}}
}

// AddUnit registers name with its prerequisites.
//
// Every prerequisite must already be registered; a prerequisite that is not
// fails with UnknownPrerequisiteError. An edge set that would close a cycle
// fails with CycleError. Rejection is atomic: on error the graph is
// unchanged.
func (g *Graph) AddUnit(name string, prerequisites ...string) error {
	if _, ok := g.prereqs[name]; ok {
		return &DuplicateUnitError{Unit: name}
	}
	for _, p := range prerequisites {
		if _, ok := g.prereqs[p]; !ok && p != name {
			return &UnknownPrerequisiteError{Unit: name, Prerequisite: p}
		}
	}
	g.prereqs[name] = slices.Clone(prerequisites)
	g.order = append(g.order, name)
	if cycle := g.findCycle(name); cycle != nil {
		// Atomic rejection: revert before reporting.
		delete(g.prereqs, name)
		g.order = g.order[:len(g.order)-1]
		return &CycleError{Units: cycle}
	}
	return nil
}

// findCycle walks prerequisite edges from start and returns the closed walk
// if one exists.
func (g *Graph) findCycle(start string) []string {
	var walk []string
	seen := map[string]bool{}
	var visit func(name string) []string
	visit = func(name string) []string {
		if i := slices.Index(walk, name); i >= 0 {
			return slices.Clone(walk[i:])
		}
		if seen[name] {
			return nil
		}
		seen[name] = true
		walk = append(walk, name)
		for _, p := range g.prereqs[name] {
			if cycle := visit(p); cycle != nil {
				return cycle
			}
		}
		walk = walk[:len(walk)-1]
		return nil
	}
	return visit(start)
}

// Units returns all registered unit names in declaration order.
func (g *Graph) Units() []string {
	return slices.Clone(g.order)
}

// Prerequisites returns the direct prerequisites of name.
func (g *Graph) Prerequisites(name string) []string {
	return slices.Clone(g.prereqs[name])
}

// TopologicalOrder returns a total order consistent with every edge, with
// ties broken by declaration order. Because AddUnit refuses cycles, the
// order always covers every registered unit.
func (g *Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		indegree[name] = len(g.prereqs[name])
		for _, p := range g.prereqs[name] {
			dependents[p] = append(dependents[p], name)
		}
	}

	// Kahn's algorithm. The ready queue is kept in declaration order so the
	// result is stable across runs.
	ready := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = insertByDeclaration(g.order, ready, dep)
			}
		}
	}
	return out
}

// insertByDeclaration inserts name into ready keeping declaration order.
func insertByDeclaration(declared, ready []string, name string) []string {
	pos := slices.Index(declared, name)
	at := len(ready)
	for i, r := range ready {
		if slices.Index(declared, r) > pos {
			at = i
			break
		}
	}
	return slices.Insert(ready, at, name)
}
