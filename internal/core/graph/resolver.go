// Package graph linearizes container definitions into a start-safe order.
//
// This is part of the Functional Core - ResolveOrder never looks at live
// runtime state.
package graph

import (
	"github.com/artpar/dockwrkr/internal/core/domain"
)

// =============================================================================
// Dependency Nodes
// =============================================================================

// Node is a container and the names it depends on, built on demand from a
// definition and discarded after resolution.
type Node struct {
	Name string
	Deps []string
}

// NodeOf builds the dependency node of a definition.
func NodeOf(def domain.ContainerDefinition) Node {
	return Node{Name: def.Name, Deps: def.Dependencies()}
}

// visit marks used by the depth-first traversal.
type mark int

const (
	unvisited mark = iota
	visiting
	done
)

// =============================================================================
// Resolution
// =============================================================================

// ResolveOrder returns every defined container exactly once, each after all
// of its transitive dependencies.
//
// Traversal starts from each definition in document order and resolves a
// node's dependencies depth-first before appending the node itself, so the
// result is deterministic for a fixed document but is not necessarily the
// document order.
//
// Link targets are validated first; an undefined target fails with
// ErrMissingLink naming every missing target of the first offending
// container. A cycle fails with ErrDependencyCycle and the closing path.
//
// Example:
//
//	// a links b, c links a
//	order, _ := ResolveOrder(defs) // [b a c]
func ResolveOrder(defs []domain.ContainerDefinition) ([]string, error) {
	nodes := make(map[string]Node, len(defs))
	for _, d := range defs {
		nodes[d.Name] = NodeOf(d)
	}

	if err := checkLinks(defs, nodes); err != nil {
		return nil, err
	}

	marks := make(map[string]mark, len(defs))
	order := make([]string, 0, len(defs))
	var stack []string

	var resolve func(name string) error
	resolve = func(name string) error {
		switch marks[name] {
		case done:
			return nil
		case visiting:
			return &domain.DependencyError{
				Container: name,
				Cycle:     cyclePath(stack, name),
				Err:       domain.ErrDependencyCycle,
			}
		}

		marks[name] = visiting
		stack = append(stack, name)
		for _, dep := range nodes[name].Deps {
			if err := resolve(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = done
		order = append(order, name)
		return nil
	}

	for _, d := range defs {
		if err := resolve(d.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// checkLinks fails on the first definition linking to an undefined name.
func checkLinks(defs []domain.ContainerDefinition, nodes map[string]Node) error {
	for _, d := range defs {
		var missing []string
		for _, dep := range nodes[d.Name].Deps {
			if _, ok := nodes[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return &domain.DependencyError{
				Container: d.Name,
				Missing:   missing,
				Err:       domain.ErrMissingLink,
			}
		}
	}
	return nil
}

// cyclePath returns the part of the traversal stack that loops back to name.
func cyclePath(stack []string, name string) []string {
	for i, n := range stack {
		if n == name {
			path := append([]string{}, stack[i:]...)
			return append(path, name)
		}
	}
	return []string{name, name}
}

// =============================================================================
// Subsets
// =============================================================================

// Subset keeps the names of order that appear in names, preserving order.
// Dependencies are never pulled in: only requested containers are returned.
func Subset(order, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range order {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

// Reverse returns a reversed copy of order, used for teardown.
func Reverse(order []string) []string {
	out := make([]string, len(order))
	for i, n := range order {
		out[len(order)-1-i] = n
	}
	return out
}
