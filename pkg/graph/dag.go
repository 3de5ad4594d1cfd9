package graph

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// DAG is the dependency-ordered form of a validated Graph
type DAG struct {
	// graph is the underlying structure from dominikbraun/graph
	graph graph.Graph[string, string]

	// nodeMap provides quick lookup of nodes by logical id
	nodeMap map[string]*Node

	// dependencies maps each node to its distinct dependencies
	dependencies map[string][]string

	// order contains the logical ids in stable topological order
	order []string
}

// BuildDAG converts a validated Graph into a DAG with a deterministic
// creation order: among nodes whose dependencies are all placed, the
// one with the smallest declaration index goes first. Repeated builds
// over an unchanged document therefore always produce the same order,
// which plan consumers depend on for idempotent re-application.
//
// BuildDAG must only be called on a graph that passed validation; a
// cyclic or otherwise inconsistent graph yields a PlanningError.
func BuildDAG(g *Graph) (*DAG, error) {
	if g == nil {
		return nil, &PlanningError{Reason: "graph is nil"}
	}

	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	nodeMap := make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		node := &g.Nodes[i]
		if _, exists := nodeMap[node.LogicalID]; exists {
			return nil, &PlanningError{Reason: fmt.Sprintf("duplicate logical id %q", node.LogicalID)}
		}
		nodeMap[node.LogicalID] = node

		if err := dg.AddVertex(node.LogicalID); err != nil {
			return nil, &PlanningError{Reason: fmt.Sprintf("failed to add vertex %s: %v", node.LogicalID, err)}
		}
	}

	// An edge dep -> id means dep must be created before id
	dependencies := make(map[string][]string, len(g.Nodes))
	for i := range g.Nodes {
		id := g.Nodes[i].LogicalID
		deps := g.DependencyIDs(id)
		dependencies[id] = deps

		for _, dep := range deps {
			if _, found := nodeMap[dep]; !found {
				return nil, &PlanningError{Reason: fmt.Sprintf("edge to unresolved id %q", dep)}
			}
			err := dg.AddEdge(dep, id)
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			if err != nil {
				// PreventCycles rejects cycle-closing edges; reaching
				// this on validated input is a contract violation
				return nil, &PlanningError{Reason: fmt.Sprintf("failed to add edge %s -> %s: %v", dep, id, err)}
			}
		}
	}

	order, err := graph.StableTopologicalSort(dg, func(a, b string) bool {
		return nodeMap[a].DeclIndex < nodeMap[b].DeclIndex
	})
	if err != nil {
		return nil, &PlanningError{Reason: fmt.Sprintf("topological sort failed: %v", err)}
	}

	return &DAG{
		graph:        dg,
		nodeMap:      nodeMap,
		dependencies: dependencies,
		order:        order,
	}, nil
}

// GetNode retrieves a node by logical id
func (d *DAG) GetNode(logicalID string) (*Node, bool) {
	node, found := d.nodeMap[logicalID]
	return node, found
}

// GetOrder returns the logical ids in stable topological order.
// Every dependency appears before its dependents.
func (d *DAG) GetOrder() []string {
	return d.order
}

// GetDependencies returns the distinct dependencies of a node
func (d *DAG) GetDependencies(logicalID string) ([]string, error) {
	deps, found := d.dependencies[logicalID]
	if !found {
		return nil, fmt.Errorf("node %s not found", logicalID)
	}
	return deps, nil
}

// GetDependents returns the logical ids that depend on the given node
func (d *DAG) GetDependents(logicalID string) ([]string, error) {
	if _, found := d.nodeMap[logicalID]; !found {
		return nil, fmt.Errorf("node %s not found", logicalID)
	}

	var dependents []string
	for _, id := range d.order {
		for _, dep := range d.dependencies[id] {
			if dep == logicalID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents, nil
}

// Size returns the number of nodes in the DAG
func (d *DAG) Size() int {
	return len(d.nodeMap)
}

// GetRootNodes returns nodes with no dependencies, in plan order
func (d *DAG) GetRootNodes() []string {
	var roots []string
	for _, id := range d.order {
		if len(d.dependencies[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetLeafNodes returns nodes no other node depends on, in plan order
func (d *DAG) GetLeafNodes() []string {
	hasDependents := make(map[string]bool)
	for _, deps := range d.dependencies {
		for _, dep := range deps {
			hasDependents[dep] = true
		}
	}

	var leaves []string
	for _, id := range d.order {
		if !hasDependents[id] {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// DeletionOrder returns the logical ids in reverse creation order,
// which is the dependency-safe order for teardown
func (d *DAG) DeletionOrder() []string {
	reversed := make([]string, len(d.order))
	for i, id := range d.order {
		reversed[len(d.order)-1-i] = id
	}
	return reversed
}
