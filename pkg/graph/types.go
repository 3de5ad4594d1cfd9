package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// ReferenceKind tags how a dependency was declared
type ReferenceKind string

const (
	// ReferenceKindIdentity is a direct reference to another resource's
	// logical id (a Ref marker)
	ReferenceKindIdentity ReferenceKind = "Identity"

	// ReferenceKindAttribute is a reference to a derived attribute of
	// another resource (a Fn::GetAtt marker)
	ReferenceKindAttribute ReferenceKind = "Attribute"

	// ReferenceKindExplicit is an explicit DependsOn declaration
	ReferenceKindExplicit ReferenceKind = "Explicit"
)

// Reference is a directed edge from a dependent resource to one of its
// dependencies
type Reference struct {
	// From is the logical id of the dependent resource
	From string `json:"from"`

	// To is the logical id of the dependency
	To string `json:"to"`

	// Kind tags how the dependency was declared
	Kind ReferenceKind `json:"kind"`

	// AttributePath is the referenced attribute path for Attribute edges
	// (e.g. "AllocationId"), empty otherwise
	AttributePath string `json:"attributePath,omitempty"`
}

// Node is a single resource in the dependency graph.
// Nodes are created at resolve time and immutable within a planning run.
type Node struct {
	// LogicalID is the document-unique name of the resource
	LogicalID string `json:"logicalId"`

	// Type is the namespaced resource type name
	Type string `json:"type"`

	// Properties maps attribute names to values with reference markers
	// left in place
	Properties map[string]any `json:"properties,omitempty"`

	// DeclIndex is the declaration position, the planner's tiebreak key
	DeclIndex int `json:"declIndex"`
}

// Graph owns the resource nodes and reference edges of one document
type Graph struct {
	// Nodes in declaration order
	Nodes []Node `json:"nodes"`

	// Edges holds every discovered reference, including duplicates when
	// a resource references the same dependency through several markers
	Edges []Reference `json:"edges,omitempty"`

	byID map[string]*Node
}

// NodeByID retrieves a node by logical id
func (g *Graph) NodeByID(logicalID string) (*Node, bool) {
	if g.byID == nil {
		g.index()
	}
	node, found := g.byID[logicalID]
	return node, found
}

// Size returns the number of nodes in the graph
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// EdgesFrom returns all reference edges originating at the given node
func (g *Graph) EdgesFrom(logicalID string) []Reference {
	var edges []Reference
	for _, edge := range g.Edges {
		if edge.From == logicalID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// DependencyIDs returns the distinct dependencies of a node, ordered by
// the dependency's declaration index so traversal order is stable
func (g *Graph) DependencyIDs(logicalID string) []string {
	if g.byID == nil {
		g.index()
	}
	seen := make(map[string]bool)
	var deps []string
	for _, edge := range g.Edges {
		if edge.From != logicalID || seen[edge.To] {
			continue
		}
		seen[edge.To] = true
		deps = append(deps, edge.To)
	}

	sort.Slice(deps, func(i, j int) bool {
		a, b := g.byID[deps[i]], g.byID[deps[j]]
		return a.DeclIndex < b.DeclIndex
	})
	return deps
}

// ComputeHash computes a content hash of the graph for change detection
// by plan consumers
func (g *Graph) ComputeHash() string {
	type hashableGraph struct {
		Nodes []Node      `json:"nodes"`
		Edges []Reference `json:"edges"`
	}

	data, err := json.Marshal(hashableGraph{Nodes: g.Nodes, Edges: g.Edges})
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

// index rebuilds the logical id lookup table
func (g *Graph) index() {
	g.byID = make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		g.byID[g.Nodes[i].LogicalID] = &g.Nodes[i]
	}
}
