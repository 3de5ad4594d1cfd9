package graph

import (
	"github.com/stackplan/stackplan/pkg/schema"
)

// AttributePolicy controls how strictly derived-attribute references
// are checked against the schema registry
type AttributePolicy string

const (
	// AttributePolicyStrict fails derived-attribute references naming
	// unknown attribute paths, and resources of unknown type
	AttributePolicyStrict AttributePolicy = "Strict"

	// AttributePolicyPermissive passes unknown attribute paths and
	// unknown resource types through to the external executor
	AttributePolicyPermissive AttributePolicy = "Permissive"
)

// Validator checks a resolved dependency graph against the schema
// registry and the strict-DAG domain requirement
type Validator struct {
	registry *schema.Registry
	policy   AttributePolicy
}

// NewValidator creates a validator. An empty policy defaults to strict.
func NewValidator(registry *schema.Registry, policy AttributePolicy) *Validator {
	if policy == "" {
		policy = AttributePolicyStrict
	}
	return &Validator{registry: registry, policy: policy}
}

// Validate runs every check to completion and accumulates all
// violations found, so the caller sees the full error set in one pass:
// (a) attribute reference legality, (b) cycle detection, (c) required
// properties.
func (v *Validator) Validate(g *Graph) *ValidationReport {
	report := NewValidationReport()
	v.checkAttributeReferences(g, report)
	v.checkCycles(g, report)
	v.checkRequiredProperties(g, report)
	return report
}

// checkAttributeReferences verifies every Attribute edge names a legal
// derived attribute of its target's type
func (v *Validator) checkAttributeReferences(g *Graph, report *ValidationReport) {
	if v.policy == AttributePolicyPermissive {
		return
	}

	for _, edge := range g.Edges {
		if edge.Kind != ReferenceKindAttribute {
			continue
		}

		target, found := g.NodeByID(edge.To)
		if !found {
			// Already reported as unresolved during resolution
			continue
		}

		targetSchema, found := v.registry.Lookup(target.Type)
		if !found {
			// Unknown types are reported once per node below
			continue
		}

		if !targetSchema.HasAttribute(edge.AttributePath) {
			report.Add(&InvalidAttributeReferenceError{
				Source:        edge.From,
				Target:        edge.To,
				TargetType:    target.Type,
				AttributePath: edge.AttributePath,
			})
		}
	}
}

// DFS colors for cycle detection
const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// checkCycles detects reference cycles via depth-first traversal with a
// three-color mark. A back edge to an in-progress node yields the
// minimal cycle formed by the traversal stack.
func (v *Validator) checkCycles(g *Graph, report *ValidationReport) {
	colors := make(map[string]int, len(g.Nodes))
	stack := make([]string, 0, len(g.Nodes))

	var visit func(logicalID string)
	visit = func(logicalID string) {
		colors[logicalID] = colorInProgress
		stack = append(stack, logicalID)

		for _, dep := range g.DependencyIDs(logicalID) {
			switch colors[dep] {
			case colorUnvisited:
				visit(dep)
			case colorInProgress:
				report.Add(&CyclicDependencyError{Cycle: extractCycle(stack, dep)})
			}
		}

		stack = stack[:len(stack)-1]
		colors[logicalID] = colorDone
	}

	for _, node := range g.Nodes {
		if colors[node.LogicalID] == colorUnvisited {
			visit(node.LogicalID)
		}
	}
}

// extractCycle returns the stack segment starting at the back edge's
// target, which is exactly the cycle the traversal closed
func extractCycle(stack []string, target string) []string {
	for i, id := range stack {
		if id == target {
			cycle := make([]string, len(stack)-i)
			copy(cycle, stack[i:])
			return cycle
		}
	}
	return []string{target}
}

// checkRequiredProperties verifies every schema-required property is
// present on every node
func (v *Validator) checkRequiredProperties(g *Graph, report *ValidationReport) {
	for i := range g.Nodes {
		node := &g.Nodes[i]

		nodeSchema, found := v.registry.Lookup(node.Type)
		if !found {
			if v.policy == AttributePolicyStrict {
				report.Add(&UnknownResourceTypeError{
					LogicalID: node.LogicalID,
					Type:      node.Type,
				})
			}
			continue
		}

		for _, required := range nodeSchema.Required {
			if _, present := node.Properties[required]; !present {
				report.Add(&MissingRequiredAttributeError{
					LogicalID: node.LogicalID,
					Type:      node.Type,
					Attribute: required,
				})
			}
		}
	}
}
