// Package plan derives the ordered execution plan handed to an
// external provisioning executor.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/stackplan/stackplan/pkg/graph"
	"github.com/stackplan/stackplan/pkg/schema"
)

// Step is one resource record in an execution plan
type Step struct {
	// LogicalID is the resource's document-unique name
	LogicalID string `json:"logicalId" yaml:"logicalId"`

	// Type is the namespaced resource type name
	Type string `json:"type" yaml:"type"`

	// Category is the broad classification of the resource type
	Category schema.Category `json:"category,omitempty" yaml:"category,omitempty"`

	// Properties is the attribute mapping with reference markers
	// resolved to concrete target ids
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	// DependsOn lists the step's distinct dependencies
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// Plan is an ordered sequence of steps such that every dependency
// appears before its dependents. It is derived once per validated
// document and not persisted by this subsystem.
type Plan struct {
	// Steps in creation order
	Steps []Step `json:"steps" yaml:"steps"`

	// Hash is a content hash of the steps for change detection
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// Build derives a plan from a DAG that passed validation. Properties
// are deep-copied with reference markers replaced by their concrete
// targets; the source graph is never mutated.
func Build(dag *graph.DAG, registry *schema.Registry) (*Plan, error) {
	if dag == nil {
		return nil, &graph.PlanningError{Reason: "DAG is nil"}
	}

	p := &Plan{Steps: make([]Step, 0, dag.Size())}

	for _, logicalID := range dag.GetOrder() {
		node, found := dag.GetNode(logicalID)
		if !found {
			return nil, &graph.PlanningError{Reason: fmt.Sprintf("ordered id %q has no node", logicalID)}
		}

		deps, err := dag.GetDependencies(logicalID)
		if err != nil {
			return nil, &graph.PlanningError{Reason: err.Error()}
		}

		step := Step{
			LogicalID:  node.LogicalID,
			Type:       node.Type,
			Category:   categorize(registry, node.Type),
			Properties: resolveProperties(dag, node.Properties),
			DependsOn:  deps,
		}
		p.Steps = append(p.Steps, step)
	}

	p.SetHash()
	return p, nil
}

// Size returns the number of steps in the plan
func (p *Plan) Size() int {
	return len(p.Steps)
}

// StepFor returns the step for a logical id
func (p *Plan) StepFor(logicalID string) (*Step, bool) {
	for i := range p.Steps {
		if p.Steps[i].LogicalID == logicalID {
			return &p.Steps[i], true
		}
	}
	return nil, false
}

// ComputeHash computes a content hash of the plan's steps
func (p *Plan) ComputeHash() string {
	data, err := json.Marshal(p.Steps)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

// SetHash computes and sets the Hash field
func (p *Plan) SetHash() {
	p.Hash = p.ComputeHash()
}

// HasChanged returns true if the plan differs from a previous hash
func (p *Plan) HasChanged(previousHash string) bool {
	if previousHash == "" {
		return true
	}
	return p.ComputeHash() != previousHash
}

func categorize(registry *schema.Registry, resourceType string) schema.Category {
	if registry != nil {
		if s, found := registry.Lookup(resourceType); found {
			return s.Category
		}
	}
	return schema.Categorize(resourceType)
}

// resolveProperties deep-copies a property tree with reference markers
// replaced: identity markers become the target logical id, attribute
// markers become "Target.AttributePath". Markers whose target is not a
// resource in the graph (parameter and pseudo-parameter references)
// pass through untouched for the executor to substitute.
func resolveProperties(dag *graph.DAG, properties map[string]any) map[string]any {
	if properties == nil {
		return nil
	}
	return resolveValue(dag, properties).(map[string]any)
}

func resolveValue(dag *graph.DAG, value any) any {
	switch v := value.(type) {
	case map[string]any:
		if target, ok := graph.IdentityMarker(v); ok {
			if _, found := dag.GetNode(target); found {
				return target
			}
			return copyMap(dag, v)
		}
		if target, path, ok := graph.AttributeMarker(v); ok {
			if _, found := dag.GetNode(target); found {
				return target + "." + path
			}
			return copyMap(dag, v)
		}
		return copyMap(dag, v)

	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			resolved[i] = resolveValue(dag, item)
		}
		return resolved

	default:
		return v
	}
}

func copyMap(dag *graph.DAG, v map[string]any) map[string]any {
	resolved := make(map[string]any, len(v))
	for key, item := range v {
		resolved[key] = resolveValue(dag, item)
	}
	return resolved
}
