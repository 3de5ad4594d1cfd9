package graph

import (
	"sort"
	"strings"

	"github.com/stackplan/stackplan/pkg/template"
)

// Reference marker keys recognized in property values
const (
	refKey    = "Ref"
	getAttKey = "Fn::GetAtt"
)

// pseudoParameterPrefix marks built-in pseudo parameters such as
// AWS::Region; references to them are not resource references
const pseudoParameterPrefix = "AWS::"

// Resolve scans every property value of every resource for reference
// markers and builds the dependency graph. It is a purely syntactic
// pass: whether a referenced attribute path is legal for the target's
// type is the validator's concern.
//
// References to absent logical ids are accumulated in the returned
// report; the graph still contains every resolvable edge so later
// checks can run over it.
func Resolve(t *template.Template) (*Graph, *ValidationReport) {
	g := &Graph{Nodes: make([]Node, 0, len(t.Resources))}
	for _, r := range t.Resources {
		g.Nodes = append(g.Nodes, Node{
			LogicalID:  r.LogicalID,
			Type:       r.Type,
			Properties: r.Properties,
			DeclIndex:  r.DeclIndex,
		})
	}
	g.index()

	report := NewValidationReport()
	scanner := &referenceScanner{tpl: t, graph: g, report: report}

	for _, r := range t.Resources {
		for _, dep := range r.DependsOn {
			scanner.record(Reference{From: r.LogicalID, To: dep, Kind: ReferenceKindExplicit})
		}
		scanner.source = r.LogicalID
		scanner.walk(r.Properties)
	}

	return g, report
}

// referenceScanner walks property trees collecting reference edges
type referenceScanner struct {
	tpl    *template.Template
	graph  *Graph
	report *ValidationReport
	source string
}

// walk descends into a property value looking for reference markers.
// Mapping keys are visited in sorted order so edge discovery, and with
// it every downstream artifact, is deterministic.
func (s *referenceScanner) walk(value any) {
	switch v := value.(type) {
	case map[string]any:
		if target, ok := IdentityMarker(v); ok {
			s.recordRef(target)
			return
		}
		if target, path, ok := AttributeMarker(v); ok {
			s.record(Reference{
				From:          s.source,
				To:            target,
				Kind:          ReferenceKindAttribute,
				AttributePath: path,
			})
			return
		}

		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			s.walk(v[key])
		}

	case []any:
		for _, item := range v {
			s.walk(item)
		}
	}
}

// recordRef handles an identity reference, which may legitimately point
// at a template parameter or a pseudo parameter instead of a resource
func (s *referenceScanner) recordRef(target string) {
	if strings.HasPrefix(target, pseudoParameterPrefix) || s.tpl.HasParameter(target) {
		return
	}
	s.record(Reference{From: s.source, To: target, Kind: ReferenceKindIdentity})
}

// record adds an edge if the target exists, or a violation if it does not
func (s *referenceScanner) record(edge Reference) {
	if _, found := s.graph.NodeByID(edge.To); !found {
		s.report.Add(&UnresolvedReferenceError{
			Source:        edge.From,
			Target:        edge.To,
			ReferenceKind: edge.Kind,
		})
		return
	}
	s.graph.Edges = append(s.graph.Edges, edge)
}

// IdentityMarker recognizes the identity reference form {"Ref": "Name"}
func IdentityMarker(v map[string]any) (string, bool) {
	if len(v) != 1 {
		return "", false
	}
	target, ok := v[refKey].(string)
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// AttributeMarker recognizes both derived-attribute reference forms:
// {"Fn::GetAtt": ["Name", "Path"]} and {"Fn::GetAtt": "Name.Path"}
func AttributeMarker(v map[string]any) (target, path string, ok bool) {
	if len(v) != 1 {
		return "", "", false
	}

	switch marker := v[getAttKey].(type) {
	case []any:
		if len(marker) < 2 {
			return "", "", false
		}
		parts := make([]string, 0, len(marker))
		for _, part := range marker {
			s, isString := part.(string)
			if !isString {
				return "", "", false
			}
			parts = append(parts, s)
		}
		return parts[0], strings.Join(parts[1:], "."), true

	case string:
		target, path, found := strings.Cut(marker, ".")
		if !found || target == "" || path == "" {
			return "", "", false
		}
		return target, path, true

	default:
		return "", "", false
	}
}
