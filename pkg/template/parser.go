package template

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseError indicates a malformed template document.
// It is fatal: no resolution or planning happens on a document that
// failed to parse.
type ParseError struct {
	// Message describes what is malformed
	Message string

	// Line and Column locate the problem in the source document when
	// known (1-based, 0 when unavailable)
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func parseErrorf(node *yaml.Node, format string, args ...any) *ParseError {
	err := &ParseError{Message: fmt.Sprintf(format, args...)}
	if node != nil {
		err.Line = node.Line
		err.Column = node.Column
	}
	return err
}

// topLevelKeys are the recognized top-level template sections
var topLevelKeys = map[string]bool{
	"AWSTemplateFormatVersion": true,
	"Description":              true,
	"Metadata":                 true,
	"Parameters":               true,
	"Mappings":                 true,
	"Conditions":               true,
	"Transform":                true,
	"Resources":                true,
	"Outputs":                  true,
}

// resourceKeys are the recognized keys within a resource declaration
var resourceKeys = map[string]bool{
	"Type":                true,
	"Properties":          true,
	"DependsOn":           true,
	"Condition":           true,
	"Metadata":            true,
	"DeletionPolicy":      true,
	"UpdateReplacePolicy": true,
	"CreationPolicy":      true,
	"UpdatePolicy":        true,
}

// Parse turns serialized template text (YAML or JSON) into a Template.
// Declaration order of resources is preserved; this is why parsing goes
// through the yaml Node API rather than plain map decoding, which would
// lose mapping order.
func Parse(data []byte) (*Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ParseError{Message: "empty document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseErrorf(root, "top level must be a mapping, got %s", kindName(root.Kind))
	}

	tpl := &Template{}
	sawResources := false

	for i := 0; i < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		key := keyNode.Value

		if !topLevelKeys[key] {
			return nil, parseErrorf(keyNode, "unknown top-level key %q", key)
		}

		switch key {
		case "AWSTemplateFormatVersion":
			tpl.FormatVersion = valueNode.Value
		case "Description":
			tpl.Description = valueNode.Value
		case "Parameters":
			names, err := parseParameters(valueNode)
			if err != nil {
				return nil, err
			}
			tpl.Parameters = names
		case "Resources":
			resources, err := parseResources(valueNode)
			if err != nil {
				return nil, err
			}
			tpl.Resources = resources
			sawResources = true
		}
	}

	if !sawResources {
		return nil, &ParseError{Message: "missing Resources section"}
	}

	return tpl, nil
}

// parseParameters collects declared parameter names in order
func parseParameters(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, parseErrorf(node, "Parameters must be a mapping, got %s", kindName(node.Kind))
	}

	names := make([]string, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		names = append(names, node.Content[i].Value)
	}
	return names, nil
}

// parseResources turns the Resources mapping into ordered declarations
func parseResources(node *yaml.Node) ([]Resource, error) {
	if node.Kind != yaml.MappingNode {
		return nil, parseErrorf(node, "Resources must be a mapping, got %s", kindName(node.Kind))
	}
	if len(node.Content) == 0 {
		return nil, parseErrorf(node, "Resources must not be empty")
	}

	seen := make(map[string]bool, len(node.Content)/2)
	resources := make([]Resource, 0, len(node.Content)/2)

	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		logicalID := keyNode.Value

		if seen[logicalID] {
			return nil, parseErrorf(keyNode, "duplicate logical id %q", logicalID)
		}
		seen[logicalID] = true

		resource, err := parseResource(logicalID, valueNode)
		if err != nil {
			return nil, err
		}
		resource.DeclIndex = len(resources)
		resources = append(resources, *resource)
	}

	return resources, nil
}

// parseResource parses a single resource declaration body
func parseResource(logicalID string, node *yaml.Node) (*Resource, error) {
	if node.Kind != yaml.MappingNode {
		return nil, parseErrorf(node, "resource %q must be a mapping, got %s", logicalID, kindName(node.Kind))
	}

	resource := &Resource{LogicalID: logicalID}

	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		key := keyNode.Value

		if !resourceKeys[key] {
			return nil, parseErrorf(keyNode, "resource %q has unknown key %q", logicalID, key)
		}

		switch key {
		case "Type":
			if valueNode.Kind != yaml.ScalarNode || valueNode.Tag != "!!str" {
				return nil, parseErrorf(valueNode, "resource %q Type must be a string", logicalID)
			}
			resource.Type = valueNode.Value
		case "Properties":
			if valueNode.Kind != yaml.MappingNode {
				return nil, parseErrorf(valueNode, "resource %q Properties must be a mapping", logicalID)
			}
			properties := make(map[string]any)
			if err := valueNode.Decode(&properties); err != nil {
				return nil, parseErrorf(valueNode, "resource %q Properties: %v", logicalID, err)
			}
			resource.Properties = properties
		case "DependsOn":
			dependsOn, err := parseDependsOn(logicalID, valueNode)
			if err != nil {
				return nil, err
			}
			resource.DependsOn = dependsOn
		}
	}

	if resource.Type == "" {
		return nil, parseErrorf(node, "resource %q is missing Type", logicalID)
	}

	return resource, nil
}

// parseDependsOn accepts both the single-string and list forms
func parseDependsOn(logicalID string, node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		ids := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, parseErrorf(item, "resource %q DependsOn entries must be strings", logicalID)
			}
			ids = append(ids, item.Value)
		}
		return ids, nil
	default:
		return nil, parseErrorf(node, "resource %q DependsOn must be a string or list", logicalID)
	}
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
