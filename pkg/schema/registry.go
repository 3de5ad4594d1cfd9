// Package schema provides the registry of known resource types.
// Type shapes (required and optional properties, derived attributes) are
// authored as CUE definitions embedded in the binary.
package schema

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/stackplan/stackplan/schemas"
)

// ResourceSchema describes the attribute shape of a single resource type
type ResourceSchema struct {
	// Type is the namespaced resource type name (e.g. "AWS::EC2::VPC")
	Type string `json:"type"`

	// Category is the broad classification of the resource type
	Category Category `json:"category"`

	// Required lists properties that must be present on every declaration
	Required []string `json:"required"`

	// Optional lists properties that may be present
	Optional []string `json:"optional"`

	// Attributes lists the derived attribute paths that may be referenced
	// on this type (the legal Fn::GetAtt targets)
	Attributes []string `json:"attributes"`
}

// HasProperty reports whether name is a known (required or optional) property
func (s *ResourceSchema) HasProperty(name string) bool {
	for _, p := range s.Required {
		if p == name {
			return true
		}
	}
	for _, p := range s.Optional {
		if p == name {
			return true
		}
	}
	return false
}

// HasAttribute reports whether path is a legal derived attribute reference.
// Only the first path segment is schema-checked; deeper segments address
// into structured attribute values and are passed through.
func (s *ResourceSchema) HasAttribute(path string) bool {
	root := firstSegment(path)
	for _, a := range s.Attributes {
		if a == root {
			return true
		}
	}
	return false
}

func firstSegment(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

// Registry holds the known resource type schemas
type Registry struct {
	mu    sync.RWMutex
	types map[string]*ResourceSchema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*ResourceSchema),
	}
}

// Register adds a schema to the registry
// Registering the same type twice is an error
func (r *Registry) Register(s *ResourceSchema) error {
	if s.Type == "" {
		return fmt.Errorf("schema type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[s.Type]; exists {
		return fmt.Errorf("duplicate schema for type %s", s.Type)
	}
	r.types[s.Type] = s
	return nil
}

// Lookup retrieves the schema for a resource type
func (r *Registry) Lookup(resourceType string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, found := r.types[resourceType]
	return s, found
}

// Types returns the registered type names in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered types
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}

var (
	embeddedOnce     sync.Once
	embeddedRegistry *Registry
	embeddedErr      error
)

// LoadEmbedded loads the registry from the CUE definitions embedded in the
// binary. The result is compiled once and shared across callers.
func LoadEmbedded() (*Registry, error) {
	embeddedOnce.Do(func() {
		embeddedRegistry, embeddedErr = loadFromFS(schemas.SchemaFS, schemas.SchemaDir)
	})
	return embeddedRegistry, embeddedErr
}

// loadFromFS compiles every .cue file under dir in fsys, unifies them into a
// single value, and decodes the top-level "schemas" struct.
func loadFromFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}

	ctx := cuecontext.New()
	var merged cue.Value
	compiled := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < 4 || name[len(name)-4:] != ".cue" {
			continue
		}

		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %s: %w", name, err)
		}

		value := ctx.CompileBytes(data)
		if value.Err() != nil {
			return nil, fmt.Errorf("failed to compile schema file %s: %w", name, value.Err())
		}

		if compiled == 0 {
			merged = value
		} else {
			merged = merged.Unify(value)
		}
		compiled++
	}

	if compiled == 0 {
		return nil, fmt.Errorf("no schema files found in %s", dir)
	}
	if merged.Err() != nil {
		return nil, fmt.Errorf("failed to unify schema files: %w", merged.Err())
	}

	return decodeRegistry(merged)
}

// decodeRegistry extracts the "schemas" struct from a CUE value
func decodeRegistry(value cue.Value) (*Registry, error) {
	root := value.LookupPath(cue.ParsePath("schemas"))
	if !root.Exists() {
		return nil, fmt.Errorf("no schemas definition found in CUE value")
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate schemas: %w", err)
	}

	registry := NewRegistry()
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			return nil, fmt.Errorf("invalid schema type label: %s", sel)
		}
		typeName := sel.Unquoted()

		var decoded struct {
			Category   string   `json:"category"`
			Required   []string `json:"required"`
			Optional   []string `json:"optional"`
			Attributes []string `json:"attributes"`
		}
		if err := iter.Value().Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode schema for %s: %w", typeName, err)
		}

		s := &ResourceSchema{
			Type:       typeName,
			Category:   Category(decoded.Category),
			Required:   decoded.Required,
			Optional:   decoded.Optional,
			Attributes: decoded.Attributes,
		}
		if s.Category == "" {
			s.Category = Categorize(typeName)
		}

		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
