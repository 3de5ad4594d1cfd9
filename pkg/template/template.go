// Package template parses infrastructure template documents into typed
// resource declarations, preserving declaration order.
package template

// Template is the parsed form of an infrastructure template document
type Template struct {
	// FormatVersion is the declared template format version, if any
	FormatVersion string `json:"formatVersion,omitempty"`

	// Description is the template description, if any
	Description string `json:"description,omitempty"`

	// Parameters lists declared parameter names in declaration order.
	// References to parameters are not resource references.
	Parameters []string `json:"parameters,omitempty"`

	// Resources lists the resource declarations in declaration order
	Resources []Resource `json:"resources"`
}

// Resource is a single resource declaration
type Resource struct {
	// LogicalID is the document-unique name of the declaration
	LogicalID string `json:"logicalId"`

	// Type is the namespaced resource type name (e.g. "AWS::EC2::Subnet")
	Type string `json:"type"`

	// Properties maps attribute names to scalar, list, or nested values.
	// Reference markers are left in place; discovering them is the
	// resolver's job.
	Properties map[string]any `json:"properties,omitempty"`

	// DependsOn lists logical ids the declaration explicitly depends on
	DependsOn []string `json:"dependsOn,omitempty"`

	// DeclIndex is the zero-based declaration position within the
	// document, used as the planner's tiebreak key
	DeclIndex int `json:"declIndex"`
}

// ResourceByID returns the resource with the given logical id
func (t *Template) ResourceByID(logicalID string) (*Resource, bool) {
	for i := range t.Resources {
		if t.Resources[i].LogicalID == logicalID {
			return &t.Resources[i], true
		}
	}
	return nil, false
}

// HasParameter reports whether name is a declared parameter
func (t *Template) HasParameter(name string) bool {
	for _, p := range t.Parameters {
		if p == name {
			return true
		}
	}
	return false
}
