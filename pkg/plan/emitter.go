package plan

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the serialization format for an emitted plan
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Emit serializes the plan to w in the given format. Output bytes are
// deterministic for a given plan: both encoders order mapping keys, so
// repeated emission of the same plan is byte-identical.
func Emit(w io.Writer, p *Plan, format Format) error {
	switch format {
	case FormatJSON, "":
		return EmitJSON(w, p)
	case FormatYAML:
		return EmitYAML(w, p)
	default:
		return fmt.Errorf("unknown plan format %q", format)
	}
}

// EmitJSON writes the plan as indented JSON
func EmitJSON(w io.Writer, p *Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// EmitYAML writes the plan as YAML
func EmitYAML(w io.Writer, p *Plan) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(p); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return encoder.Close()
}
