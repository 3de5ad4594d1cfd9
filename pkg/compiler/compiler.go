// Package compiler wires parsing, reference resolution, validation,
// and planning into a single pipeline. A caller receives either a
// complete execution plan or the complete set of violations, never a
// partially resolved result.
package compiler

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/stackplan/stackplan/pkg/graph"
	"github.com/stackplan/stackplan/pkg/metrics"
	"github.com/stackplan/stackplan/pkg/plan"
	"github.com/stackplan/stackplan/pkg/schema"
	"github.com/stackplan/stackplan/pkg/template"
)

// Config contains configuration for a Compiler
type Config struct {
	// Registry is the schema registry to validate against.
	// Defaults to the embedded registry.
	Registry *schema.Registry

	// AttributePolicy controls strict vs permissive checking of
	// derived-attribute references. Defaults to strict.
	AttributePolicy graph.AttributePolicy

	// Logger receives pipeline progress at V(1).
	// Defaults to logr.Discard().
	Logger logr.Logger
}

// Compiler turns raw template documents into execution plans
type Compiler struct {
	registry  *schema.Registry
	validator *graph.Validator
	log       logr.Logger
}

// New creates a compiler from the given configuration
func New(cfg Config) (*Compiler, error) {
	registry := cfg.Registry
	if registry == nil {
		loaded, err := schema.LoadEmbedded()
		if err != nil {
			return nil, err
		}
		registry = loaded
	}

	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Compiler{
		registry:  registry,
		validator: graph.NewValidator(registry, cfg.AttributePolicy),
		log:       log,
	}, nil
}

// Compile parses, resolves, validates, and plans a raw template
// document. On validation failure the returned error is a
// *graph.ValidationReport carrying every violation found.
func (c *Compiler) Compile(data []byte) (*plan.Plan, error) {
	start := time.Now()

	tpl, err := template.Parse(data)
	if err != nil {
		metrics.RecordCompile(metrics.ResultParseError, time.Since(start))
		return nil, err
	}

	p, err := c.CompileTemplate(tpl)
	if err != nil {
		result := metrics.ResultInternal
		if _, invalid := err.(*graph.ValidationReport); invalid {
			result = metrics.ResultInvalid
		}
		metrics.RecordCompile(result, time.Since(start))
		return nil, err
	}

	metrics.RecordCompile(metrics.ResultSuccess, time.Since(start))
	metrics.RecordPlanSize(p.Size())
	return p, nil
}

// CompileTemplate runs the pipeline on an already parsed template
func (c *Compiler) CompileTemplate(tpl *template.Template) (*plan.Plan, error) {
	g, report := graph.Resolve(tpl)
	c.log.V(1).Info("resolved references", "nodes", g.Size(), "edges", len(g.Edges))

	report.Merge(c.validator.Validate(g))
	if !report.Empty() {
		c.log.V(1).Info("validation failed", "violations", len(report.Violations))
		metrics.RecordViolations(report.CountByKind())
		return nil, report
	}

	dag, err := graph.BuildDAG(g)
	if err != nil {
		return nil, err
	}

	p, err := plan.Build(dag, c.registry)
	if err != nil {
		return nil, err
	}

	c.log.V(1).Info("built execution plan", "steps", p.Size(), "hash", p.Hash)
	return p, nil
}
