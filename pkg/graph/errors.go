package graph

import (
	"fmt"
	"strings"
)

// Violation is a single validation finding. Violations are accumulated
// into a ValidationReport rather than aborting the scan, so a caller
// sees every problem in one pass.
type Violation interface {
	error

	// Kind returns the violation kind name for reporting and metrics
	Kind() string
}

// Violation kind names
const (
	KindUnresolvedReference       = "UnresolvedReference"
	KindInvalidAttributeReference = "InvalidAttributeReference"
	KindMissingRequiredAttribute  = "MissingRequiredAttribute"
	KindCyclicDependency          = "CyclicDependency"
	KindUnknownResourceType       = "UnknownResourceType"
)

// UnresolvedReferenceError reports a reference to a logical id that is
// absent from the document
type UnresolvedReferenceError struct {
	// Source is the logical id of the referencing resource
	Source string

	// Target is the missing logical id
	Target string

	// ReferenceKind tags how the reference was declared
	ReferenceKind ReferenceKind
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("resource %q references unknown logical id %q", e.Source, e.Target)
}

func (e *UnresolvedReferenceError) Kind() string { return KindUnresolvedReference }

// InvalidAttributeReferenceError reports a derived-attribute reference
// naming an attribute path that is not legal for the target's type
type InvalidAttributeReferenceError struct {
	Source        string
	Target        string
	TargetType    string
	AttributePath string
}

func (e *InvalidAttributeReferenceError) Error() string {
	return fmt.Sprintf("resource %q references attribute %q which is not defined for %s %q",
		e.Source, e.AttributePath, e.TargetType, e.Target)
}

func (e *InvalidAttributeReferenceError) Kind() string { return KindInvalidAttributeReference }

// MissingRequiredAttributeError reports a resource missing a property
// its schema requires
type MissingRequiredAttributeError struct {
	LogicalID string
	Type      string
	Attribute string
}

func (e *MissingRequiredAttributeError) Error() string {
	return fmt.Sprintf("resource %q (%s) is missing required property %q", e.LogicalID, e.Type, e.Attribute)
}

func (e *MissingRequiredAttributeError) Kind() string { return KindMissingRequiredAttribute }

// CyclicDependencyError reports one minimal reference cycle
type CyclicDependencyError struct {
	// Cycle lists the logical ids along the cycle; the last entry
	// depends on the first
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	return fmt.Sprintf("dependency cycle: %s -> %s", strings.Join(e.Cycle, " -> "), e.Cycle[0])
}

func (e *CyclicDependencyError) Kind() string { return KindCyclicDependency }

// UnknownResourceTypeError reports a resource whose type is absent from
// the schema registry. It is emitted only under the strict attribute
// policy; the permissive policy passes unknown types through to the
// external executor.
type UnknownResourceTypeError struct {
	LogicalID string
	Type      string
}

func (e *UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("resource %q has unknown type %q", e.LogicalID, e.Type)
}

func (e *UnknownResourceTypeError) Kind() string { return KindUnknownResourceType }

// PlanningError indicates the planner was invoked on a graph that did
// not pass through validation. It is a programming-contract violation,
// not a user-facing document problem.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning contract violation: %s", e.Reason)
}

// ValidationReport accumulates every violation found across all
// validation phases. It implements error so a caller can surface the
// whole report at once; no plan is produced while the report is
// non-empty.
type ValidationReport struct {
	Violations []Violation
}

// NewValidationReport creates an empty report
func NewValidationReport() *ValidationReport {
	return &ValidationReport{}
}

// Add appends a violation to the report
func (r *ValidationReport) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Merge appends all violations from another report
func (r *ValidationReport) Merge(other *ValidationReport) {
	if other == nil {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Empty reports whether no violations were recorded
func (r *ValidationReport) Empty() bool {
	return len(r.Violations) == 0
}

// CountByKind returns the number of violations per kind name
func (r *ValidationReport) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, v := range r.Violations {
		counts[v.Kind()]++
	}
	return counts
}

func (r *ValidationReport) Error() string {
	if r.Empty() {
		return "no violations"
	}

	lines := make([]string, 0, len(r.Violations)+1)
	lines = append(lines, fmt.Sprintf("%d validation violation(s):", len(r.Violations)))
	for _, v := range r.Violations {
		lines = append(lines, fmt.Sprintf("  [%s] %s", v.Kind(), v.Error()))
	}
	return strings.Join(lines, "\n")
}
