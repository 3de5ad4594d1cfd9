// Package graph discovers references between resource declarations,
// validates the resulting dependency graph, and computes the
// deterministic creation order used by the planner.
package graph
