// Package inventory tracks resources provisioned from execution plans
// across runs. It detects orphaned resources whose declarations were
// removed from the template and calculates step hashes for drift
// detection.
package inventory
