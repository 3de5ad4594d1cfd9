// Package executor runs an execution plan against a provisioning
// backend, applying independent steps concurrently while honoring the
// plan's dependency order.
package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc/pool"

	"github.com/stackplan/stackplan/pkg/inventory"
	"github.com/stackplan/stackplan/pkg/plan"
)

// Applier is the interface for provisioning a single plan step
type Applier interface {
	// Apply provisions the resource described by the step. The step's
	// references are already resolved to logical ids.
	Apply(ctx context.Context, step *plan.Step) error
}

// Config contains configuration for the plan executor
type Config struct {
	// MaxConcurrency is the maximum number of steps to apply concurrently
	// Default: 10
	MaxConcurrency int

	// RetryBackoffBase is the base duration for exponential backoff
	// Default: 1 second
	RetryBackoffBase time.Duration

	// RetryBackoffMax is the maximum backoff duration
	// Default: 5 minutes
	RetryBackoffMax time.Duration

	// MaxRetries is the maximum number of retries per step
	// Default: 3
	MaxRetries int

	// Tracker, when set, records created and failed steps so that a
	// later run can detect orphans and drift
	Tracker *inventory.Tracker

	// Logger receives per-step progress at V(1)
	Logger logr.Logger
}

// DefaultConfig returns the default executor configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   10,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  5 * time.Minute,
		MaxRetries:       3,
	}
}

// Executor executes a plan with dependency-aware parallel execution
type Executor struct {
	config  Config
	applier Applier
	tracker *inventory.Tracker
	log     logr.Logger
}

// NewExecutor creates a new plan executor
func NewExecutor(applier Applier, config Config) *Executor {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Executor{
		config:  config,
		applier: applier,
		tracker: config.Tracker,
		log:     log,
	}
}

// Execute applies the plan's steps in waves. A step runs only once
// every step it depends on has been created. Steps in the same wave
// run concurrently, bounded by MaxConcurrency.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan) (*ExecutionState, error) {
	if p == nil {
		return nil, fmt.Errorf("plan cannot be nil")
	}

	ids := make([]string, 0, p.Size())
	for _, step := range p.Steps {
		ids = append(ids, step.LogicalID)
	}
	state := NewExecutionState(ids)

	// A failed step with retry budget left is still runnable, so the
	// loop exits only when no step is ready: all created, out of
	// retries, or stuck behind a failed dependency.
	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		ready := e.findReadySteps(p, state)
		if len(ready) == 0 {
			break
		}

		e.executeWave(ctx, p, state, ready)
	}

	state.MarkComplete()
	return state, nil
}

// findReadySteps identifies steps that are ready to execute
// A step is ready if:
// - It's in Pending or Failed state (for retry)
// - All its dependencies are in Created state
func (e *Executor) findReadySteps(p *plan.Plan, state *ExecutionState) []string {
	var ready []string

	for i := range p.Steps {
		step := &p.Steps[i]
		stepState, _ := state.GetState(step.LogicalID)

		if stepState != StepStatePending && stepState != StepStateFailed {
			continue
		}

		if stepState == StepStateFailed {
			status, _ := state.GetStatus(step.LogicalID)
			if status.RetryCount >= e.config.MaxRetries {
				continue
			}
		}

		allDepsCreated := true
		for _, dep := range step.DependsOn {
			depState, _ := state.GetState(dep)
			if depState != StepStateCreated {
				allDepsCreated = false
				break
			}
		}

		if allDepsCreated {
			ready = append(ready, step.LogicalID)
		}
	}

	return ready
}

// executeWave applies a batch of independent steps in parallel
func (e *Executor) executeWave(ctx context.Context, p *plan.Plan, state *ExecutionState, ids []string) {
	wave := pool.New().WithMaxGoroutines(e.config.MaxConcurrency)

	for _, id := range ids {
		id := id

		wave.Go(func() {
			// Failures are recorded in state; independent steps keep
			// going, dependents of the failed step never become ready.
			e.executeStep(ctx, p, state, id)
		})
	}

	wave.Wait()
}

// executeStep applies a single step, backing off first when retrying
func (e *Executor) executeStep(ctx context.Context, p *plan.Plan, state *ExecutionState, id string) {
	step, found := p.StepFor(id)
	if !found {
		state.SetFailed(id, fmt.Errorf("step %s not found in plan", id))
		return
	}

	currentState, _ := state.GetState(id)
	if currentState == StepStateFailed {
		status, _ := state.GetStatus(id)
		delay := e.calculateBackoff(status.RetryCount)

		e.log.V(1).Info("retrying step", "step", id, "attempt", status.RetryCount+1, "backoff", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		state.IncrementRetry(id)
	}

	if err := state.SetState(id, StepStateApplying); err != nil {
		state.SetFailed(id, err)
		return
	}

	e.log.V(1).Info("applying step", "step", id, "type", step.Type)

	if err := e.applier.Apply(ctx, step); err != nil {
		e.log.V(1).Info("step failed", "step", id, "error", err.Error())
		state.SetFailed(id, fmt.Errorf("failed to apply: %w", err))
		if e.tracker != nil {
			e.tracker.RecordFailed(step)
		}
		return
	}

	if err := state.SetState(id, StepStateCreated); err != nil {
		state.SetFailed(id, err)
		return
	}
	if e.tracker != nil {
		e.tracker.RecordCreated(step)
	}
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (e *Executor) calculateBackoff(retryCount int) time.Duration {
	backoff := time.Duration(float64(e.config.RetryBackoffBase) * math.Pow(2, float64(retryCount)))

	if backoff > e.config.RetryBackoffMax {
		backoff = e.config.RetryBackoffMax
	}

	return backoff
}
