package executor

import (
	"fmt"
	"sync"
	"time"
)

// StepState represents the execution state of a plan step
type StepState string

const (
	// StepStatePending indicates the step is waiting for dependencies
	StepStatePending StepState = "Pending"

	// StepStateApplying indicates the step is being applied
	StepStateApplying StepState = "Applying"

	// StepStateCreated indicates the step's resource has been created
	StepStateCreated StepState = "Created"

	// StepStateFailed indicates the step encountered an error
	StepStateFailed StepState = "Failed"
)

// StepStatus contains the execution status of a single step
type StepStatus struct {
	// State is the current state of the step
	State StepState

	// Error contains the error message if State is StepStateFailed
	Error string

	// StartTime is when the step started applying
	StartTime *time.Time

	// CreatedTime is when the step's resource was created
	CreatedTime *time.Time

	// RetryCount is the number of times this step has been retried
	RetryCount int

	// LastRetryTime is the time of the last retry attempt
	LastRetryTime *time.Time
}

// ExecutionState tracks the execution state of all steps in a plan
type ExecutionState struct {
	mu sync.RWMutex

	// stepStates maps logical id to its current status
	stepStates map[string]*StepStatus

	// startTime is when execution started
	startTime time.Time

	// endTime is when execution completed (or failed)
	endTime *time.Time
}

// NewExecutionState creates a new execution state tracker
func NewExecutionState(logicalIDs []string) *ExecutionState {
	states := make(map[string]*StepStatus, len(logicalIDs))
	for _, id := range logicalIDs {
		states[id] = &StepStatus{
			State: StepStatePending,
		}
	}

	return &ExecutionState{
		stepStates: states,
		startTime:  time.Now(),
	}
}

// GetState returns the current state of a step
func (es *ExecutionState) GetState(logicalID string) (StepState, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.stepStates[logicalID]
	if !found {
		return "", fmt.Errorf("step %s not found", logicalID)
	}
	return status.State, nil
}

// GetStatus returns the full status of a step
func (es *ExecutionState) GetStatus(logicalID string) (*StepStatus, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.stepStates[logicalID]
	if !found {
		return nil, fmt.Errorf("step %s not found", logicalID)
	}

	// Return a copy to prevent external modification
	statusCopy := *status
	return &statusCopy, nil
}

// SetState updates the state of a step with validation
func (es *ExecutionState) SetState(logicalID string, newState StepState) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.stepStates[logicalID]
	if !found {
		return fmt.Errorf("step %s not found", logicalID)
	}

	if err := validateStateTransition(status.State, newState); err != nil {
		return fmt.Errorf("invalid state transition for step %s: %w", logicalID, err)
	}

	status.State = newState

	now := time.Now()
	switch newState {
	case StepStateApplying:
		if status.StartTime == nil {
			status.StartTime = &now
		}
	case StepStateCreated:
		status.CreatedTime = &now
	}

	return nil
}

// SetFailed sets a step to failed state with an error message
func (es *ExecutionState) SetFailed(logicalID string, err error) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.stepStates[logicalID]
	if !found {
		return fmt.Errorf("step %s not found", logicalID)
	}

	status.State = StepStateFailed
	status.Error = err.Error()

	return nil
}

// IncrementRetry increments the retry count for a step
func (es *ExecutionState) IncrementRetry(logicalID string) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.stepStates[logicalID]
	if !found {
		return fmt.Errorf("step %s not found", logicalID)
	}

	status.RetryCount++
	now := time.Now()
	status.LastRetryTime = &now

	return nil
}

// GetStepsInState returns all logical ids in a given state
func (es *ExecutionState) GetStepsInState(state StepState) []string {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var ids []string
	for id, status := range es.stepStates {
		if status.State == state {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetAllStates returns a copy of all step states
func (es *ExecutionState) GetAllStates() map[string]StepState {
	es.mu.RLock()
	defer es.mu.RUnlock()

	states := make(map[string]StepState, len(es.stepStates))
	for id, status := range es.stepStates {
		states[id] = status.State
	}
	return states
}

// IsComplete returns true if all steps are in a terminal state (Created or Failed)
func (es *ExecutionState) IsComplete() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for _, status := range es.stepStates {
		if status.State != StepStateCreated && status.State != StepStateFailed {
			return false
		}
	}
	return true
}

// HasFailures returns true if any step is in failed state
func (es *ExecutionState) HasFailures() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for _, status := range es.stepStates {
		if status.State == StepStateFailed {
			return true
		}
	}
	return false
}

// GetSummary returns a summary of execution state
func (es *ExecutionState) GetSummary() ExecutionSummary {
	es.mu.RLock()
	defer es.mu.RUnlock()

	summary := ExecutionSummary{
		Total:     len(es.stepStates),
		StartTime: es.startTime,
		EndTime:   es.endTime,
	}

	for _, status := range es.stepStates {
		switch status.State {
		case StepStatePending:
			summary.Pending++
		case StepStateApplying:
			summary.Applying++
		case StepStateCreated:
			summary.Created++
		case StepStateFailed:
			summary.Failed++
		}
	}

	return summary
}

// MarkComplete marks the execution as complete
func (es *ExecutionState) MarkComplete() {
	es.mu.Lock()
	defer es.mu.Unlock()

	now := time.Now()
	es.endTime = &now
}

// ExecutionSummary provides a summary of execution state
type ExecutionSummary struct {
	Total     int
	Pending   int
	Applying  int
	Created   int
	Failed    int
	StartTime time.Time
	EndTime   *time.Time
}

// validateStateTransition checks if a state transition is valid
func validateStateTransition(from, to StepState) error {
	validTransitions := map[StepState][]StepState{
		StepStatePending: {
			StepStateApplying,
			StepStateFailed,
		},
		StepStateApplying: {
			StepStateCreated,
			StepStateFailed,
		},
		StepStateCreated: {
			// Terminal state - no transitions
		},
		StepStateFailed: {
			StepStateApplying, // Allow retry
		},
	}

	allowed, found := validTransitions[from]
	if !found {
		return fmt.Errorf("unknown state: %s", from)
	}

	for _, allowedState := range allowed {
		if allowedState == to {
			return nil
		}
	}

	return fmt.Errorf("cannot transition from %s to %s", from, to)
}
