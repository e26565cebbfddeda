// Copyright 2026 CoreAgent Authors. All rights reserved.

package toolloop

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToolID       = errors.New("tool use block is missing id")
	ErrMissingToolName     = errors.New("tool use block is missing name")
	ErrIncompleteExecution = errors.New("cannot finish execution with unexecuted tools")
	ErrIterationLimit      = errors.New("tool loop iteration limit reached")
)

// InvalidTransitionError reports an attempted transition the state
// machine does not permit from its current state.
type InvalidTransitionError struct {
	From State
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ToolNotFoundError reports a reference to a tool_use ID with no pending
// call.
type ToolNotFoundError struct {
	ToolID string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.ToolID)
}

// InvalidToolInputError reports malformed accumulated JSON input for a
// tool_use block.
type InvalidToolInputError struct {
	ToolID string
	Err    error
}

func (e *InvalidToolInputError) Error() string {
	return fmt.Sprintf("invalid tool input for %s: %v", e.ToolID, e.Err)
}

func (e *InvalidToolInputError) Unwrap() error { return e.Err }
