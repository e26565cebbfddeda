// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package toolloop implements the agentic tool execution state machine:
// it collects streamed tool_use requests from the model, gates them
// through approval and security pre-flight, tracks their execution, and
// produces the messages needed to continue the conversation.
//
//	Idle ──start_streaming──▶ Streaming ──tool_use──▶ PendingApproval
//	  ▲                           │ end_turn               │ approve
//	  │                           ▼                        ▼
//	  └───────────────────── Continuing ◀── finish ── Executing
//
// An Error state is reachable from several points and recoverable back
// to Idle without losing the iteration count.
package toolloop

import "fmt"

// State is a position in the tool loop's state machine.
type State int

const (
	// Idle is the default state: no active loop, waiting for input.
	Idle State = iota
	// Streaming is collecting text and tool_use blocks from the model.
	Streaming
	// PendingApproval holds tool calls awaiting user or policy approval.
	PendingApproval
	// Executing is running approved tool calls.
	Executing
	// Continuing is sending tool results back to the model.
	Continuing
	// Error holds a message describing what went wrong.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Streaming:
		return "Streaming"
	case PendingApproval:
		return "PendingApproval"
	case Executing:
		return "Executing"
	case Continuing:
		return "Continuing"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether the loop is in a resting state between
// conversational turns.
func (s State) IsTerminal() bool { return s == Idle || s == Error }

// NeedsUserAction reports whether the loop cannot progress without
// either fresh user input (Idle) or an approval decision (PendingApproval).
func (s State) NeedsUserAction() bool { return s == Idle || s == PendingApproval }

// IsActive reports whether the loop is in the middle of processing a
// turn without waiting on anything external.
func (s State) IsActive() bool { return s == Streaming || s == Executing || s == Continuing }
