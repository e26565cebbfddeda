// Copyright 2026 CoreAgent Authors. All rights reserved.

package toolloop

import (
	"github.com/relayforge/coreagent/internal/domain/secverdict"
)

// DefaultMaxIterations caps how many tool-call/continuation round trips a
// single conversation turn may take before the loop refuses to continue.
const DefaultMaxIterations = 50

// pendingCalls is an insertion-ordered map of tool_use ID to
// PendingToolCall: order matters for reproducing the model's original
// tool_use ordering in continuation messages and in security-blocked
// listings.
type pendingCalls struct {
	order []string
	byID  map[string]*PendingToolCall
}

func newPendingCalls() pendingCalls {
	return pendingCalls{byID: make(map[string]*PendingToolCall)}
}

func (p *pendingCalls) insert(id string, call *PendingToolCall) {
	if _, exists := p.byID[id]; !exists {
		p.order = append(p.order, id)
	}
	p.byID[id] = call
}

func (p *pendingCalls) get(id string) (*PendingToolCall, bool) {
	c, ok := p.byID[id]
	return c, ok
}

func (p *pendingCalls) clear() {
	p.order = nil
	p.byID = make(map[string]*PendingToolCall)
}

func (p *pendingCalls) len() int { return len(p.order) }

func (p *pendingCalls) each(fn func(id string, call *PendingToolCall)) {
	for _, id := range p.order {
		fn(id, p.byID[id])
	}
}

// Loop is the agentic tool execution state machine.
type Loop struct {
	state State

	pending      pendingCalls
	accumulators map[int]*toolUseAccumulator

	textContent  string
	stopReason   *StopReason
	errorMessage string

	maxIterations int
	iteration     int
}

// New returns a Loop with DefaultMaxIterations.
func New() *Loop {
	return &Loop{maxIterations: DefaultMaxIterations, pending: newPendingCalls(), accumulators: make(map[int]*toolUseAccumulator)}
}

// NewWithMaxIterations returns a Loop with a custom iteration ceiling.
func NewWithMaxIterations(maxIterations int) *Loop {
	return &Loop{maxIterations: maxIterations, pending: newPendingCalls(), accumulators: make(map[int]*toolUseAccumulator)}
}

func (l *Loop) State() State            { return l.state }
func (l *Loop) TextContent() string     { return l.textContent }
func (l *Loop) StopReason() *StopReason { return l.stopReason }
func (l *Loop) Iteration() int          { return l.iteration }

// PendingCall returns the pending call for id, if any.
func (l *Loop) PendingCall(id string) (*PendingToolCall, bool) { return l.pending.get(id) }

// PendingCallIDs returns pending tool_use IDs in the order they were
// first inserted.
func (l *Loop) PendingCallIDs() []string {
	ids := make([]string, len(l.pending.order))
	copy(ids, l.pending.order)
	return ids
}

// IsAtLimit reports whether completing the current iteration would reach
// or exceed the iteration ceiling.
func (l *Loop) IsAtLimit() bool {
	return l.iteration+1 >= l.maxIterations
}

// --- State transitions ---

// StartStreaming transitions from Idle or Continuing into Streaming,
// clearing the accumulation state for a fresh response.
func (l *Loop) StartStreaming() error {
	if l.state != Idle && l.state != Continuing {
		return &InvalidTransitionError{From: l.state, To: "Streaming"}
	}
	l.state = Streaming
	l.textContent = ""
	l.accumulators = make(map[int]*toolUseAccumulator)
	l.stopReason = nil
	return nil
}

// AppendText appends a streamed text delta while in Streaming.
func (l *Loop) AppendText(text string) {
	if l.state == Streaming {
		l.textContent += text
	}
}

// StartToolUse begins accumulating a tool_use block announced at index.
func (l *Loop) StartToolUse(index int, id, name string) {
	if l.state != Streaming {
		return
	}
	acc := newToolUseAccumulator()
	acc.start(id, name)
	l.accumulators[index] = acc
}

// AppendToolInput appends a partial_json input delta to the accumulator
// at index.
func (l *Loop) AppendToolInput(index int, partialJSON string) {
	if l.state != Streaming {
		return
	}
	if acc, ok := l.accumulators[index]; ok {
		acc.appendInput(partialJSON)
	}
}

// CompleteToolUse finalizes the accumulator at index into a pending tool
// call, parsing its accumulated JSON input.
func (l *Loop) CompleteToolUse(index int) error {
	if l.state != Streaming {
		return nil
	}
	acc, ok := l.accumulators[index]
	if !ok {
		return nil
	}
	delete(l.accumulators, index)

	if acc.id == nil {
		return ErrMissingToolID
	}
	if acc.name == nil {
		return ErrMissingToolName
	}

	input, err := acc.parseInput()
	if err != nil {
		return &InvalidToolInputError{ToolID: *acc.id, Err: err}
	}

	tu := ToolUseBlock{ID: *acc.id, Name: *acc.name, Input: input}
	l.pending.insert(tu.ID, newPendingToolCall(tu))
	return nil
}

// AddToolUse directly inserts a tool_use block in unapproved state,
// bypassing streaming accumulation. Intended for tests and manual tool
// injection.
func (l *Loop) AddToolUse(tu ToolUseBlock) {
	l.pending.insert(tu.ID, newPendingToolCall(tu))
}

// MessageComplete applies the stop reason of the just-finished message,
// transitioning to PendingApproval (tool_use with pending calls), Idle
// (end_turn, stop_sequence, or max_tokens), or Error (tool_use stop
// reason with no tool calls collected, which should not happen).
func (l *Loop) MessageComplete(reason StopReason) error {
	if l.state != Streaming {
		return nil
	}
	l.stopReason = &reason

	switch reason {
	case StopReasonToolUse:
		if l.pending.len() == 0 {
			l.state = Error
			l.errorMessage = "received tool_use stop reason but no tool calls"
		} else {
			l.state = PendingApproval
		}
	case StopReasonEndTurn, StopReasonStopSequence:
		l.state = Idle
		l.pending.clear()
	case StopReasonMaxTokens:
		l.state = Idle
		l.pending.clear()
	}
	return nil
}

// ApproveAll approves every pending call and transitions to Executing.
func (l *Loop) ApproveAll() error {
	if l.state != PendingApproval {
		return &InvalidTransitionError{From: l.state, To: "Executing"}
	}
	l.pending.each(func(_ string, call *PendingToolCall) { call.approve() })
	l.state = Executing
	return nil
}

// ApproveTool approves a single pending call by ID.
func (l *Loop) ApproveTool(toolID string) error {
	call, ok := l.pending.get(toolID)
	if !ok {
		return &ToolNotFoundError{ToolID: toolID}
	}
	call.approve()
	return nil
}

// DenyAll clears all pending calls and returns to Idle.
func (l *Loop) DenyAll() error {
	if l.state != PendingApproval {
		return &InvalidTransitionError{From: l.state, To: "Idle"}
	}
	l.pending.clear()
	l.state = Idle
	return nil
}

// SetToolResult records the execution result for a pending call.
func (l *Loop) SetToolResult(toolID string, result ToolResultBlock) error {
	call, ok := l.pending.get(toolID)
	if !ok {
		return &ToolNotFoundError{ToolID: toolID}
	}
	call.setResult(result)
	return nil
}

// AllToolsExecuted reports whether every approved call has executed.
func (l *Loop) AllToolsExecuted() bool {
	all := true
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.Approved && !call.Executed {
			all = false
		}
	})
	return all
}

// ToolsToExecute returns the tool_use blocks still needing execution, in
// insertion order.
func (l *Loop) ToolsToExecute() []ToolUseBlock {
	var calls []ToolUseBlock
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.Approved && !call.Executed {
			calls = append(calls, call.ToolUse)
		}
	})
	return calls
}

// CollectToolResults returns a tool_result content block for every
// executed call, in insertion order.
func (l *Loop) CollectToolResults() []ContentBlock {
	var blocks []ContentBlock
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.Result != nil {
			blocks = append(blocks, ToolResultContentBlock(*call.Result))
		}
	})
	return blocks
}

// CollectToolUses returns a tool_use content block for every approved
// call, in insertion order.
func (l *Loop) CollectToolUses() []ContentBlock {
	var blocks []ContentBlock
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.Approved {
			blocks = append(blocks, ToolUseContentBlock(call.ToolUse))
		}
	})
	return blocks
}

// ContinuationData is what FinishExecution returns: the content needed to
// build the assistant and user messages that continue the conversation.
type ContinuationData struct {
	AssistantContent []ContentBlock
	ToolResults      []ContentBlock
}

// FinishExecution transitions from Executing to Continuing, returning the
// content needed to continue the conversation. It fails if any approved
// call hasn't executed yet, or if the iteration ceiling has been reached
// (in which case the loop moves to Error instead).
func (l *Loop) FinishExecution() (ContinuationData, error) {
	if l.state != Executing {
		return ContinuationData{}, &InvalidTransitionError{From: l.state, To: "Continuing"}
	}
	if !l.AllToolsExecuted() {
		return ContinuationData{}, ErrIncompleteExecution
	}
	if l.IsAtLimit() {
		l.state = Error
		l.errorMessage = "reached maximum iteration limit"
		return ContinuationData{}, ErrIterationLimit
	}

	toolResults := l.CollectToolResults()

	var assistantContent []ContentBlock
	if l.textContent != "" {
		assistantContent = append(assistantContent, TextBlock(l.textContent))
	}
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.Approved {
			assistantContent = append(assistantContent, ToolUseContentBlock(call.ToolUse))
		}
	})

	data := ContinuationData{AssistantContent: assistantContent, ToolResults: toolResults}

	l.pending.clear()
	l.iteration++
	l.state = Continuing

	return data, nil
}

// Reset returns the loop to Idle, clearing the iteration count.
func (l *Loop) Reset() {
	l.state = Idle
	l.pending.clear()
	l.accumulators = make(map[int]*toolUseAccumulator)
	l.textContent = ""
	l.stopReason = nil
	l.iteration = 0
	l.errorMessage = ""
}

// --- Recovery ---

// ErrorMessage returns the message attached to an Error state, or
// ("", false) otherwise.
func (l *Loop) ErrorMessage() (string, bool) {
	if l.state != Error {
		return "", false
	}
	return l.errorMessage, true
}

// CanRecover reports whether the loop is in a state with a recovery path:
// Error (RecoverFromError) or PendingApproval (RetryApproval).
func (l *Loop) CanRecover() bool {
	return l.state == Error || l.state == PendingApproval
}

// RecoverFromError transitions from Error back to Idle, preserving the
// iteration count (unlike Reset), and returns the message that was
// attached to the error.
func (l *Loop) RecoverFromError() (string, error) {
	if l.state != Error {
		return "", &InvalidTransitionError{From: l.state, To: "Idle (recovery)"}
	}
	msg := l.errorMessage
	l.state = Idle
	l.pending.clear()
	l.accumulators = make(map[int]*toolUseAccumulator)
	l.textContent = ""
	l.stopReason = nil
	l.errorMessage = ""
	return msg, nil
}

// RetryApproval resets approval/execution status on all pending calls
// without discarding them, allowing the caller to re-prompt. Valid from
// PendingApproval or Executing. Returns the number of calls reset.
func (l *Loop) RetryApproval() (int, error) {
	switch l.state {
	case PendingApproval, Executing:
		l.pending.each(func(_ string, call *PendingToolCall) {
			call.Approved = false
			call.Executed = false
			call.Result = nil
		})
		l.state = PendingApproval
		return l.pending.len(), nil
	default:
		return 0, &InvalidTransitionError{From: l.state, To: "PendingApproval (retry)"}
	}
}

// ForceState bypasses normal transition validation. Intended for recovery
// scenarios and tests; using it incorrectly can produce an inconsistent
// loop.
func (l *Loop) ForceState(state State, errMsg string) {
	l.state = state
	if state == Error {
		l.errorMessage = errMsg
	}
}

// --- Security pre-flight ---

// SetSecurityVerdict attaches a pre-flight security verdict to a pending
// call.
func (l *Loop) SetSecurityVerdict(toolID string, verdict secverdict.Verdict) error {
	call, ok := l.pending.get(toolID)
	if !ok {
		return &ToolNotFoundError{ToolID: toolID}
	}
	call.setSecurityVerdict(verdict)
	return nil
}

// SecurityBlockedTools returns the IDs of pending calls whose verdict
// blocks execution, in insertion order.
func (l *Loop) SecurityBlockedTools() []string {
	var ids []string
	l.pending.each(func(id string, call *PendingToolCall) {
		if call.IsSecurityBlocked() {
			ids = append(ids, id)
		}
	})
	return ids
}

// WarnedTool pairs a pending call's ID with its non-blocking warning
// reason.
type WarnedTool struct {
	ToolID string
	Reason string
}

// SecurityWarnedTools returns (id, reason) pairs for pending calls
// carrying a non-blocking security warning, in insertion order.
func (l *Loop) SecurityWarnedTools() []WarnedTool {
	var warned []WarnedTool
	l.pending.each(func(id string, call *PendingToolCall) {
		if reason, ok := call.SecurityWarning(); ok {
			warned = append(warned, WarnedTool{ToolID: id, Reason: reason})
		}
	})
	return warned
}

// HasSecurityBlocks reports whether any pending call is security-blocked.
func (l *Loop) HasSecurityBlocks() bool {
	blocked := false
	l.pending.each(func(_ string, call *PendingToolCall) {
		if call.IsSecurityBlocked() {
			blocked = true
		}
	})
	return blocked
}

// HasSecurityWarnings reports whether any pending call carries a warning.
func (l *Loop) HasSecurityWarnings() bool {
	warned := false
	l.pending.each(func(_ string, call *PendingToolCall) {
		if _, ok := call.SecurityWarning(); ok {
			warned = true
		}
	})
	return warned
}

// ApproveSafe approves every pending call whose security verdict does not
// block execution and transitions to Executing. It returns the IDs of
// calls left unapproved because they were blocked.
func (l *Loop) ApproveSafe() ([]string, error) {
	if l.state != PendingApproval {
		return nil, &InvalidTransitionError{From: l.state, To: "Executing"}
	}

	var blocked []string
	l.pending.each(func(id string, call *PendingToolCall) {
		if call.IsSecurityBlocked() {
			blocked = append(blocked, id)
		} else {
			call.approve()
		}
	})

	l.state = Executing
	return blocked, nil
}
