// Copyright 2026 CoreAgent Authors. All rights reserved.

package toolloop

import (
	"encoding/json"
	"strings"

	"github.com/relayforge/coreagent/internal/domain/secverdict"
)

// StopReason is the reason the model stopped generating, as reported by
// the most recent streamed message.
type StopReason int

const (
	StopReasonToolUse StopReason = iota
	StopReasonEndTurn
	StopReasonStopSequence
	StopReasonMaxTokens
)

func (r StopReason) String() string {
	switch r {
	case StopReasonToolUse:
		return "tool_use"
	case StopReasonEndTurn:
		return "end_turn"
	case StopReasonStopSequence:
		return "stop_sequence"
	case StopReasonMaxTokens:
		return "max_tokens"
	default:
		return "unknown"
	}
}

// ToolUseBlock is a single tool invocation request parsed from a
// streamed model response.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolResultBlock is the outcome of executing a ToolUseBlock, ready to be
// sent back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// BlockKind tags the variant held by a ContentBlock.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockToolUse
	BlockToolResult
)

// ContentBlock is one element of an assistant or user message, matching
// the union of block kinds a conversation turn is built from.
type ContentBlock struct {
	Kind       BlockKind
	Text       string
	ToolUse    *ToolUseBlock
	ToolResult *ToolResultBlock
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

func ToolUseContentBlock(tu ToolUseBlock) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ToolUse: &tu}
}

func ToolResultContentBlock(tr ToolResultBlock) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResult: &tr}
}

// toolUseAccumulator collects a tool_use block's fields across streaming
// deltas: the id and name arrive in a start event, and a partial_json
// input arrives incrementally until the block completes.
type toolUseAccumulator struct {
	id         *string
	name       *string
	inputJSON  strings.Builder
}

func newToolUseAccumulator() *toolUseAccumulator {
	return &toolUseAccumulator{}
}

func (a *toolUseAccumulator) start(id, name string) {
	a.id = &id
	a.name = &name
}

func (a *toolUseAccumulator) appendInput(partialJSON string) {
	a.inputJSON.WriteString(partialJSON)
}

// parseInput decodes the accumulated JSON into a map. An empty
// accumulation parses to an empty map, matching tools called with no
// arguments.
func (a *toolUseAccumulator) parseInput() (map[string]interface{}, error) {
	raw := strings.TrimSpace(a.inputJSON.String())
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, err
	}
	return input, nil
}

// PendingToolCall is a tool call awaiting approval, execution, or both,
// together with any security pre-flight verdict attached to it.
type PendingToolCall struct {
	ToolUse        ToolUseBlock
	Approved       bool
	Executed       bool
	Result         *ToolResultBlock
	SecurityVerdict *secverdict.Verdict
}

func newPendingToolCall(tu ToolUseBlock) *PendingToolCall {
	return &PendingToolCall{ToolUse: tu}
}

func (c *PendingToolCall) approve() { c.Approved = true }

func (c *PendingToolCall) setResult(result ToolResultBlock) {
	c.Executed = true
	c.Result = &result
}

func (c *PendingToolCall) setSecurityVerdict(v secverdict.Verdict) {
	c.SecurityVerdict = &v
}

// IsSecurityBlocked reports whether the attached verdict blocks
// execution; a call with no verdict is never blocked.
func (c *PendingToolCall) IsSecurityBlocked() bool {
	return c.SecurityVerdict != nil && c.SecurityVerdict.BlocksExecution()
}

// SecurityWarning returns the warning reason if the attached verdict is a
// Warn, or ("", false) otherwise.
func (c *PendingToolCall) SecurityWarning() (string, bool) {
	if c.SecurityVerdict == nil || !c.SecurityVerdict.HasWarning() {
		return "", false
	}
	return c.SecurityVerdict.Reason, true
}
