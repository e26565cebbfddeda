// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package hookdispatch runs lifecycle hook commands as subprocesses: each
// matching hook receives a JSON-encoded HookContext on stdin and its exit
// code is interpreted as continue (0), block (2, stdout becomes the block
// reason), or warn-and-continue (anything else).
package hookdispatch

// Event identifies a point in the agent lifecycle at which hooks may fire.
type Event int

const (
	PreToolUse Event = iota
	PostToolUse
	PostToolUseFailure
	PermissionRequest
	UserPromptSubmit
	SessionStart
	SessionEnd
	Notification
	Stop
	SubagentStop
	PreCompact
)

// String returns the wire name used in HookContext.HookEventName and in
// configuration files.
func (e Event) String() string {
	switch e {
	case PreToolUse:
		return "PreToolUse"
	case PostToolUse:
		return "PostToolUse"
	case PostToolUseFailure:
		return "PostToolUseFailure"
	case PermissionRequest:
		return "PermissionRequest"
	case UserPromptSubmit:
		return "UserPromptSubmit"
	case SessionStart:
		return "SessionStart"
	case SessionEnd:
		return "SessionEnd"
	case Notification:
		return "Notification"
	case Stop:
		return "Stop"
	case SubagentStop:
		return "SubagentStop"
	case PreCompact:
		return "PreCompact"
	default:
		return "Unknown"
	}
}

// Context is the JSON payload written to a hook command's stdin.
// hook_event_name and session_id are always encoded; the other fields are
// omitted from the encoded JSON when left at their zero value.
type Context struct {
	HookEventName string      `json:"hook_event_name"`
	SessionID     string      `json:"session_id"`
	ToolName      string      `json:"tool_name,omitempty"`
	ToolInput     interface{} `json:"tool_input,omitempty"`
	ToolResponse  interface{} `json:"tool_response,omitempty"`
	Prompt        string      `json:"prompt,omitempty"`
	StopReason    string      `json:"stop_reason,omitempty"`
}

// Decision is the outcome a hook run communicates back to its caller.
type Decision int

const (
	// Continue means no hook blocked the lifecycle event.
	Continue Decision = iota
	// Block means a hook's exit code 2 vetoed the event; Reason holds its
	// stdout.
	Block
	// Allow is an explicit permission-request approval.
	Allow
	// Deny is an explicit permission-request denial.
	Deny
)

// Result is the outcome of dispatching an Event through the registered
// hook commands.
type Result struct {
	Decision Decision
	Reason   string
}
