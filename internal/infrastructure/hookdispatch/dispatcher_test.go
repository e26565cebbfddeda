// Copyright 2026 CoreAgent Authors. All rights reserved.

package hookdispatch

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestMatchesPatternPipeSeparated(t *testing.T) {
	if !matchesPattern("Bash|Read|Write", "Read") {
		t.Error("expected Read to match pipe-separated pattern")
	}
	if matchesPattern("Bash|Read|Write", "Edit") {
		t.Error("expected Edit not to match pipe-separated pattern")
	}
}

func TestMatchesPatternGlob(t *testing.T) {
	if !matchesPattern("mcp__*", "mcp__filesystem__read") {
		t.Error("expected glob pattern to match mcp-prefixed tool")
	}
	if matchesPattern("mcp__*", "Bash") {
		t.Error("expected glob pattern not to match unrelated tool")
	}
}

func TestMatchesPatternExact(t *testing.T) {
	if !matchesPattern("Bash", "Bash") {
		t.Error("expected exact match")
	}
	if matchesPattern("Bash", "bash") {
		t.Error("expected exact match to be case sensitive")
	}
}

func TestDispatchNoHooksContinues(t *testing.T) {
	d := New("session-1", zap.NewNop())
	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Continue {
		t.Errorf("Decision = %v, want Continue", res.Decision)
	}
}

func TestDispatchExitZeroContinues(t *testing.T) {
	d := New("session-1", zap.NewNop())
	d.Register(PreToolUse, Definition{Hooks: []Command{{Command: "exit 0"}}})

	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Continue {
		t.Errorf("Decision = %v, want Continue", res.Decision)
	}
}

func TestDispatchExitTwoBlocks(t *testing.T) {
	d := New("session-1", zap.NewNop())
	d.Register(PreToolUse, Definition{Hooks: []Command{{Command: "echo 'not allowed'; exit 2"}}})

	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Block {
		t.Fatalf("Decision = %v, want Block", res.Decision)
	}
	if res.Reason != "not allowed" {
		t.Errorf("Reason = %q, want %q", res.Reason, "not allowed")
	}
}

func TestDispatchOtherExitCodeWarnsAndContinues(t *testing.T) {
	d := New("session-1", zap.NewNop())
	d.Register(PreToolUse, Definition{Hooks: []Command{{Command: "exit 7"}}})

	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Continue {
		t.Errorf("Decision = %v, want Continue", res.Decision)
	}
}

func TestDispatchMatcherSkipsNonMatchingTool(t *testing.T) {
	d := New("session-1", zap.NewNop())
	d.Register(PreToolUse, Definition{
		Matcher: "Write",
		Hooks:   []Command{{Command: "exit 2"}},
	})

	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Continue {
		t.Errorf("Decision = %v, want Continue (matcher should not match Bash)", res.Decision)
	}
}

func TestDispatchEmptyCommandDoesNotBlock(t *testing.T) {
	d := New("session-1", zap.NewNop())
	d.Register(PreToolUse, Definition{Hooks: []Command{{Command: "   "}}})

	res, err := d.Dispatch(context.Background(), PreToolUse, Context{ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != Continue {
		t.Errorf("Decision = %v, want Continue", res.Decision)
	}
}
