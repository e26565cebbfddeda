// Copyright 2026 CoreAgent Authors. All rights reserved.

package toolloop

import (
	"testing"

	"github.com/relayforge/coreagent/internal/domain/secverdict"
)

func TestStartStreamingFromIdle(t *testing.T) {
	l := New()
	if err := l.StartStreaming(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Streaming {
		t.Errorf("State() = %v, want Streaming", l.State())
	}
}

func TestStartStreamingRejectsFromExecuting(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AddToolUse(ToolUseBlock{ID: "1", Name: "bash"})
	l.MessageComplete(StopReasonToolUse)
	l.ApproveAll()

	if err := l.StartStreaming(); err == nil {
		t.Fatal("expected error starting streaming from Executing")
	}
}

func fullRoundTripToPendingApproval(t *testing.T, l *Loop) {
	t.Helper()
	if err := l.StartStreaming(); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	l.AppendText("thinking...")
	l.StartToolUse(0, "call-1", "bash")
	l.AppendToolInput(0, `{"command":"ls"}`)
	if err := l.CompleteToolUse(0); err != nil {
		t.Fatalf("CompleteToolUse: %v", err)
	}
	if err := l.MessageComplete(StopReasonToolUse); err != nil {
		t.Fatalf("MessageComplete: %v", err)
	}
}

func TestStreamingAccumulatesToolUseThenPendingApproval(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)

	if l.State() != PendingApproval {
		t.Fatalf("State() = %v, want PendingApproval", l.State())
	}
	call, ok := l.PendingCall("call-1")
	if !ok {
		t.Fatal("expected pending call call-1")
	}
	if call.ToolUse.Name != "bash" {
		t.Errorf("ToolUse.Name = %q, want bash", call.ToolUse.Name)
	}
	if call.ToolUse.Input["command"] != "ls" {
		t.Errorf("ToolUse.Input[command] = %v, want ls", call.ToolUse.Input["command"])
	}
}

func TestMessageCompleteToolUseWithNoPendingCallsErrors(t *testing.T) {
	l := New()
	l.StartStreaming()
	if err := l.MessageComplete(StopReasonToolUse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Error {
		t.Fatalf("State() = %v, want Error", l.State())
	}
	msg, ok := l.ErrorMessage()
	if !ok || msg == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestMessageCompleteEndTurnGoesIdle(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AppendText("done")
	if err := l.MessageComplete(StopReasonEndTurn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Idle {
		t.Errorf("State() = %v, want Idle", l.State())
	}
}

func TestApproveAllThenExecuteThenFinish(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)

	if err := l.ApproveAll(); err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}
	if l.State() != Executing {
		t.Fatalf("State() = %v, want Executing", l.State())
	}

	toExecute := l.ToolsToExecute()
	if len(toExecute) != 1 || toExecute[0].ID != "call-1" {
		t.Fatalf("ToolsToExecute() = %+v", toExecute)
	}

	if err := l.SetToolResult("call-1", ToolResultBlock{ToolUseID: "call-1", Content: "file1\nfile2"}); err != nil {
		t.Fatalf("SetToolResult: %v", err)
	}
	if !l.AllToolsExecuted() {
		t.Fatal("expected all tools executed")
	}

	data, err := l.FinishExecution()
	if err != nil {
		t.Fatalf("FinishExecution: %v", err)
	}
	if l.State() != Continuing {
		t.Fatalf("State() = %v, want Continuing", l.State())
	}
	if len(data.ToolResults) != 1 {
		t.Fatalf("ToolResults = %+v, want 1 entry", data.ToolResults)
	}
	if len(data.AssistantContent) != 2 {
		t.Fatalf("AssistantContent = %+v, want text + tool_use", data.AssistantContent)
	}
	if l.Iteration() != 1 {
		t.Errorf("Iteration() = %d, want 1", l.Iteration())
	}
}

func TestFinishExecutionFailsWithUnexecutedApprovedTool(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)
	l.ApproveAll()

	if _, err := l.FinishExecution(); err != ErrIncompleteExecution {
		t.Fatalf("FinishExecution err = %v, want ErrIncompleteExecution", err)
	}
}

func TestFinishExecutionAtIterationLimitErrors(t *testing.T) {
	l := NewWithMaxIterations(1)
	fullRoundTripToPendingApproval(t, l)
	l.ApproveAll()
	l.SetToolResult("call-1", ToolResultBlock{ToolUseID: "call-1", Content: "ok"})

	if _, err := l.FinishExecution(); err != ErrIterationLimit {
		t.Fatalf("FinishExecution err = %v, want ErrIterationLimit", err)
	}
	if l.State() != Error {
		t.Errorf("State() = %v, want Error", l.State())
	}
}

func TestIsAtLimit(t *testing.T) {
	l := NewWithMaxIterations(2)
	if l.IsAtLimit() {
		t.Error("should not be at limit at iteration 0 with max 2")
	}
}

func TestDenyAllReturnsToIdle(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)

	if err := l.DenyAll(); err != nil {
		t.Fatalf("DenyAll: %v", err)
	}
	if l.State() != Idle {
		t.Errorf("State() = %v, want Idle", l.State())
	}
	if _, ok := l.PendingCall("call-1"); ok {
		t.Error("expected pending calls cleared after deny")
	}
}

func TestApproveSafeSkipsBlockedCalls(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AddToolUse(ToolUseBlock{ID: "safe-1", Name: "read_file"})
	l.AddToolUse(ToolUseBlock{ID: "danger-1", Name: "bash"})
	l.MessageComplete(StopReasonToolUse)

	if err := l.SetSecurityVerdict("danger-1", secverdict.NewBlock("rm -rf / is not allowed")); err != nil {
		t.Fatalf("SetSecurityVerdict: %v", err)
	}

	blocked, err := l.ApproveSafe()
	if err != nil {
		t.Fatalf("ApproveSafe: %v", err)
	}
	if len(blocked) != 1 || blocked[0] != "danger-1" {
		t.Fatalf("blocked = %v, want [danger-1]", blocked)
	}

	safeCall, _ := l.PendingCall("safe-1")
	dangerCall, _ := l.PendingCall("danger-1")
	if !safeCall.Approved {
		t.Error("expected safe-1 to be approved")
	}
	if dangerCall.Approved {
		t.Error("expected danger-1 to remain unapproved")
	}
}

func TestSecurityWarnedToolsReported(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AddToolUse(ToolUseBlock{ID: "call-1", Name: "bash"})
	l.MessageComplete(StopReasonToolUse)

	l.SetSecurityVerdict("call-1", secverdict.NewWarn("touches a config file"))

	if !l.HasSecurityWarnings() {
		t.Error("expected HasSecurityWarnings true")
	}
	warned := l.SecurityWarnedTools()
	if len(warned) != 1 || warned[0].ToolID != "call-1" || warned[0].Reason != "touches a config file" {
		t.Fatalf("SecurityWarnedTools() = %+v", warned)
	}
}

func TestRecoverFromErrorPreservesIteration(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)
	l.ApproveAll()
	l.SetToolResult("call-1", ToolResultBlock{ToolUseID: "call-1", Content: "ok"})
	l.FinishExecution()

	l.ForceState(Error, "simulated failure")
	msg, err := l.RecoverFromError()
	if err != nil {
		t.Fatalf("RecoverFromError: %v", err)
	}
	if msg != "simulated failure" {
		t.Errorf("msg = %q", msg)
	}
	if l.State() != Idle {
		t.Errorf("State() = %v, want Idle", l.State())
	}
	if l.Iteration() != 1 {
		t.Errorf("Iteration() = %d, want 1 (preserved across recovery)", l.Iteration())
	}
}

func TestResetClearsIteration(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)
	l.ApproveAll()
	l.SetToolResult("call-1", ToolResultBlock{ToolUseID: "call-1", Content: "ok"})
	l.FinishExecution()

	l.Reset()
	if l.State() != Idle || l.Iteration() != 0 {
		t.Errorf("State()=%v Iteration()=%d, want Idle/0", l.State(), l.Iteration())
	}
}

func TestRetryApprovalResetsExecutionState(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)
	l.ApproveAll()

	n, err := l.RetryApproval()
	if err != nil {
		t.Fatalf("RetryApproval: %v", err)
	}
	if n != 1 {
		t.Errorf("RetryApproval count = %d, want 1", n)
	}
	if l.State() != PendingApproval {
		t.Errorf("State() = %v, want PendingApproval", l.State())
	}
	call, _ := l.PendingCall("call-1")
	if call.Approved {
		t.Error("expected approval reset")
	}
}

func TestSnapshotAndRestorePreservesSecurityVerdicts(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AddToolUse(ToolUseBlock{ID: "call-1", Name: "bash"})
	l.MessageComplete(StopReasonToolUse)
	l.SetSecurityVerdict("call-1", secverdict.NewBlock("dangerous"))

	snap := l.Snapshot()
	if !snap.HasPendingTools() {
		t.Fatal("expected snapshot to report pending tools")
	}
	if v, ok := snap.SecurityVerdicts["call-1"]; !ok || !v.BlocksExecution() {
		t.Fatalf("SecurityVerdicts[call-1] = %+v, ok=%v", v, ok)
	}

	restored := New()
	restored.RestoreFromSnapshot(snap)
	if restored.State() != Idle {
		t.Errorf("State() after restore = %v, want Idle", restored.State())
	}
}

func TestApproveToolNotFoundErrors(t *testing.T) {
	l := New()
	fullRoundTripToPendingApproval(t, l)

	err := l.ApproveTool("missing")
	if _, ok := err.(*ToolNotFoundError); !ok {
		t.Fatalf("err = %v, want *ToolNotFoundError", err)
	}
}

func TestCompleteToolUseMissingIDErrors(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.accumulators[0] = newToolUseAccumulator()
	if err := l.CompleteToolUse(0); err != ErrMissingToolID {
		t.Fatalf("err = %v, want ErrMissingToolID", err)
	}
}

func TestPendingCallOrderIsInsertionOrder(t *testing.T) {
	l := New()
	l.StartStreaming()
	l.AddToolUse(ToolUseBlock{ID: "c", Name: "bash"})
	l.AddToolUse(ToolUseBlock{ID: "a", Name: "bash"})
	l.AddToolUse(ToolUseBlock{ID: "b", Name: "bash"})

	ids := l.PendingCallIDs()
	want := []string{"c", "a", "b"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
