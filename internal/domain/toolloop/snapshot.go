// Copyright 2026 CoreAgent Authors. All rights reserved.

package toolloop

import "github.com/relayforge/coreagent/internal/domain/secverdict"

// Snapshot is the minimal state needed to recover a Loop after an
// interruption: enough to tell what was in flight and how far the
// conversation had progressed, without carrying the full pending-call
// payloads.
//
// SecurityVerdicts records the pre-flight verdict of each pending call at
// snapshot time. RestoreFromSnapshot does not reapply them: it drops all
// pending calls, so no call, blocked or not, is pending after a restore.
type Snapshot struct {
	State            State
	PendingToolIDs   []string
	SecurityVerdicts map[string]secverdict.Verdict
	TextContentLen   int
	Iteration        int
	MaxIterations    int
	ErrorMessage     string
}

// IsError reports whether the snapshot was taken in an Error state.
func (s Snapshot) IsError() bool { return s.State == Error }

// HasPendingTools reports whether there were pending tool calls at
// snapshot time.
func (s Snapshot) HasPendingTools() bool { return len(s.PendingToolIDs) > 0 }

// Snapshot captures the current state for recovery purposes.
func (l *Loop) Snapshot() Snapshot {
	verdicts := make(map[string]secverdict.Verdict)
	l.pending.each(func(id string, call *PendingToolCall) {
		if call.SecurityVerdict != nil {
			verdicts[id] = *call.SecurityVerdict
		}
	})

	return Snapshot{
		State:            l.state,
		PendingToolIDs:   l.PendingCallIDs(),
		SecurityVerdicts: verdicts,
		TextContentLen:   len(l.textContent),
		Iteration:        l.iteration,
		MaxIterations:    l.maxIterations,
		ErrorMessage:     l.errorMessage,
	}
}

// RestoreFromSnapshot restores iteration bookkeeping from snapshot. Like
// the original implementation this only restores metadata, not the full
// pending-call payloads; the loop always lands in Idle afterward so the
// caller can resume the conversation from a clean point.
func (l *Loop) RestoreFromSnapshot(snapshot Snapshot) {
	l.iteration = snapshot.Iteration
	l.maxIterations = snapshot.MaxIterations
	l.state = Idle
	l.pending.clear()
	l.errorMessage = ""
}
