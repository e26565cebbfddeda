// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package scheduler groups a batch of tool calls into runs of
// concurrently-executable calls and runs of calls that must execute one
// at a time, preserving the original call order in the results regardless
// of completion order.
package scheduler

import (
	"context"
	"sync"

	"github.com/relayforge/coreagent/internal/domain/classify"
)

// DefaultMaxConcurrency bounds how many ReadOnly calls run at once when a
// Scheduler is not configured otherwise.
const DefaultMaxConcurrency = 8

// MaxConcurrencyCeiling is the hard upper bound on configured concurrency.
const MaxConcurrencyCeiling = 64

// Call is one tool invocation to schedule, identified by its tool name
// and (for bash calls) the literal command, which together determine its
// SafetyClass.
type Call struct {
	ToolName string
	Command  string // only meaningful when ToolName is the shell tool
}

// Executor runs a single call and returns its result or error. It is
// supplied by the caller (the Tool Loop) so the scheduler stays agnostic
// of how a call actually executes.
type Executor func(ctx context.Context, index int, call Call) (interface{}, error)

// Outcome is one call's result, tagged with its original index so callers
// can reassemble order-preserving output.
type Outcome struct {
	Index  int
	Result interface{}
	Err    error
}

// Scheduler groups and runs batches of calls according to their safety
// classification.
type Scheduler struct {
	MaxConcurrency int
	// Disabled forces every call to run sequentially in original order,
	// regardless of classification. Used when parallel execution is
	// turned off entirely (e.g. a user setting or a degraded-mode run).
	Disabled bool
}

// New returns a Scheduler with DefaultMaxConcurrency.
func New() *Scheduler {
	return &Scheduler{MaxConcurrency: DefaultMaxConcurrency}
}

func (s *Scheduler) concurrency() int {
	if s.MaxConcurrency <= 0 {
		return DefaultMaxConcurrency
	}
	if s.MaxConcurrency > MaxConcurrencyCeiling {
		return MaxConcurrencyCeiling
	}
	return s.MaxConcurrency
}

// group is a maximal run of consecutive calls sharing the same
// parallelizability: either all ReadOnly (runs concurrently) or a single
// Mutating/Unknown call (runs alone).
type group struct {
	indices       []int
	parallelizable bool
}

// groupCalls splits calls into maximal runs of consecutive ReadOnly calls
// (grouped together) interleaved with singleton groups for every
// Mutating or Unknown call, which never batch with anything else.
func groupCalls(calls []Call) []group {
	var groups []group
	var current []int

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, group{indices: current, parallelizable: true})
			current = nil
		}
	}

	for i, c := range calls {
		class := classify.Tool(c.ToolName, c.Command)
		if class.Parallelizable() {
			current = append(current, i)
			continue
		}
		flush()
		groups = append(groups, group{indices: []int{i}, parallelizable: false})
	}
	flush()

	return groups
}

// Run executes calls, returning one Outcome per call in calls' original
// order. Consecutive ReadOnly calls run concurrently, bounded by
// MaxConcurrency; any Mutating or Unknown call runs alone, blocking until
// it completes before the next group starts. If Disabled is set, every
// call runs sequentially in order.
func (s *Scheduler) Run(ctx context.Context, calls []Call, exec Executor) []Outcome {
	outcomes := make([]Outcome, len(calls))

	if s.Disabled {
		for i, c := range calls {
			result, err := exec(ctx, i, c)
			outcomes[i] = Outcome{Index: i, Result: result, Err: err}
		}
		return outcomes
	}

	for _, g := range groupCalls(calls) {
		if !g.parallelizable || len(g.indices) == 1 {
			for _, idx := range g.indices {
				result, err := exec(ctx, idx, calls[idx])
				outcomes[idx] = Outcome{Index: idx, Result: result, Err: err}
			}
			continue
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, s.concurrency())

		for _, idx := range g.indices {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					outcomes[i] = Outcome{Index: i, Err: ctx.Err()}
					return
				}

				result, err := exec(ctx, i, calls[i])
				outcomes[i] = Outcome{Index: i, Result: result, Err: err}
			}(idx)
		}
		wg.Wait()
	}

	return outcomes
}
