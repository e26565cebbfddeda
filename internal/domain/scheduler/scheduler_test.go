// Copyright 2026 CoreAgent Authors. All rights reserved.

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunPreservesOrderForReadOnlyCalls(t *testing.T) {
	s := New()
	calls := []Call{
		{ToolName: "read_file"},
		{ToolName: "read_file"},
		{ToolName: "read_file"},
	}

	outcomes := s.Run(context.Background(), calls, func(_ context.Context, index int, _ Call) (interface{}, error) {
		return index, nil
	})

	for i, o := range outcomes {
		if o.Index != i {
			t.Fatalf("outcomes[%d].Index = %d", i, o.Index)
		}
		if o.Result.(int) != i {
			t.Fatalf("outcomes[%d].Result = %v, want %d", i, o.Result, i)
		}
	}
}

func TestRunGroupsConsecutiveReadOnlyCallsConcurrently(t *testing.T) {
	s := New()
	calls := []Call{
		{ToolName: "read_file"},
		{ToolName: "glob"},
		{ToolName: "grep"},
	}

	var concurrent int32
	var maxConcurrent int32
	release := make(chan struct{})
	var once sync.Once

	s.Run(context.Background(), calls, func(_ context.Context, index int, _ Call) (interface{}, error) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		if n == int32(len(calls)) {
			once.Do(func() { close(release) })
		} else {
			<-release
		}
		atomic.AddInt32(&concurrent, -1)
		return index, nil
	})

	if maxConcurrent < 2 {
		t.Errorf("maxConcurrent = %d, want >= 2 (ReadOnly calls should overlap)", maxConcurrent)
	}
}

func TestRunIsolatesMutatingCallsFromBatching(t *testing.T) {
	s := New()
	calls := []Call{
		{ToolName: "read_file"},
		{ToolName: "write_file"},
		{ToolName: "read_file"},
	}

	var order []int
	var mu sync.Mutex

	s.Run(context.Background(), calls, func(_ context.Context, index int, _ Call) (interface{}, error) {
		mu.Lock()
		order = append(order, index)
		mu.Unlock()
		return nil, nil
	})

	if len(order) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(order))
	}
	// The mutating call splits the batch into three singleton groups,
	// which run one after another in call order.
	if order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("order = %v, want [0 1 2]", order)
	}
}

func TestRunRespectsMaxConcurrency(t *testing.T) {
	s := &Scheduler{MaxConcurrency: 2}
	calls := make([]Call, 6)
	for i := range calls {
		calls[i] = Call{ToolName: "read_file"}
	}

	var concurrent int32
	var maxConcurrent int32
	block := make(chan struct{})
	var once sync.Once
	var seen int32

	s.Run(context.Background(), calls, func(_ context.Context, index int, _ Call) (interface{}, error) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		if atomic.AddInt32(&seen, 1) == int32(s.MaxConcurrency) {
			once.Do(func() { close(block) })
		} else {
			<-block
		}
		atomic.AddInt32(&concurrent, -1)
		return index, nil
	})

	if maxConcurrent > int32(s.MaxConcurrency) {
		t.Errorf("maxConcurrent = %d, want <= %d", maxConcurrent, s.MaxConcurrency)
	}
}

func TestRunDisabledRunsSequentiallyInOrder(t *testing.T) {
	s := &Scheduler{Disabled: true}
	calls := []Call{{ToolName: "read_file"}, {ToolName: "glob"}}

	var order []int
	s.Run(context.Background(), calls, func(_ context.Context, index int, _ Call) (interface{}, error) {
		order = append(order, index)
		return nil, nil
	})

	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Errorf("order = %v, want [0 1]", order)
	}
}

func TestConcurrencyClampedToCeiling(t *testing.T) {
	s := &Scheduler{MaxConcurrency: MaxConcurrencyCeiling + 100}
	if got := s.concurrency(); got != MaxConcurrencyCeiling {
		t.Errorf("concurrency() = %d, want %d", got, MaxConcurrencyCeiling)
	}
}

func TestConcurrencyDefaultsWhenUnset(t *testing.T) {
	s := &Scheduler{}
	if got := s.concurrency(); got != DefaultMaxConcurrency {
		t.Errorf("concurrency() = %d, want %d", got, DefaultMaxConcurrency)
	}
}
