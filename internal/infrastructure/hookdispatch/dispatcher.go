// Copyright 2026 CoreAgent Authors. All rights reserved.

package hookdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command is one hook invocation: a shell command plus an optional
// per-hook timeout.
type Command struct {
	Command   string
	TimeoutMs int64 // 0 means DefaultTimeout
}

// Definition binds a set of hook Commands to an event, optionally scoped
// by a matcher against the event's tool name.
type Definition struct {
	Matcher string // empty matches every tool name (or events with no tool name)
	Hooks   []Command
}

// DefaultTimeout bounds hook command execution when a Command does not
// specify its own TimeoutMs.
const DefaultTimeout = 30 * time.Second

// Dispatcher runs hook commands registered per Event and interprets their
// exit codes into a Decision.
type Dispatcher struct {
	logger    *zap.Logger
	sessionID string
	byEvent   map[Event][]Definition
}

// New returns a Dispatcher with no hooks registered.
func New(sessionID string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		sessionID: sessionID,
		byEvent:   make(map[Event][]Definition),
	}
}

// Register appends definitions for event, in addition to any already
// registered.
func (d *Dispatcher) Register(event Event, defs ...Definition) {
	d.byEvent[event] = append(d.byEvent[event], defs...)
}

// Dispatch fires event with the given context fields, running every
// matching hook command in registration order. The first command to exit
// 0 is skipped over (continue); the first to exit 2 short-circuits the
// whole dispatch with Block; any other exit code is logged as a warning
// and treated as continue.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, hookCtx Context) (Result, error) {
	hookCtx.HookEventName = event.String()
	hookCtx.SessionID = d.sessionID

	defs := d.byEvent[event]
	if len(defs) == 0 {
		return Result{Decision: Continue}, nil
	}

	payload, err := json.Marshal(hookCtx)
	if err != nil {
		return Result{}, fmt.Errorf("encode hook context: %w", err)
	}

	for _, def := range defs {
		if def.Matcher != "" && hookCtx.ToolName != "" && !matchesPattern(def.Matcher, hookCtx.ToolName) {
			continue
		}

		for _, hook := range def.Hooks {
			exitCode, stdout, stderr, err := d.run(ctx, hook, payload)
			if err != nil {
				return Result{}, err
			}

			switch exitCode {
			case 0:
				continue
			case 2:
				return Result{Decision: Block, Reason: strings.TrimRight(stdout, "\n")}, nil
			default:
				d.logger.Warn("hook exited with non-zero status",
					zap.Int("exit_code", exitCode),
					zap.String("event", event.String()),
					zap.String("stderr", stderr),
				)
			}
		}
	}

	return Result{Decision: Continue}, nil
}

func (d *Dispatcher) run(ctx context.Context, hook Command, stdin []byte) (exitCode int, stdout, stderr string, err error) {
	trimmed := strings.TrimSpace(hook.Command)
	if trimmed == "" {
		d.logger.Warn("skipping empty hook command")
		return 1, "", "hook command is empty", nil
	}

	timeout := DefaultTimeout
	if hook.TimeoutMs > 0 {
		timeout = time.Duration(hook.TimeoutMs) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", trimmed)
	cmd.Stdin = bytes.NewReader(stdin)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	d.logger.Info("executing hook command", zap.String("command", trimmed))

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()

	if runCtx.Err() == context.DeadlineExceeded {
		return -1, stdout, stderr, fmt.Errorf("hook command timed out after %v: %s", timeout, trimmed)
	}

	if runErr == nil {
		return 0, stdout, stderr, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), stdout, stderr, nil
	}
	return -1, stdout, stderr, fmt.Errorf("run hook command %q: %w", trimmed, runErr)
}
