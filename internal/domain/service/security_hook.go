// Copyright 2026 CoreAgent. All rights reserved.

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/relayforge/coreagent/internal/domain/permission"
	"github.com/relayforge/coreagent/internal/infrastructure/config"
	"github.com/relayforge/coreagent/internal/infrastructure/hookdispatch"
)

// ApprovalFunc is the callback to request user confirmation via Telegram.
// It blocks until the user responds or the context is cancelled.
// Returns true if approved, false if denied/timeout.
type ApprovalFunc func(ctx context.Context, toolName string, args map[string]interface{}) (bool, error)

// SecurityHook implements AgentHook to enforce tool execution policies.
// It gates tool calls through BeforeToolCall, consulting first any
// lifecycle hook commands registered on dispatcher, then the Permission
// Gate's persistent rules and session grants, and only falling back to the
// legacy SecurityConfig trust/danger lists and Telegram approval prompt
// when the Gate itself has no opinion (NeedsPrompt).
type SecurityHook struct {
	cfg          config.SecurityConfig
	approvalFunc ApprovalFunc
	gate         *permission.Gate
	dispatcher   *hookdispatch.Dispatcher
	logger       *zap.Logger
	mu           sync.RWMutex
}

// NewSecurityHook creates a SecurityHook with the given config, approval
// callback, Permission Gate, and hook dispatcher. gate and dispatcher may
// both be nil, in which case the hook falls back to its legacy
// trust/danger-list behavior unmodified.
func NewSecurityHook(cfg config.SecurityConfig, approvalFunc ApprovalFunc, gate *permission.Gate, dispatcher *hookdispatch.Dispatcher, logger *zap.Logger) *SecurityHook {
	return &SecurityHook{
		cfg:          cfg,
		approvalFunc: approvalFunc,
		gate:         gate,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// inputDigest deterministically fingerprints args so the Permission Gate
// can recognize a repeated call to the same tool with the same arguments.
func inputDigest(args map[string]interface{}) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ---- AgentHook interface ----

func (h *SecurityHook) BeforeToolCall(ctx context.Context, toolName string, args map[string]interface{}) bool {
	h.mu.RLock()
	cfg := h.cfg
	h.mu.RUnlock()

	if h.dispatcher != nil {
		result, err := h.dispatcher.Dispatch(ctx, hookdispatch.PreToolUse, hookdispatch.Context{
			ToolName:  toolName,
			ToolInput: args,
		})
		if err != nil {
			h.logger.Error("PreToolUse hook dispatch failed", zap.String("tool", toolName), zap.Error(err))
		} else if result.Decision == hookdispatch.Block {
			h.logger.Info("Tool call blocked by PreToolUse hook",
				zap.String("tool", toolName),
				zap.String("reason", result.Reason),
			)
			return false
		}
	}

	digest := inputDigest(args)
	if h.gate != nil {
		switch h.gate.Check(toolName, digest) {
		case permission.Allowed, permission.SessionGrant:
			return true
		case permission.Denied:
			h.logger.Info("Tool call denied by permission gate rule", zap.String("tool", toolName))
			return false
		case permission.NeedsPrompt:
			// Fall through to the legacy trust-list/approval flow below;
			// an approval is recorded back into the gate as a session
			// grant, a denial is not recorded.
		}
	}

	approved := h.legacyApprove(ctx, toolName, args, cfg)

	if h.gate != nil {
		if approved {
			h.gate.Grant(toolName, digest, permission.AllowOnce)
		}
	}

	return approved
}

// legacyApprove runs the original trust/danger-list policy followed by a
// Telegram approval prompt when neither list resolves the call.
func (h *SecurityHook) legacyApprove(ctx context.Context, toolName string, args map[string]interface{}, cfg config.SecurityConfig) bool {
	// 1. Auto mode — always allow
	if cfg.ApprovalMode == "auto" {
		return true
	}

	// 2. Trusted tools — always allow (highest priority)
	if h.isTrusted(toolName, args, cfg) {
		return true
	}

	// 3. ask_dangerous — only ask for tools in the dangerous list
	if cfg.ApprovalMode == "ask_dangerous" {
		if !h.isDangerous(toolName, cfg) {
			return true
		}
	}
	// ask_all falls through — every non-trusted tool needs approval

	// 4. Request approval via Telegram
	if h.approvalFunc == nil {
		h.logger.Warn("No approval function set, auto-approving",
			zap.String("tool", toolName),
		)
		return true
	}

	h.logger.Info("Requesting user approval for tool",
		zap.String("tool", toolName),
		zap.String("mode", cfg.ApprovalMode),
	)

	approved, err := h.approvalFunc(ctx, toolName, args)
	if err != nil {
		h.logger.Error("Approval request failed",
			zap.String("tool", toolName),
			zap.Error(err),
		)
		return false
	}

	if !approved {
		h.logger.Info("Tool call denied by user",
			zap.String("tool", toolName),
		)
	}

	return approved
}

func (h *SecurityHook) AfterToolCall(ctx context.Context, toolName string, output string, success bool) {
	if h.dispatcher == nil {
		return
	}

	event := hookdispatch.PostToolUse
	if !success {
		event = hookdispatch.PostToolUseFailure
	}

	if _, err := h.dispatcher.Dispatch(ctx, event, hookdispatch.Context{
		ToolName:     toolName,
		ToolResponse: output,
	}); err != nil {
		h.logger.Error("PostToolUse hook dispatch failed", zap.String("tool", toolName), zap.Error(err))
	}
}
func (h *SecurityHook) BeforeLLMCall(_ context.Context, _ *LLMRequest, _ int)       {}
func (h *SecurityHook) AfterLLMCall(_ context.Context, _ *LLMResponse, _ int)       {}
func (h *SecurityHook) OnStateChange(_ AgentState, _ AgentState, _ StateSnapshot)    {}
func (h *SecurityHook) OnError(_ context.Context, _ error, _ int)                    {}
func (h *SecurityHook) OnComplete(_ context.Context, _ *AgentResult)                 {}


// SetApprovalFunc sets the approval callback (deferred injection after TG adapter creation).
func (h *SecurityHook) SetApprovalFunc(fn ApprovalFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.approvalFunc = fn
}

// ---- Policy helpers ----

// isTrusted checks if a tool/command is in the trust list.
func (h *SecurityHook) isTrusted(toolName string, args map[string]interface{}, cfg config.SecurityConfig) bool {
	for _, t := range cfg.TrustedTools {
		if t == toolName {
			return true
		}
	}

	// For shell_exec, check if the command matches a trusted command prefix
	if toolName == "shell_exec" {
		return h.isCommandTrusted(args, cfg)
	}

	return false
}

// isDangerous checks if a tool is in the dangerous list.
func (h *SecurityHook) isDangerous(toolName string, cfg config.SecurityConfig) bool {
	for _, d := range cfg.DangerousTools {
		if d == toolName {
			return true
		}
	}
	return false
}

// isCommandTrusted checks if a shell command matches a trusted command prefix.
func (h *SecurityHook) isCommandTrusted(args map[string]interface{}, cfg config.SecurityConfig) bool {
	cmd, ok := args["command"].(string)
	if !ok {
		return false
	}
	cmd = strings.TrimSpace(cmd)

	// Extract the first token (the actual command binary)
	firstToken := cmd
	if idx := strings.IndexAny(cmd, " \t|;&"); idx >= 0 {
		firstToken = cmd[:idx]
	}
	// Strip path prefix (e.g. /usr/bin/ls → ls)
	if idx := strings.LastIndex(firstToken, "/"); idx >= 0 {
		firstToken = firstToken[idx+1:]
	}

	for _, trusted := range cfg.TrustedCommands {
		if firstToken == trusted {
			return true
		}
	}
	return false
}

// ---- Runtime config updates (called by TG commands) ----

// UpdateConfig replaces the security config at runtime.
func (h *SecurityHook) UpdateConfig(cfg config.SecurityConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

// GetConfig returns the current security config.
func (h *SecurityHook) GetConfig() config.SecurityConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// SetApprovalMode changes the approval mode ("auto", "ask_dangerous", "ask_all").
func (h *SecurityHook) SetApprovalMode(mode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg.ApprovalMode = mode
}

// TrustTool adds a tool to the trusted list (removes from dangerous if present).
func (h *SecurityHook) TrustTool(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Add to trusted if not already there
	for _, t := range h.cfg.TrustedTools {
		if t == name {
			goto removeDangerous
		}
	}
	h.cfg.TrustedTools = append(h.cfg.TrustedTools, name)

removeDangerous:
	// Remove from dangerous if present
	filtered := h.cfg.DangerousTools[:0]
	for _, d := range h.cfg.DangerousTools {
		if d != name {
			filtered = append(filtered, d)
		}
	}
	h.cfg.DangerousTools = filtered
}

// UntrustTool removes a tool from the trusted list.
func (h *SecurityHook) UntrustTool(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	filtered := h.cfg.TrustedTools[:0]
	for _, t := range h.cfg.TrustedTools {
		if t != name {
			filtered = append(filtered, t)
		}
	}
	h.cfg.TrustedTools = filtered
}

// TrustCommand adds a command prefix to the trusted commands list.
func (h *SecurityHook) TrustCommand(cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.cfg.TrustedCommands {
		if c == cmd {
			return
		}
	}
	h.cfg.TrustedCommands = append(h.cfg.TrustedCommands, cmd)
}
