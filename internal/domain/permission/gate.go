// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package permission implements the Permission Gate: the three-level
// precedence decision of whether a tool call is preauthorized, denied,
// session-granted, or requires a user prompt.
package permission

import (
	"strings"
	"sync"
)

// Decision is the outcome of a permission check.
type Decision int

const (
	// Allowed means the call may proceed without prompting.
	Allowed Decision = iota
	// Denied means the call must not proceed; no prompt is offered.
	Denied
	// SessionGrant means the call was previously approved for this
	// session and may proceed without re-prompting.
	SessionGrant
	// NeedsPrompt means the caller must elicit a user response before
	// the call may proceed.
	NeedsPrompt
)

// Rule is a persistent always-allow/always-deny rule. InputSubstring, if
// non-empty, must appear in the call's input digest for the rule to match;
// an empty InputSubstring matches every call to Tool.
type Rule struct {
	Tool           string
	InputSubstring string
	Allow          bool // true = always-allow, false = always-deny
}

// Request describes the call a caller wants a permission decision for.
type Request struct {
	Tool        string
	InputDigest string
	Description string
}

// PendingPrompt is returned to the caller when a decision is NeedsPrompt;
// the caller is responsible for eliciting a yes/no/always-yes response and
// calling Grant with the outcome.
type PendingPrompt struct {
	Tool        string
	InputDigest string
	Description string
}

// Gate holds the persistent rule set and the in-memory session grant
// table. The default policy (tool has no matching rule or grant) always
// resolves to NeedsPrompt — permission gating is conservative by default.
type Gate struct {
	mu             sync.Mutex
	persistentRules []Rule
	sessionGrants   map[string]bool // key: tool+"\x00"+inputDigest
}

// New returns an empty Gate with no persistent rules or session grants.
func New() *Gate {
	return &Gate{sessionGrants: make(map[string]bool)}
}

// NewWithRules returns a Gate seeded with persistent rules (e.g. loaded
// from a config file at startup).
func NewWithRules(rules []Rule) *Gate {
	return &Gate{persistentRules: rules, sessionGrants: make(map[string]bool)}
}

func grantKey(tool, inputDigest string) string {
	return tool + "\x00" + inputDigest
}

// Check resolves the permission decision for a call, in precedence order:
// persistent rules, then session grants, then the default (NeedsPrompt).
func (g *Gate) Check(tool, inputDigest string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, rule := range g.persistentRules {
		if rule.Tool != tool {
			continue
		}
		if rule.InputSubstring != "" && !containsSubstring(inputDigest, rule.InputSubstring) {
			continue
		}
		if rule.Allow {
			return Allowed
		}
		return Denied
	}

	if g.sessionGrants[grantKey(tool, inputDigest)] {
		return SessionGrant
	}

	return NeedsPrompt
}

// GrantResponse records the outcome of a user's response to a prompt.
type GrantResponse int

const (
	// DenyOnce records a one-time denial; no grant is persisted.
	DenyOnce GrantResponse = iota
	// AllowOnce grants this exact call for the remainder of the session.
	AllowOnce
	// AllowAlways adds a persistent always-allow rule for tool (matching
	// any input).
	AllowAlways
)

// Grant records the outcome of a permission prompt for tool/inputDigest.
func (g *Gate) Grant(tool, inputDigest string, response GrantResponse) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch response {
	case AllowOnce:
		g.sessionGrants[grantKey(tool, inputDigest)] = true
	case AllowAlways:
		g.persistentRules = append(g.persistentRules, Rule{Tool: tool, Allow: true})
	case DenyOnce:
		// No state change; the caller already knows the call is denied.
	}
}

// AddRule appends a persistent rule, e.g. loaded from user configuration.
func (g *Gate) AddRule(rule Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.persistentRules = append(g.persistentRules, rule)
}

func containsSubstring(haystack, needle string) bool {
	return needle == "" || strings.Contains(haystack, needle)
}
