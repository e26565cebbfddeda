// Copyright 2026 CoreAgent Authors. All rights reserved.

package permission

import "testing"

func TestCheckDefaultsToNeedsPrompt(t *testing.T) {
	g := New()
	if got := g.Check("bash", "ls -la"); got != NeedsPrompt {
		t.Errorf("Check() = %v, want NeedsPrompt", got)
	}
}

func TestPersistentAllowRuleTakesPrecedence(t *testing.T) {
	g := NewWithRules([]Rule{{Tool: "read_file", Allow: true}})
	if got := g.Check("read_file", "a.txt"); got != Allowed {
		t.Errorf("Check() = %v, want Allowed", got)
	}
}

func TestPersistentDenyRuleTakesPrecedence(t *testing.T) {
	g := NewWithRules([]Rule{{Tool: "bash", Allow: false}})
	if got := g.Check("bash", "rm -rf /"); got != Denied {
		t.Errorf("Check() = %v, want Denied", got)
	}
}

func TestPersistentRuleWithSubstringOnlyMatchesMatchingInput(t *testing.T) {
	g := NewWithRules([]Rule{{Tool: "bash", InputSubstring: "git status", Allow: true}})
	if got := g.Check("bash", "git status"); got != Allowed {
		t.Errorf("Check(matching) = %v, want Allowed", got)
	}
	if got := g.Check("bash", "rm -rf /"); got != NeedsPrompt {
		t.Errorf("Check(non-matching) = %v, want NeedsPrompt", got)
	}
}

func TestSessionGrantPersistsForSameCallOnly(t *testing.T) {
	g := New()
	g.Grant("write_file", "a.txt", AllowOnce)

	if got := g.Check("write_file", "a.txt"); got != SessionGrant {
		t.Errorf("Check(granted) = %v, want SessionGrant", got)
	}
	if got := g.Check("write_file", "b.txt"); got != NeedsPrompt {
		t.Errorf("Check(different input) = %v, want NeedsPrompt", got)
	}
}

func TestAllowAlwaysAddsPersistentRule(t *testing.T) {
	g := New()
	g.Grant("bash", "ls", AllowAlways)

	if got := g.Check("bash", "ls"); got != Allowed {
		t.Errorf("Check() = %v, want Allowed", got)
	}
	if got := g.Check("bash", "pwd"); got != Allowed {
		t.Errorf("AllowAlways should match any input for the tool; Check() = %v, want Allowed", got)
	}
}

func TestDenyOnceDoesNotPersist(t *testing.T) {
	g := New()
	g.Grant("bash", "rm -rf /", DenyOnce)
	if got := g.Check("bash", "rm -rf /"); got != NeedsPrompt {
		t.Errorf("Check() = %v, want NeedsPrompt (deny-once should not persist)", got)
	}
}

func TestPersistentRulesPrecedeSessionGrants(t *testing.T) {
	g := New()
	g.Grant("bash", "ls", AllowOnce)
	g.AddRule(Rule{Tool: "bash", Allow: false})

	if got := g.Check("bash", "ls"); got != Denied {
		t.Errorf("Check() = %v, want Denied (persistent deny outranks prior session grant)", got)
	}
}

func TestAddRuleAppendsAndFirstMatchWins(t *testing.T) {
	g := New()
	g.AddRule(Rule{Tool: "bash", InputSubstring: "ls", Allow: true})
	g.AddRule(Rule{Tool: "bash", Allow: false})

	if got := g.Check("bash", "ls -la"); got != Allowed {
		t.Errorf("Check(ls) = %v, want Allowed (first matching rule wins)", got)
	}
	if got := g.Check("bash", "rm -rf /"); got != Denied {
		t.Errorf("Check(rm) = %v, want Denied (falls through to catch-all deny rule)", got)
	}
}
