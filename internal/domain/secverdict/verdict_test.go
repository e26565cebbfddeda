// Copyright 2026 CoreAgent Authors. All rights reserved.

package secverdict

import "testing"

func TestNewAllow(t *testing.T) {
	v := NewAllow()
	if v.BlocksExecution() {
		t.Error("Allow should not block execution")
	}
	if v.HasWarning() {
		t.Error("Allow should not carry a warning")
	}
	if reason, ok := v.ReasonText(); ok || reason != "" {
		t.Errorf("ReasonText() = (%q, %v), want (\"\", false)", reason, ok)
	}
}

func TestNewWarn(t *testing.T) {
	v := NewWarn("touches a config file")
	if v.BlocksExecution() {
		t.Error("Warn should not block execution")
	}
	if !v.HasWarning() {
		t.Error("Warn should carry a warning")
	}
	reason, ok := v.ReasonText()
	if !ok || reason != "touches a config file" {
		t.Errorf("ReasonText() = (%q, %v)", reason, ok)
	}
}

func TestNewBlock(t *testing.T) {
	v := NewBlock("rm -rf / is not allowed")
	if !v.BlocksExecution() {
		t.Error("Block should block execution")
	}
	if v.HasWarning() {
		t.Error("Block should not report as a warning")
	}
	reason, ok := v.ReasonText()
	if !ok || reason != "rm -rf / is not allowed" {
		t.Errorf("ReasonText() = (%q, %v)", reason, ok)
	}
}
