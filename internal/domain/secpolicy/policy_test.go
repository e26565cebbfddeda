// Copyright 2026 CoreAgent Authors. All rights reserved.

package secpolicy

import (
	"testing"
	"time"
)

func TestNormalizeCommandBasic(t *testing.T) {
	if got := NormalizeCommand("ls"); got != "ls" {
		t.Errorf("NormalizeCommand(ls) = %q", got)
	}
	if got := NormalizeCommand("echo hello"); got != "echo hello" {
		t.Errorf("NormalizeCommand(echo hello) = %q", got)
	}
}

func TestNormalizeCommandEscapeBypass(t *testing.T) {
	if got := NormalizeCommand(`r\m -rf /`); got != "rm -rf /" {
		t.Errorf("NormalizeCommand(r\\m -rf /) = %q, want %q", got, "rm -rf /")
	}
	if got := NormalizeCommand(`su\do command`); got != "sudo command" {
		t.Errorf("NormalizeCommand(su\\do command) = %q, want %q", got, "sudo command")
	}
}

func TestNormalizeCommandPreservesSpecialEscapes(t *testing.T) {
	if got := NormalizeCommand(`echo \n`); got != `echo \n` {
		t.Errorf("NormalizeCommand(echo \\n) = %q", got)
	}
	if got := NormalizeCommand(`echo \t`); got != `echo \t` {
		t.Errorf("NormalizeCommand(echo \\t) = %q", got)
	}
}

func TestNormalizeCommandIdempotent(t *testing.T) {
	inputs := []string{"ls -la", `r\m -rf /`, `echo \n hi`, "sudo rm -rf /"}
	for _, in := range inputs {
		once := NormalizeCommand(in)
		twice := NormalizeCommand(once)
		if once != twice {
			t.Errorf("NormalizeCommand not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := Default()
	if len(p.DangerousPatterns) == 0 {
		t.Error("expected non-empty dangerous pattern set")
	}
	if len(p.ProtectedPaths) == 0 {
		t.Error("expected non-empty protected path set")
	}
	if p.MaxFileSize != 10*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 10MiB", p.MaxFileSize)
	}
	if p.MaxOutputSize != 1024*1024 {
		t.Errorf("MaxOutputSize = %d, want 1MiB", p.MaxOutputSize)
	}
	if p.CommandTimeout != 300*time.Second {
		t.Errorf("CommandTimeout = %v, want 300s", p.CommandTimeout)
	}
	if p.AllowlistMode {
		t.Error("AllowlistMode should default to false")
	}
}

func TestDangerousPatternsBlockSudo(t *testing.T) {
	p := Default()
	if res := p.CheckCommand("sudo rm -rf /"); !res.Blocked {
		t.Error("expected sudo rm -rf / to be blocked")
	}
}

func TestDangerousPatternsBlockRmRf(t *testing.T) {
	p := Default()
	if res := p.CheckCommand("rm -rf /"); !res.Blocked {
		t.Error("expected rm -rf / to be blocked")
	}
}

func TestDangerousPatternsAllowSafe(t *testing.T) {
	p := Default()
	if res := p.CheckCommand("ls -la"); res.Blocked {
		t.Error("expected ls -la to be allowed")
	}
}

func TestEscapeBypassCaught(t *testing.T) {
	p := Default()
	if res := p.CheckCommand(`r\m -rf /`); !res.Blocked {
		t.Error("expected escaped rm -rf / to be blocked via normalization")
	}
}

func TestAllowlistModeRejectsUnlisted(t *testing.T) {
	p := Default()
	p.AllowlistMode = true
	p.AllowedCommands = compileAll([]string{`^ls\b`})

	if res := p.CheckCommand("ls -la"); res.Blocked {
		t.Error("expected allowlisted command to pass")
	}
	if res := p.CheckCommand("cat file.txt"); !res.Blocked {
		t.Error("expected non-allowlisted command to be blocked")
	}
}

func TestIsProtectedWrite(t *testing.T) {
	p := &Policy{ProtectedPaths: []string{"/etc", "/usr"}}
	if !p.IsProtectedWrite("/etc/passwd") {
		t.Error("expected /etc/passwd to be protected")
	}
	if p.IsProtectedWrite("/home/user/file.txt") {
		t.Error("expected /home/user/file.txt to not be protected")
	}
	if !p.IsProtectedWrite("/etc") {
		t.Error("expected exact protected path match")
	}
}
