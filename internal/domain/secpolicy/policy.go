// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package secpolicy holds the Security Policy value object: the
// dangerous-command pattern set, protected write paths, and size/time
// limits that gate the tool executor. A Policy is built once and shared
// read-only across every concurrent tool task.
package secpolicy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// Policy is immutable once constructed by New or Default.
type Policy struct {
	DangerousPatterns []*regexp.Regexp
	ProtectedPaths    []string
	MaxFileSize       int64
	MaxOutputSize     int
	CommandTimeout    time.Duration
	AllowlistMode     bool
	AllowedCommands   []*regexp.Regexp
}

const (
	defaultMaxFileSize    = 10 * 1024 * 1024
	defaultMaxOutputSize  = 1024 * 1024
	defaultCommandTimeout = 300 * time.Second
)

// Default returns the platform-appropriate default policy: blocklist
// mode, the mandatory dangerous-pattern set for the host OS, and the
// size/time limits required by the runtime contract.
func Default() *Policy {
	return &Policy{
		DangerousPatterns: defaultDangerousPatterns(),
		ProtectedPaths:    defaultProtectedPaths(),
		MaxFileSize:       defaultMaxFileSize,
		MaxOutputSize:     defaultMaxOutputSize,
		CommandTimeout:    defaultCommandTimeout,
		AllowlistMode:     false,
		AllowedCommands:   nil,
	}
}

func defaultProtectedPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{
			`C:\Windows`,
			`C:\Program Files`,
			`C:\Program Files (x86)`,
		}
	}
	return []string{"/etc", "/usr", "/bin"}
}

// mustCompile panics only at package init, on a fixed literal pattern —
// a broken built-in pattern is a programmer error, not a runtime one.
func mustCompile(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("secpolicy: invalid built-in pattern %q: %v", pattern, err))
	}
	return re
}

func defaultDangerousPatterns() []*regexp.Regexp {
	if runtime.GOOS == "windows" {
		return windowsDangerousPatterns()
	}
	return unixDangerousPatterns()
}

func unixDangerousPatterns() []*regexp.Regexp {
	patterns := []string{
		`rm\s+-rf\s+/`,
		`rm\s+-fr\s+/`,
		`rm\s+--no-preserve-root`,
		`sudo\s+`,
		`\bsu\s+-`,
		`\bsu\s+root\b`,
		`\bsu\s*$`,
		`doas\s+`,
		`\bpkexec\b`,
		`\brunuser\b`,
		`chmod\s+777`,
		`chmod\s+-R\s+777`,
		`chmod\s+u\+s`,
		`mkfs\.`,
		`dd\s+if=.+of=/dev/`,
		`>\s*/dev/sd[a-z]`,
		`>\s*/dev/nvme`,
		`:\(\)\s*\{\s*:\|:&\s*\}\s*;`,
		`curl\s+.+\|\s*(ba)?sh`,
		`wget\s+.+\|\s*(ba)?sh`,
		`curl\s+.+\|\s*sudo`,
		`wget\s+.+\|\s*sudo`,
		`\bshutdown\b`,
		`\breboot\b`,
		`\bhalt\b`,
		`\bpoweroff\b`,
		`history\s+-c`,
		`>\s*~/\.bash_history`,
		`\beval\s+\$`,
		`\beval\s+["'$]`,
		`\$\(\s*which\s+`,
		"`\\s*which\\s+",
		`\$\(\s*printf\s+`,
		`base64\s+(-d|--decode).*\|\s*(ba)?sh`,
		`\|\s*base64\s+(-d|--decode).*\|\s*(ba)?sh`,
		`printf\s+["']\\x[0-9a-fA-F]`,
	}
	return compileAll(patterns)
}

func windowsDangerousPatterns() []*regexp.Regexp {
	patterns := []string{
		`(?i)\bdel\s+/[sq]`,
		`(?i)\bdel\s+.*/[sq]`,
		`(?i)\brd\s+/[sq]`,
		`(?i)\brmdir\s+/[sq]`,
		`(?i)\bformat\s+[a-z]:`,
		`(?i)\brunas\s+/user`,
		`(?i)powershell.*\s+-e\s`,
		`(?i)powershell.*\s+-enc\s`,
		`(?i)powershell.*\s+-encodedcommand\s`,
		`(?i)\biex\s*\(`,
		`(?i)\binvoke-expression\b`,
		`(?i)\breg\s+delete\b`,
		`(?i)\breg\s+add\b`,
		`(?i)\bshutdown\b`,
		`(?i)curl\s+.+\|\s*powershell`,
		`(?i)invoke-webrequest.*\|\s*iex`,
		`(?i)certutil\s+-urlcache`,
		`(?i)certutil\s+-decode`,
	}
	return compileAll(patterns)
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = mustCompile(p)
	}
	return compiled
}

// NormalizeCommand strips backslash escapes from ASCII-letter sequences
// so that an escape-bypass attempt (e.g. "r\m -rf /") normalizes to the
// command it actually runs ("rm -rf /"). Escapes whose letter is n, t, r,
// 0, or x are preserved because they represent characters, not bypasses.
// Idempotent: NormalizeCommand(NormalizeCommand(s)) == NormalizeCommand(s).
func NormalizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))

	runes := []rune(cmd)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' {
			b.WriteRune(c)
			continue
		}
		if i+1 >= len(runes) {
			b.WriteRune(c)
			continue
		}
		next := runes[i+1]
		switch {
		case next == 'n' || next == 't' || next == 'r' || next == '0' || next == 'x':
			b.WriteRune(c)
			b.WriteRune(next)
			i++
		case isASCIILetter(next):
			b.WriteRune(next)
			i++
		default:
			b.WriteRune(c)
			b.WriteRune(next)
			i++
		}
	}
	return b.String()
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// MatchResult describes why a command was rejected, if it was.
type MatchResult struct {
	Blocked bool
	Pattern string // the dangerous pattern source that matched, if Blocked
}

// CheckCommand evaluates command under this policy's mode. It checks both
// the original string and its normalized form against the dangerous
// pattern set, equivalent to checking each independently and OR-ing the
// verdicts. In allowlist mode, a command that is not blocked by a
// dangerous pattern must still match at least one allowed pattern.
func (p *Policy) CheckCommand(command string) MatchResult {
	normalized := NormalizeCommand(command)

	if res := matchAny(p.DangerousPatterns, command); res.Blocked {
		return res
	}
	if res := matchAny(p.DangerousPatterns, normalized); res.Blocked {
		return res
	}

	if p.AllowlistMode {
		if !matchesAny(p.AllowedCommands, command) && !matchesAny(p.AllowedCommands, normalized) {
			return MatchResult{Blocked: true, Pattern: "not in allowlist"}
		}
	}

	return MatchResult{Blocked: false}
}

func matchAny(patterns []*regexp.Regexp, s string) MatchResult {
	for _, re := range patterns {
		if re.MatchString(s) {
			return MatchResult{Blocked: true, Pattern: re.String()}
		}
	}
	return MatchResult{Blocked: false}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsProtectedWrite reports whether the canonical path lies under a
// configured protected prefix.
func (p *Policy) IsProtectedWrite(canonicalPath string) bool {
	for _, protected := range p.ProtectedPaths {
		if canonicalPath == protected || strings.HasPrefix(canonicalPath, protected+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
