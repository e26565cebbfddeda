// Copyright 2026 CoreAgent Authors. All rights reserved.

package hookdispatch

import (
	"path/filepath"
	"strings"
)

// matchesPattern reports whether toolName matches matcher. matcher supports
// three forms: pipe-separated alternatives ("Bash|Read|Write"), a glob
// ("mcp__*"), or an exact name ("Bash"). Each pipe-separated part is itself
// tried as a glob first, falling back to exact match.
//
// There is no third-party glob matcher in the dependency set this module
// draws from, and filepath.Match's shell-glob semantics are exactly what
// the pipe/glob/exact matcher needs, so this uses the standard library
// directly rather than adopting a dependency for one function.
func matchesPattern(matcher, toolName string) bool {
	if strings.Contains(matcher, "|") {
		for _, part := range strings.Split(matcher, "|") {
			trimmed := strings.TrimSpace(part)
			if matchesOne(trimmed, toolName) {
				return true
			}
		}
		return false
	}
	return matchesOne(matcher, toolName)
}

func matchesOne(pattern, toolName string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := filepath.Match(pattern, toolName)
		return err == nil && ok
	}
	return pattern == toolName
}
