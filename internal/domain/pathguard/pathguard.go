// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package pathguard resolves, canonicalizes, and confines file paths to a
// working directory. It rejects path traversal, absolute-path escapes, and
// (unconditionally, at every call site, not only during validation)
// symlinks, closing the TOCTOU window between a validated path and the
// syscall that later uses it.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relayforge/coreagent/internal/domain/secpolicy"
)

// Guard confines all file operations to WorkingDir.
type Guard struct {
	WorkingDir string
	Policy     *secpolicy.Policy
}

// New returns a Guard rooted at workingDir.
func New(workingDir string, policy *secpolicy.Policy) *Guard {
	return &Guard{WorkingDir: workingDir, Policy: policy}
}

// ValidateRead resolves path (relative to WorkingDir) to a canonical
// absolute path guaranteed to lie within WorkingDir, or returns an error.
func (g *Guard) ValidateRead(path string) (string, error) {
	canonical, err := g.validate(path)
	if err != nil {
		return "", err
	}
	if err := g.checkSymlink(path); err != nil {
		return "", err
	}
	return canonical, nil
}

// ValidateWrite behaves like ValidateRead, additionally rejecting any
// target under a configured protected prefix.
func (g *Guard) ValidateWrite(path string) (string, error) {
	canonical, err := g.validate(path)
	if err != nil {
		return "", err
	}
	if err := g.checkSymlink(path); err != nil {
		return "", err
	}
	if g.Policy != nil && g.Policy.IsProtectedWrite(canonical) {
		return "", fmt.Errorf("write blocked: path is in protected directory %s", protectedPrefixFor(g.Policy, canonical))
	}
	return canonical, nil
}

func protectedPrefixFor(policy *secpolicy.Policy, canonical string) string {
	for _, p := range policy.ProtectedPaths {
		if canonical == p || strings.HasPrefix(canonical, p+string(filepath.Separator)) {
			return p
		}
	}
	return ""
}

// validate implements the canonicalize-then-confine algorithm, without
// the symlink check (callers run that separately so it can be re-run at
// each operation call site).
func (g *Guard) validate(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths are not allowed: path traversal outside working directory")
	}

	fullPath := filepath.Join(g.WorkingDir, path)

	canonicalWorkingDir, err := filepath.EvalSymlinks(g.WorkingDir)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize working directory: %w", err)
	}

	var canonicalFullPath string
	if _, statErr := os.Stat(fullPath); statErr == nil {
		canonicalFullPath, err = filepath.EvalSymlinks(fullPath)
		if err != nil {
			return "", fmt.Errorf("failed to canonicalize path: %w", err)
		}
	} else {
		parent := filepath.Dir(fullPath)
		filename := filepath.Base(fullPath)
		if filename == "." || filename == string(filepath.Separator) {
			return "", fmt.Errorf("invalid path: no filename")
		}

		if _, parentErr := os.Stat(parent); parentErr == nil {
			canonicalParent, err := filepath.EvalSymlinks(parent)
			if err != nil {
				return "", fmt.Errorf("failed to canonicalize parent directory: %w", err)
			}
			canonicalFullPath = filepath.Join(canonicalParent, filename)
		} else {
			if strings.Contains(path, "..") {
				return "", fmt.Errorf("path traversal outside working directory")
			}
			canonicalFullPath = fullPath
		}
	}

	if !isWithin(canonicalFullPath, canonicalWorkingDir) {
		return "", fmt.Errorf("path traversal outside working directory")
	}

	return canonicalFullPath, nil
}

// checkSymlink rejects path unconditionally if it is itself a symlink,
// regardless of where it points. Uses Lstat, which (unlike Stat) reports
// on the link itself rather than following it.
func (g *Guard) checkSymlink(path string) error {
	fullPath := filepath.Join(g.WorkingDir, path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		// Doesn't exist yet; the traversal check already validated the parent.
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("symlink not allowed: file operations on symlinks are rejected for security (TOCTOU mitigation)")
	}
	return nil
}

func isWithin(candidate, root string) bool {
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}
