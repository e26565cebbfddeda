// Copyright 2026 CoreAgent Authors. All rights reserved.

package pathguard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relayforge/coreagent/internal/domain/secpolicy"
)

func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q) failed: %v", dir, err)
	}
	return New(resolved, secpolicy.Default()), resolved
}

func TestValidateReadRejectsAbsolutePath(t *testing.T) {
	g, _ := newTestGuard(t)
	if _, err := g.ValidateRead("/etc/passwd"); err == nil {
		t.Fatal("expected absolute path to be rejected")
	}
}

func TestValidateReadRejectsTraversal(t *testing.T) {
	g, _ := newTestGuard(t)
	if _, err := g.ValidateRead("../etc/passwd"); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}

func TestValidateReadAcceptsExistingFileWithinRoot(t *testing.T) {
	g, root := newTestGuard(t)
	target := filepath.Join(root, "a.txt")
	if err := os.WriteFile(target, []byte("hi"), 0o644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	got, err := g.ValidateRead("a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != target && !strings.HasPrefix(got, root+string(filepath.Separator)) {
		t.Errorf("ValidateRead returned %q, not under root %q", got, root)
	}
}

func TestValidateReadAcceptsNewFileWithinRoot(t *testing.T) {
	g, root := newTestGuard(t)
	got, err := g.ValidateRead("new.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, root) {
		t.Errorf("ValidateRead(new.txt) = %q, want prefix %q", got, root)
	}
}

func TestValidateWriteRejectsProtectedPath(t *testing.T) {
	root := t.TempDir()
	resolved, _ := filepath.EvalSymlinks(root)
	policy := secpolicy.Default()
	policy.ProtectedPaths = []string{filepath.Join(resolved, "locked")}

	if err := os.MkdirAll(filepath.Join(resolved, "locked"), 0o755); err != nil {
		t.Fatalf("setup mkdir failed: %v", err)
	}

	g := New(resolved, policy)
	if _, err := g.ValidateWrite("locked/file.txt"); err == nil {
		t.Fatal("expected write under protected path to be rejected")
	}
}

func TestSymlinkRejectedRegardlessOfTarget(t *testing.T) {
	g, root := newTestGuard(t)

	insideTarget := filepath.Join(root, "inside.txt")
	if err := os.WriteFile(insideTarget, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}

	linkInside := filepath.Join(root, "link-inside")
	if err := os.Symlink(insideTarget, linkInside); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	if _, err := g.ValidateRead("link-inside"); err == nil {
		t.Error("expected symlink pointing inside the working directory to be rejected (B4)")
	}

	outsideDir := t.TempDir()
	outsideTarget := filepath.Join(outsideDir, "secret.txt")
	if err := os.WriteFile(outsideTarget, []byte("s3cr3t"), 0o644); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	linkOutside := filepath.Join(root, "link-outside")
	if err := os.Symlink(outsideTarget, linkOutside); err != nil {
		t.Fatalf("setup symlink failed: %v", err)
	}

	if _, err := g.ValidateRead("link-outside"); err == nil {
		t.Error("expected symlink pointing outside the working directory to be rejected")
	}
}
