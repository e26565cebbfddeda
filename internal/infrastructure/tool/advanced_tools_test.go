package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestEditFileReplacesUniqueMatch(t *testing.T) {
	guard := newTestGuard(t)
	os.WriteFile(filepath.Join(guard.WorkingDir, "f.go"), []byte("func old() {}\n"), 0o644)

	edit := NewEditFileTool(guard, zap.NewNop())
	res, err := edit.Execute(context.Background(), map[string]interface{}{
		"path": "f.go", "old_text": "old", "new_text": "new",
	})
	if err != nil || !res.Success {
		t.Fatalf("edit failed: %v %+v", err, res)
	}

	content, _ := os.ReadFile(filepath.Join(guard.WorkingDir, "f.go"))
	if string(content) != "func new() {}\n" {
		t.Fatalf("content = %q", content)
	}
}

func TestEditFileRejectsAmbiguousMatch(t *testing.T) {
	guard := newTestGuard(t)
	os.WriteFile(filepath.Join(guard.WorkingDir, "f.go"), []byte("foo\nfoo\n"), 0o644)

	edit := NewEditFileTool(guard, zap.NewNop())
	res, err := edit.Execute(context.Background(), map[string]interface{}{
		"path": "f.go", "old_text": "foo", "new_text": "bar",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected ambiguous match to fail")
	}
}

func TestEditFileRejectsNoMatch(t *testing.T) {
	guard := newTestGuard(t)
	os.WriteFile(filepath.Join(guard.WorkingDir, "f.go"), []byte("foo\n"), 0o644)

	edit := NewEditFileTool(guard, zap.NewNop())
	res, _ := edit.Execute(context.Background(), map[string]interface{}{
		"path": "f.go", "old_text": "missing", "new_text": "bar",
	})
	if res.Success {
		t.Fatal("expected missing old_text to fail")
	}
}

func TestGlobToolMatchesByExtension(t *testing.T) {
	guard := newTestGuard(t)
	os.Mkdir(filepath.Join(guard.WorkingDir, "sub"), 0o755)
	os.WriteFile(filepath.Join(guard.WorkingDir, "a.go"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(guard.WorkingDir, "sub", "b.go"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(guard.WorkingDir, "c.txt"), []byte("x"), 0o644)

	glob := NewGlobTool(guard, zap.NewNop())
	res, err := glob.Execute(context.Background(), map[string]interface{}{"pattern": "*.go"})
	if err != nil || !res.Success {
		t.Fatalf("glob failed: %v %+v", err, res)
	}
	if res.Metadata["count"].(int) != 2 {
		t.Fatalf("expected 2 matches, got %+v", res.Output)
	}
}

func TestGlobToolRejectsTraversalPattern(t *testing.T) {
	guard := newTestGuard(t)
	glob := NewGlobTool(guard, zap.NewNop())
	res, _ := glob.Execute(context.Background(), map[string]interface{}{"pattern": "../*.go"})
	if res.Success {
		t.Fatal("expected traversal pattern to be rejected")
	}
}

func TestGlobToolHonorsGitignore(t *testing.T) {
	guard := newTestGuard(t)
	os.WriteFile(filepath.Join(guard.WorkingDir, ".gitignore"), []byte("vendor/\n"), 0o644)
	os.Mkdir(filepath.Join(guard.WorkingDir, "vendor"), 0o755)
	os.WriteFile(filepath.Join(guard.WorkingDir, "vendor", "dep.go"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(guard.WorkingDir, "main.go"), []byte("x"), 0o644)

	glob := NewGlobTool(guard, zap.NewNop())
	res, _ := glob.Execute(context.Background(), map[string]interface{}{"pattern": "*.go"})
	if res.Metadata["count"].(int) != 1 {
		t.Fatalf("expected vendor/ to be ignored, got %+v", res.Output)
	}
}
