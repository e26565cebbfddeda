package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestRepoMapListsGoSymbols(t *testing.T) {
	guard := newTestGuard(t)
	src := `package demo

func Greet(name string) string {
	return "hello " + name
}
`
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "demo.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewRepoMapTool(guard, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "."})
	if err != nil || !res.Success {
		t.Fatalf("repo_map failed: %v %+v", err, res)
	}
	if res.Metadata["files_scanned"].(int) < 1 {
		t.Errorf("expected at least one file scanned, got %v", res.Metadata["files_scanned"])
	}
}

func TestRepoMapFiltersByLanguage(t *testing.T) {
	guard := newTestGuard(t)
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "a.go"), []byte("package a\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "b.py"), []byte("def b():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewRepoMapTool(guard, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": ".", "language": "python"})
	if err != nil || !res.Success {
		t.Fatalf("repo_map failed: %v %+v", err, res)
	}
	if res.Metadata["files_scanned"].(int) != 1 {
		t.Errorf("files_scanned = %v, want 1", res.Metadata["files_scanned"])
	}
}

func TestRepoMapRejectsMissingPath(t *testing.T) {
	guard := newTestGuard(t)
	tool := NewRepoMapTool(guard, zap.NewNop())
	res, _ := tool.Execute(context.Background(), map[string]interface{}{})
	if res.Success {
		t.Error("expected failure when path is omitted")
	}
}
