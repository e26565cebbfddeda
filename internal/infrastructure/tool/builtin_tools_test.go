package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/relayforge/coreagent/internal/domain/pathguard"
	"github.com/relayforge/coreagent/internal/domain/secpolicy"
	"go.uber.org/zap"
)

func newTestGuard(t *testing.T) *pathguard.Guard {
	t.Helper()
	dir := t.TempDir()
	return pathguard.New(dir, secpolicy.Default())
}

func TestWriteThenReadFileRoundTrip(t *testing.T) {
	guard := newTestGuard(t)
	write := NewWriteFileTool(guard, secpolicy.Default(), zap.NewNop())
	read := NewReadFileTool(guard, zap.NewNop())

	res, err := write.Execute(context.Background(), map[string]interface{}{
		"path":    "notes.txt",
		"content": "line1\nline2\nline3",
	})
	if err != nil || !res.Success {
		t.Fatalf("write failed: %v %+v", err, res)
	}

	res, err = read.Execute(context.Background(), map[string]interface{}{"path": "notes.txt"})
	if err != nil || !res.Success || res.Output != "line1\nline2\nline3" {
		t.Fatalf("read mismatch: %v %+v", err, res)
	}
}

func TestReadFileLineRange(t *testing.T) {
	guard := newTestGuard(t)
	write := NewWriteFileTool(guard, secpolicy.Default(), zap.NewNop())
	read := NewReadFileTool(guard, zap.NewNop())

	write.Execute(context.Background(), map[string]interface{}{
		"path":    "lines.txt",
		"content": "a\nb\nc\nd\ne",
	})

	res, err := read.Execute(context.Background(), map[string]interface{}{
		"path":       "lines.txt",
		"start_line": float64(2),
		"end_line":   float64(4),
	})
	if err != nil || res.Output != "b\nc\nd" {
		t.Fatalf("line range read = %+v, err=%v", res, err)
	}
}

func TestWriteFileCreatesBackupOnOverwrite(t *testing.T) {
	guard := newTestGuard(t)
	write := NewWriteFileTool(guard, secpolicy.Default(), zap.NewNop())

	write.Execute(context.Background(), map[string]interface{}{"path": "f.txt", "content": "v1"})
	write.Execute(context.Background(), map[string]interface{}{"path": "f.txt", "content": "v2"})

	entries, err := os.ReadDir(filepath.Join(guard.WorkingDir, backupDirName))
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected a backup file, got %v, err=%v", entries, err)
	}
}

func TestWriteFileRejectsOversizedContent(t *testing.T) {
	guard := newTestGuard(t)
	policy := secpolicy.Default()
	policy.MaxFileSize = 4
	write := NewWriteFileTool(guard, policy, zap.NewNop())

	res, _ := write.Execute(context.Background(), map[string]interface{}{"path": "big.txt", "content": "way too big"})
	if res.Success {
		t.Fatal("expected oversized write to fail")
	}
}

func TestListDirSortsAndLabelsEntries(t *testing.T) {
	guard := newTestGuard(t)
	os.Mkdir(filepath.Join(guard.WorkingDir, "sub"), 0o755)
	os.WriteFile(filepath.Join(guard.WorkingDir, "b.txt"), []byte("x"), 0o644)

	list := NewListDirTool(guard, zap.NewNop())
	res, err := list.Execute(context.Background(), map[string]interface{}{"path": "."})
	if err != nil || !res.Success {
		t.Fatalf("list failed: %v %+v", err, res)
	}
	want := "d sub\n- b.txt"
	if res.Output != want {
		t.Fatalf("Output = %q, want %q", res.Output, want)
	}
}

func TestSearchToolFindsMatches(t *testing.T) {
	guard := newTestGuard(t)
	os.WriteFile(filepath.Join(guard.WorkingDir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644)

	search := NewSearchTool(guard, zap.NewNop())
	res, err := search.Execute(context.Background(), map[string]interface{}{"pattern": "func Foo"})
	if err != nil || !res.Success {
		t.Fatalf("search failed: %v %+v", err, res)
	}
	if res.Output == "No matches found" {
		t.Fatal("expected a match")
	}
}

func TestBashToolBlocksDangerousCommand(t *testing.T) {
	bash := NewBashTool(nil, secpolicy.Default(), zap.NewNop())
	res, err := bash.Execute(context.Background(), map[string]interface{}{"command": "sudo rm -rf /"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected dangerous command to be blocked")
	}
}
