package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

// pngSignature is enough for http.DetectContentType to recognize image/png;
// the sniffer only inspects the fixed magic-byte prefix, not a valid image.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestAnalyzeImageDetectsPNGByMagicBytes(t *testing.T) {
	guard := newTestGuard(t)
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "pic.dat"), pngSignature, 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewAnalyzeImageTool(guard, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":   "pic.dat",
		"prompt": "what is this?",
	})
	if err != nil || !res.Success {
		t.Fatalf("analyze failed: %v %+v", err, res)
	}
	if res.Metadata["media_type"] != "image/png" {
		t.Errorf("media_type = %v, want image/png", res.Metadata["media_type"])
	}
	if res.Metadata["base64_data"] == "" {
		t.Error("expected non-empty base64 payload")
	}
}

func TestAnalyzeImageRejectsUnsupportedFormat(t *testing.T) {
	guard := newTestGuard(t)
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "doc.txt"), []byte("just plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewAnalyzeImageTool(guard, zap.NewNop())
	res, _ := tool.Execute(context.Background(), map[string]interface{}{"path": "doc.txt"})
	if res.Success {
		t.Error("expected failure for a non-image file")
	}
}

func TestAnalyzeImageRejectsOversizedFile(t *testing.T) {
	guard := newTestGuard(t)
	big := make([]byte, defaultMaxImageBytes+1)
	copy(big, pngSignature)
	if err := os.WriteFile(filepath.Join(guard.WorkingDir, "huge.png"), big, 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewAnalyzeImageTool(guard, zap.NewNop())
	res, _ := tool.Execute(context.Background(), map[string]interface{}{"path": "huge.png"})
	if res.Success {
		t.Error("expected failure for an oversized image")
	}
}

func TestAnalyzeImageRejectsMissingPath(t *testing.T) {
	guard := newTestGuard(t)
	tool := NewAnalyzeImageTool(guard, zap.NewNop())
	res, _ := tool.Execute(context.Background(), map[string]interface{}{})
	if res.Success {
		t.Error("expected failure when path is omitted")
	}
}
