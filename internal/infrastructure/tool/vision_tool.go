package tool

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/relayforge/coreagent/internal/domain/pathguard"
	domaintool "github.com/relayforge/coreagent/internal/domain/tool"
	"go.uber.org/zap"
)

// defaultMaxImageBytes matches the vision API's own upload limit.
const defaultMaxImageBytes = 20 * 1024 * 1024

// AnalyzeImageTool loads an image from the workspace and prepares it for
// a vision-capable model turn: content type is sniffed from the file's
// magic bytes rather than trusted from the extension, and the encoded
// payload plus an optional guiding prompt are returned for the caller to
// fold into the next multimodal message.
type AnalyzeImageTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewAnalyzeImageTool(guard *pathguard.Guard, logger *zap.Logger) *AnalyzeImageTool {
	return &AnalyzeImageTool{guard: guard, logger: logger}
}

func (t *AnalyzeImageTool) Name() string          { return "analyze_image" }
func (t *AnalyzeImageTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *AnalyzeImageTool) Description() string {
	return `Load an image file and prepare it for visual analysis. Supports PNG, JPEG,
GIF, and WebP. The file's actual format is detected from its content, not its
extension. Images larger than 20MB are rejected.`
}

func (t *AnalyzeImageTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the image file, relative to the working directory",
			},
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "Optional question or instruction to guide the analysis",
			},
		},
		"required": []string{"path"},
	}
}

var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

func (t *AnalyzeImageTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := args["path"].(string)
	prompt, _ := args["prompt"].(string)
	if path == "" {
		return &domaintool.Result{Success: false, Error: "path is required"}, nil
	}

	absPath, err := t.guard.ValidateRead(path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return &domaintool.Result{Success: false, Error: fmt.Sprintf("failed to load image: %v", err)}, nil
	}
	if info.Size() > defaultMaxImageBytes {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("image exceeds maximum size of %d bytes", defaultMaxImageBytes),
		}, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return &domaintool.Result{Success: false, Error: fmt.Sprintf("failed to load image: %v", err)}, nil
	}

	mediaType := http.DetectContentType(data)
	if idx := indexOfSemicolon(mediaType); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	if !supportedImageTypes[mediaType] {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("unsupported image format: %s", mediaType),
		}, nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	t.logger.Info("Loaded image for analysis",
		zap.String("path", path),
		zap.String("media_type", mediaType),
		zap.Int("bytes", len(data)),
	)

	output := fmt.Sprintf("Loaded image %s (%s, %d bytes)", path, mediaType, len(data))
	if prompt != "" {
		output += fmt.Sprintf("\nAnalysis prompt: %s", prompt)
	}

	return &domaintool.Result{
		Output:  output,
		Success: true,
		Metadata: map[string]interface{}{
			"media_type":  mediaType,
			"base64_data": encoded,
			"prompt":      prompt,
			"size_bytes":  len(data),
		},
	}, nil
}

func indexOfSemicolon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			return i
		}
	}
	return -1
}
