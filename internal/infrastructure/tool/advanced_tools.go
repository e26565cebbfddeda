package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/relayforge/coreagent/internal/domain/netguard"
	"github.com/relayforge/coreagent/internal/domain/pathguard"
	"github.com/relayforge/coreagent/internal/domain/secpolicy"
	domaintool "github.com/relayforge/coreagent/internal/domain/tool"
	"github.com/relayforge/coreagent/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// EditFileTool replaces a single, unique occurrence of old_text with
// new_text. Unlike a fuzzy search-and-replace, it refuses to guess: zero
// or multiple matches is an error naming the exact count, so the caller
// can add enough surrounding context to make the match unique.
type EditFileTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewEditFileTool(guard *pathguard.Guard, logger *zap.Logger) *EditFileTool {
	return &EditFileTool{guard: guard, logger: logger}
}

func (t *EditFileTool) Name() string        { return "edit" }
func (t *EditFileTool) Kind() domaintool.Kind { return domaintool.KindEdit }
func (t *EditFileTool) Description() string {
	return `Make a targeted edit to a file by replacing one exact occurrence of old_text with new_text.
old_text must match exactly, including whitespace, and must be unique within the file — add
surrounding lines for context if the same text occurs more than once.`
}

func (t *EditFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "The exact text to find and replace. Must be unique in the file.",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "The replacement text",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := args["path"].(string)
	oldText, _ := args["old_text"].(string)
	newText, _ := args["new_text"].(string)

	if path == "" || oldText == "" {
		return &domaintool.Result{Success: false, Error: "path and old_text are required"}, nil
	}

	absPath, err := t.guard.ValidateWrite(path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	originalBytes, err := os.ReadFile(absPath)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}
	original := string(originalBytes)

	count := strings.Count(original, oldText)
	if count == 0 {
		return &domaintool.Result{Success: false, Error: "old_text not found in file"}, nil
	}
	if count > 1 {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("old_text found %d times in file; it must be unique. Add more surrounding context.", count),
		}, nil
	}

	if err := createBackup(t.guard.WorkingDir, absPath); err != nil {
		t.logger.Warn("Failed to create backup before edit", zap.String("path", path), zap.Error(err))
	}

	modified := strings.Replace(original, oldText, newText, 1)
	if err := os.WriteFile(absPath, []byte(modified), 0o644); err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	diff := generateDiff(oldText, newText)
	return &domaintool.Result{
		Output:  fmt.Sprintf("Edited %s\n\n%s", path, diff),
		Success: true,
		Metadata: map[string]interface{}{
			"path":        path,
			"chars_added": len(newText) - len(oldText),
		},
	}, nil
}

// GlobTool finds files under the workspace matching a glob pattern,
// honoring .gitignore and never following symlinks.
type GlobTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewGlobTool(guard *pathguard.Guard, logger *zap.Logger) *GlobTool {
	return &GlobTool{guard: guard, logger: logger}
}

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Kind() domaintool.Kind { return domaintool.KindSearch }
func (t *GlobTool) Description() string {
	return `Find files matching a glob pattern within the workspace. Use this to discover files by name or extension.
Examples: "*.go", "internal/**/*.go", "test_*.py". Respects .gitignore and does not follow symlinks.`
}

func (t *GlobTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern to match files against",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return &domaintool.Result{Success: false, Error: "pattern is required"}, nil
	}

	matches, err := globFiles(t.guard.WorkingDir, pattern)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	return &domaintool.Result{
		Output:  strings.Join(matches, "\n"),
		Success: true,
		Metadata: map[string]interface{}{
			"pattern": pattern,
			"count":   len(matches),
		},
	}, nil
}

// ApplyPatchTool applies unified diff patches to files.
type ApplyPatchTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewApplyPatchTool(sandbox *sandbox.ProcessSandbox, logger *zap.Logger) *ApplyPatchTool {
	return &ApplyPatchTool{sandbox: sandbox, logger: logger}
}

func (t *ApplyPatchTool) Name() string        { return "apply_patch" }
func (t *ApplyPatchTool) Kind() domaintool.Kind { return domaintool.KindEdit }
func (t *ApplyPatchTool) Description() string {
	return `Apply a unified diff patch to one or more files. Use standard unified diff format:
--- a/path/to/file
+++ b/path/to/file
@@ -line,count +line,count @@
 context line
-removed line
+added line`
}

func (t *ApplyPatchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"patch": map[string]interface{}{
				"type":        "string",
				"description": "The unified diff patch to apply",
			},
		},
		"required": []string{"patch"},
	}
}

func (t *ApplyPatchTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	patch, _ := args["patch"].(string)
	if patch == "" {
		return &domaintool.Result{Success: false, Error: "patch is required"}, nil
	}

	cmd := fmt.Sprintf("echo '%s' | patch -p1 --no-backup-if-mismatch 2>&1",
		strings.ReplaceAll(patch, "'", "'\\''"))

	result, err := t.sandbox.ExecuteShell(ctx, cmd)
	if err != nil {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("Patch failed: %s", result.Stderr),
		}, nil
	}

	return &domaintool.Result{
		Output:  result.Stdout,
		Success: result.ExitCode == 0,
	}, nil
}

// WebFetchTool fetches a URL and returns its content as readable text,
// converting HTML to a lightly formatted markdown-like rendering. It
// applies SSRF pre-flight checks (scheme, localhost, private IP) before
// issuing the request and enforces a content-length ceiling both before
// and after reading the body.
type WebFetchTool struct {
	policy *secpolicy.Policy
	client *http.Client
	logger *zap.Logger
}

const webFetchUserAgent = "coreagent-fetch/1.0"

func NewWebFetchTool(policy *secpolicy.Policy, logger *zap.Logger) *WebFetchTool {
	if policy == nil {
		policy = secpolicy.Default()
	}
	return &WebFetchTool{
		policy: policy,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		logger: logger,
	}
}

func (t *WebFetchTool) Name() string        { return "web_fetch" }
func (t *WebFetchTool) Kind() domaintool.Kind { return domaintool.KindFetch }
func (t *WebFetchTool) Description() string {
	return "Fetch contents from a URL. Returns the text content of the page, with HTML converted to readable markdown-like text. Rejects localhost and private-network addresses."
}

func (t *WebFetchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL to fetch",
			},
		},
		"required": []string{"url"},
	}
}

const defaultMaxFetchBytes = 1_000_000

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return &domaintool.Result{Success: false, Error: "url is required"}, nil
	}

	u, err := netguard.ValidateURL(rawURL, netguard.Default())
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("User-Agent", webFetchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return &domaintool.Result{Success: false, Error: fmt.Sprintf("failed to fetch URL: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.ContentLength > defaultMaxFetchBytes {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("response too large: %d bytes exceeds limit of %d bytes", resp.ContentLength, defaultMaxFetchBytes),
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxFetchBytes+1))
	if err != nil {
		return &domaintool.Result{Success: false, Error: fmt.Sprintf("failed to read response body: %v", err)}, nil
	}
	if len(body) > defaultMaxFetchBytes {
		return &domaintool.Result{
			Success: false,
			Error:   fmt.Sprintf("response body exceeds limit of %d bytes", defaultMaxFetchBytes),
		}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	content := string(body)
	if netguard.IsHTMLContentType(contentType) {
		content = htmlToMarkdown(content)
	}

	displayType := contentType
	if idx := strings.Index(displayType, ";"); idx >= 0 {
		displayType = displayType[:idx]
	}

	output := fmt.Sprintf("Fetched %s (%s, status %d)\n\n%s", u.String(), displayType, resp.StatusCode, content)

	return &domaintool.Result{
		Output:  output,
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Metadata: map[string]interface{}{
			"url":          u.String(),
			"status":       resp.StatusCode,
			"content_type": displayType,
			"chars":        len(content),
		},
	}, nil
}
