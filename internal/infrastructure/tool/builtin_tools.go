package tool

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/relayforge/coreagent/internal/domain/pathguard"
	"github.com/relayforge/coreagent/internal/domain/secpolicy"
	domaintool "github.com/relayforge/coreagent/internal/domain/tool"
	"github.com/relayforge/coreagent/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// Result 类型别名
type Result = domaintool.Result

// Kind 类型别名
type Kind = domaintool.Kind

// BashTool executes shell commands through the process sandbox. Unlike
// the file tools it deliberately keeps shelling out: the sandbox's job
// is process-group isolation and timeouts, not filesystem confinement,
// and a shell is the only sane way to run an arbitrary pipeline.
type BashTool struct {
	sandbox *sandbox.ProcessSandbox
	policy  *secpolicy.Policy
	logger  *zap.Logger
}

// NewBashTool 创建 Bash 工具
func NewBashTool(sandbox *sandbox.ProcessSandbox, policy *secpolicy.Policy, logger *zap.Logger) *BashTool {
	if policy == nil {
		policy = secpolicy.Default()
	}
	return &BashTool{sandbox: sandbox, policy: policy, logger: logger}
}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Kind() domaintool.Kind { return domaintool.KindExecute }

func (t *BashTool) Description() string {
	return `Execute bash commands in a sandboxed environment.
IMPORTANT constraints:
- Commands have a timeout. Exit code 124 means TIMEOUT (command killed).
- For SSH/network commands: ALWAYS use 'timeout 10' and '-o ConnectTimeout=5'.
- If a command fails twice with the same error, STOP retrying and report the issue to the user.
- Avoid interactive or long-running commands (e.g. top, watch, tail -f).
- Prefer simple, targeted commands over complex pipelines.
- Commands matching the security policy's dangerous-pattern list are rejected before they run.`
}

func (t *BashTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The bash command to execute",
			},
			"work_dir": map[string]interface{}{
				"type":        "string",
				"description": "Optional working directory for the command",
			},
		},
		"required": []string{"command"},
	}
}

func (t *BashTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return &Result{Success: false, Error: "command is required"}, fmt.Errorf("command is required")
	}

	if verdict := t.policy.CheckCommand(command); verdict.Blocked {
		t.logger.Warn("Blocked dangerous command",
			zap.String("command", command),
			zap.String("pattern", verdict.Pattern),
		)
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("command blocked by security policy (matched %q)", verdict.Pattern),
		}, nil
	}

	if workDir, ok := args["work_dir"].(string); ok && workDir != "" {
		if err := t.sandbox.SetWorkDir(workDir); err != nil {
			return &Result{Success: false, Error: err.Error()}, err
		}
	}

	t.logger.Info("Executing bash command", zap.String("command", command))

	result, err := t.sandbox.ExecuteShell(ctx, command)
	if err != nil {
		res := &Result{Success: false, Error: err.Error()}
		if result != nil {
			res.Output = result.Stderr
			res.Metadata = map[string]interface{}{
				"exit_code": result.ExitCode,
				"duration":  result.Duration.String(),
				"killed":    result.Killed,
			}
		}
		return res, nil
	}

	output := result.Stdout
	if result.Stderr != "" {
		output += "\n[stderr]\n" + result.Stderr
	}

	var display string
	if len(output) > 2000 {
		display = buildTruncatedDisplay(command, output, result.ExitCode, result.Duration.String())
	}

	return &Result{
		Output:  output,
		Display: display,
		Success: result.ExitCode == 0,
		Metadata: map[string]interface{}{
			"exit_code": result.ExitCode,
			"duration":  result.Duration.String(),
		},
	}, nil
}

func buildTruncatedDisplay(command, output string, exitCode int, duration string) string {
	lines := strings.Split(output, "\n")
	lineCount := len(lines)
	charCount := len(output)

	headLines := 5
	tailLines := 5
	if headLines+tailLines >= lineCount {
		headLines = lineCount / 2
		tailLines = lineCount - headLines
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 `%s`\n", truncateCmd(command, 60)))
	if exitCode == 0 {
		sb.WriteString(fmt.Sprintf("✅ exit=0 | %d lines | %d chars | %s\n", lineCount, charCount, duration))
	} else {
		sb.WriteString(fmt.Sprintf("❌ exit=%d | %d lines | %s\n", exitCode, lineCount, duration))
	}
	sb.WriteString("```\n")
	for i := 0; i < headLines && i < lineCount; i++ {
		sb.WriteString(truncateLine(lines[i], 120) + "\n")
	}
	if headLines+tailLines < lineCount {
		sb.WriteString(fmt.Sprintf("... (%d lines omitted) ...\n", lineCount-headLines-tailLines))
	}
	for i := lineCount - tailLines; i < lineCount; i++ {
		if i >= headLines {
			sb.WriteString(truncateLine(lines[i], 120) + "\n")
		}
	}
	sb.WriteString("```")
	return sb.String()
}

func truncateCmd(cmd string, maxLen int) string {
	cmd = strings.TrimSpace(cmd)
	if len(cmd) <= maxLen {
		return cmd
	}
	return cmd[:maxLen-3] + "..."
}

func truncateLine(line string, maxLen int) string {
	if len(line) <= maxLen {
		return line
	}
	return line[:maxLen-3] + "..."
}

// ReadFileTool reads a file natively, confined to the workspace by a
// pathguard.Guard. Optional start_line/end_line arguments slice the
// already-read content instead of shelling out to sed/tail.
type ReadFileTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewReadFileTool(guard *pathguard.Guard, logger *zap.Logger) *ReadFileTool {
	return &ReadFileTool{guard: guard, logger: logger}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Supports text files. Use this to examine source code, configuration files, and other text content."
}

func (t *ReadFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The path to the file to read",
			},
			"start_line": map[string]interface{}{
				"type":        "integer",
				"description": "Optional starting line number (1-indexed)",
			},
			"end_line": map[string]interface{}{
				"type":        "integer",
				"description": "Optional ending line number (1-indexed)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return &Result{Success: false, Error: "path is required"}, fmt.Errorf("path is required")
	}

	absPath, err := t.guard.ValidateRead(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	output := string(content)
	startLine, hasStart := numericArg(args["start_line"])
	endLine, hasEnd := numericArg(args["end_line"])
	if hasStart || hasEnd {
		lines := splitLines(output)
		start := 1
		if hasStart {
			start = startLine
		}
		end := len(lines)
		if hasEnd {
			end = endLine
		}
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			output = ""
		} else {
			output = strings.Join(lines[start-1:end], "\n")
		}
	}

	return &Result{
		Output:  output,
		Success: true,
		Metadata: map[string]interface{}{
			"path": path,
		},
	}, nil
}

func numericArg(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

// WriteFileTool writes a file natively, confined to the workspace, with
// a backup of any pre-existing content and a file-size ceiling from the
// security policy.
type WriteFileTool struct {
	guard  *pathguard.Guard
	policy *secpolicy.Policy
	logger *zap.Logger
}

func NewWriteFileTool(guard *pathguard.Guard, policy *secpolicy.Policy, logger *zap.Logger) *WriteFileTool {
	if policy == nil {
		policy = secpolicy.Default()
	}
	return &WriteFileTool{guard: guard, policy: policy, logger: logger}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Kind() domaintool.Kind { return domaintool.KindEdit }

func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, or overwrites it if it does. A backup of any existing content is kept before overwriting."
}

func (t *WriteFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return &Result{Success: false, Error: "path is required"}, fmt.Errorf("path is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return &Result{Success: false, Error: "content is required"}, fmt.Errorf("content is required")
	}

	if int64(len(content)) > t.policy.MaxFileSize {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("content size %d bytes exceeds maximum of %d bytes", len(content), t.policy.MaxFileSize),
		}, nil
	}

	absPath, err := t.guard.ValidateWrite(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	if err := createBackup(t.guard.WorkingDir, absPath); err != nil {
		t.logger.Warn("Failed to create backup before write", zap.String("path", path), zap.Error(err))
	}

	if err := os.MkdirAll(parentDir(absPath), 0o755); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	return &Result{
		Output:  fmt.Sprintf("Successfully wrote to %s", path),
		Success: true,
		Metadata: map[string]interface{}{
			"path":          path,
			"bytes_written": len(content),
		},
	}, nil
}

func parentDir(absPath string) string {
	idx := strings.LastIndex(absPath, string(os.PathSeparator))
	if idx < 0 {
		return "."
	}
	return absPath[:idx]
}

// ListDirTool lists a directory's entries natively.
type ListDirTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewListDirTool(guard *pathguard.Guard, logger *zap.Logger) *ListDirTool {
	return &ListDirTool{guard: guard, logger: logger}
}

func (t *ListDirTool) Name() string { return "list_files" }

func (t *ListDirTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *ListDirTool) Description() string {
	return "List contents of a directory. Shows files and subdirectories, one per line."
}

func (t *ListDirTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The directory path to list",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		path = "."
	}

	absPath, err := t.guard.ValidateRead(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	byName := make(map[string]os.DirEntry, len(entries))
	for _, e := range entries {
		byName[e.Name()] = e
	}

	var lines []string
	for _, name := range names {
		if byName[name].IsDir() {
			lines = append(lines, "d "+name)
		} else {
			lines = append(lines, "- "+name)
		}
	}

	return &Result{
		Output:  strings.Join(lines, "\n"),
		Success: true,
		Metadata: map[string]interface{}{
			"path":  path,
			"count": len(lines),
		},
	}, nil
}

// SearchTool greps file contents using Go's regexp engine.
type SearchTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewSearchTool(guard *pathguard.Guard, logger *zap.Logger) *SearchTool {
	return &SearchTool{guard: guard, logger: logger}
}

func (t *SearchTool) Name() string { return "grep" }

func (t *SearchTool) Kind() domaintool.Kind { return domaintool.KindSearch }

func (t *SearchTool) Description() string {
	return "Search file contents for a regular expression, across the working directory or a subpath."
}

func (t *SearchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "The regular expression to search for",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File or directory to search in (default: working directory)",
			},
			"case_insensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Match case-insensitively",
			},
			"file_pattern": map[string]interface{}{
				"type":        "string",
				"description": "Optional glob restricting which filenames are searched",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return &Result{Success: false, Error: "pattern is required"}, fmt.Errorf("pattern is required")
	}
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	caseInsensitive, _ := args["case_insensitive"].(bool)
	filePattern, _ := args["file_pattern"].(string)

	absRoot, err := t.guard.ValidateRead(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	matches, err := grepContent(absRoot, t.guard.WorkingDir, pattern, caseInsensitive, filePattern)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	output := "No matches found"
	if len(matches) > 0 {
		output = strings.Join(matches, "\n")
	}

	return &Result{
		Output:  output,
		Success: true,
		Metadata: map[string]interface{}{
			"pattern": pattern,
			"path":    path,
			"matches": len(matches),
		},
	}, nil
}
