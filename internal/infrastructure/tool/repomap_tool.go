package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/relayforge/coreagent/internal/domain/pathguard"
	domaintool "github.com/relayforge/coreagent/internal/domain/tool"
	"github.com/relayforge/coreagent/internal/infrastructure/codeintel"
	"go.uber.org/zap"
)

// RepoMapTool generates a PageRank-ranked structural map of a codebase,
// backed by codeintel's symbol indexer: full AST parsing for Go, regex
// extraction for Python/JS/TS/Rust.
type RepoMapTool struct {
	guard  *pathguard.Guard
	logger *zap.Logger
}

func NewRepoMapTool(guard *pathguard.Guard, logger *zap.Logger) *RepoMapTool {
	return &RepoMapTool{guard: guard, logger: logger}
}

func (t *RepoMapTool) Name() string        { return "repo_map" }
func (t *RepoMapTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *RepoMapTool) Description() string {
	return "Generate a structural map of a codebase showing the most important functions, " +
		"classes, and interfaces, ranked by how heavily referenced they are. " +
		"Use this to understand a project's architecture before editing code. " +
		"For Go files it uses full AST parsing; for Python/JS/TS/Rust it uses pattern matching."
}

func (t *RepoMapTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Root directory to scan, relative to the working directory",
			},
			"language": map[string]interface{}{
				"type":        "string",
				"description": "Filter by language: go, python, javascript, typescript, rust, all (default: all)",
			},
			"max_depth": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum directory depth to include, relative to path (default: 4, max: 8)",
			},
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob pattern to filter files by basename (e.g. '*_test.go')",
			},
		},
		"required": []string{"path"},
	}
}

const repoMapTokenBudget = 8000

func (t *RepoMapTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	rootArg, ok := args["path"].(string)
	if !ok || rootArg == "" {
		return &Result{Success: false, Error: "path is required"}, nil
	}

	absRoot, err := t.guard.ValidateRead(rootArg)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	lang := "all"
	if l, ok := args["language"].(string); ok && l != "" {
		lang = normalizeRepoMapLanguage(l)
	}

	maxDepth := 4
	if d, ok := numericArg(args["max_depth"]); ok && d > 0 {
		maxDepth = d
		if maxDepth > 8 {
			maxDepth = 8
		}
	}

	filterPattern := ""
	if p, ok := args["pattern"].(string); ok {
		filterPattern = p
	}

	t.logger.Info("Generating repo map",
		zap.String("path", rootArg),
		zap.String("language", lang),
		zap.Int("max_depth", maxDepth),
	)

	indexer := codeintel.NewIndexer(t.logger)
	if _, err := indexer.IndexDirectory(absRoot, nil); err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("index error: %v", err)}, nil
	}

	symbols := indexer.GetSymbols()
	baseDepth := strings.Count(filepath.Clean(absRoot), string(filepath.Separator))

	var files []string
	seen := make(map[string]bool)
	for _, s := range symbols {
		if lang != "all" && s.Language != lang {
			continue
		}
		depth := strings.Count(filepath.Clean(s.File), string(filepath.Separator)) - baseDepth
		if depth > maxDepth {
			continue
		}
		if filterPattern != "" {
			matched, _ := filepath.Match(filterPattern, filepath.Base(s.File))
			if !matched {
				continue
			}
		}
		if !seen[s.File] {
			seen[s.File] = true
			files = append(files, s.File)
		}
	}

	if len(files) == 0 {
		return &Result{Output: "No matching source files found.", Success: true}, nil
	}

	repoMap := codeintel.NewRepoMap(indexer, t.logger)
	output := repoMap.GenerateForFiles(files, repoMapTokenBudget)

	return &Result{
		Output:  output,
		Success: true,
		Metadata: map[string]interface{}{
			"files_scanned": len(files),
		},
	}, nil
}

func normalizeRepoMapLanguage(l string) string {
	switch strings.ToLower(l) {
	case "py":
		return "python"
	case "js":
		return "javascript"
	case "ts":
		return "typescript"
	case "rs":
		return "rust"
	default:
		return strings.ToLower(l)
	}
}
