package tool

import (
	"os"
	"path/filepath"
	"strings"
)

// loadGitignorePatterns reads .gitignore at the root of workingDir, if
// present, returning its non-blank, non-comment lines verbatim.
func loadGitignorePatterns(workingDir string) []string {
	data, err := os.ReadFile(filepath.Join(workingDir, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, trimmed)
	}
	return patterns
}

// isGitignored reports whether relPath (slash-separated, relative to the
// working directory) matches any of patterns. Three pattern forms are
// supported, matching the common subset of gitignore syntax:
//   - a trailing "/" marks a directory prefix
//   - a leading "*" is matched as a glob against both the full path and
//     the bare filename
//   - anything else matches exactly or as a path-prefix
func isGitignored(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		switch {
		case strings.HasSuffix(p, "/"):
			prefix := strings.TrimSuffix(p, "/")
			if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
				return true
			}
		case strings.HasPrefix(p, "*"):
			if ok, _ := filepath.Match(p, relPath); ok {
				return true
			}
			if ok, _ := filepath.Match(p, base); ok {
				return true
			}
		default:
			if relPath == p || strings.HasPrefix(relPath, p+"/") {
				return true
			}
		}
	}
	return false
}
