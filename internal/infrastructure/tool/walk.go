package tool

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// walkFiles visits every regular file under root, relative to
// workingDir, skipping symlinks so it never escapes the confined tree.
func walkFiles(root string, visit func(absPath, relPath string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		return visit(path, filepath.ToSlash(rel))
	})
}

// grepContent walks absRoot, matching pattern against each line of every
// non-gitignored, UTF-8-decodable file (optionally restricted to
// filenames matching filePattern), returning "relative:line: text"
// entries sorted by path then line number.
func grepContent(absRoot, workingDir, pattern string, caseInsensitive bool, filePattern string) ([]string, error) {
	expr := pattern
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	gitignore := loadGitignorePatterns(workingDir)

	var results []string
	walkErr := walkFiles(absRoot, func(absPath, relPath string) error {
		fullRel := relPath
		if absRoot != workingDir {
			if prefix, relErr := filepath.Rel(workingDir, absRoot); relErr == nil {
				fullRel = filepath.ToSlash(filepath.Join(prefix, relPath))
			}
		}
		if isGitignored(fullRel, gitignore) {
			return nil
		}
		if filePattern != "" {
			if ok, _ := filepath.Match(filePattern, filepath.Base(absPath)); !ok {
				return nil
			}
		}

		data, err := os.ReadFile(absPath)
		if err != nil || !utf8.Valid(data) {
			return nil
		}

		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				results = append(results, fmt.Sprintf("%s:%d: %s", fullRel, lineNum, line))
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(results)
	return results, nil
}

// globFiles walks workingDir, returning the slash-separated relative
// paths of non-gitignored files whose path matches pattern. pattern
// must not contain "..".
func globFiles(workingDir, pattern string) ([]string, error) {
	if strings.Contains(pattern, "..") {
		return nil, fmt.Errorf("glob pattern must not contain '..'")
	}

	gitignore := loadGitignorePatterns(workingDir)

	var results []string
	err := walkFiles(workingDir, func(absPath, relPath string) error {
		if isGitignored(relPath, gitignore) {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, relPath)
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			// Also try matching against the basename, so a bare "*.go"
			// finds files in subdirectories the way a recursive glob would.
			if baseOK, _ := filepath.Match(pattern, filepath.Base(relPath)); baseOK {
				ok = true
			}
		}
		if ok {
			results = append(results, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}
