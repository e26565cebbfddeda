package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const backupDirName = ".coreagent_backups"

// createBackup copies the file at absPath into a sibling backup
// directory before it is overwritten, named with a unix timestamp so
// repeated edits never collide.
func createBackup(workingDir, absPath string) error {
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	backupDir := filepath.Join(workingDir, backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read file for backup: %w", err)
	}

	name := fmt.Sprintf("%s.%d.bak", filepath.Base(absPath), time.Now().Unix())
	if err := os.WriteFile(filepath.Join(backupDir, name), content, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// generateDiff renders a minimal line-oriented diff: every removed line
// of oldContent prefixed "-", every added line of newContent prefixed
// "+". It is not a context diff — just enough for a tool result to show
// what changed.
func generateDiff(oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	var b []byte
	for _, line := range splitLines(oldContent) {
		b = append(b, '-')
		b = append(b, ' ')
		b = append(b, line...)
		b = append(b, '\n')
	}
	for _, line := range splitLines(newContent) {
		b = append(b, '+')
		b = append(b, ' ')
		b = append(b, line...)
		b = append(b, '\n')
	}
	return string(b)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
