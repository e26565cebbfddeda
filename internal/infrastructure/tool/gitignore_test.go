package tool

import "testing"

func TestIsGitignoredDirectoryPrefix(t *testing.T) {
	patterns := []string{"node_modules/"}
	if !isGitignored("node_modules/lib/index.js", patterns) {
		t.Error("expected node_modules/lib/index.js to be ignored")
	}
	if isGitignored("src/node_modules_backup/x.js", patterns) {
		t.Error("did not expect unrelated path to be ignored")
	}
}

func TestIsGitignoredGlobPrefix(t *testing.T) {
	patterns := []string{"*.log"}
	if !isGitignored("debug.log", patterns) {
		t.Error("expected debug.log to be ignored")
	}
	if !isGitignored("logs/debug.log", patterns) {
		t.Error("expected logs/debug.log to be ignored via basename match")
	}
	if isGitignored("debug.logs", patterns) {
		t.Error("did not expect debug.logs to be ignored")
	}
}

func TestIsGitignoredExactOrPrefix(t *testing.T) {
	patterns := []string{"dist"}
	if !isGitignored("dist", patterns) {
		t.Error("expected exact match")
	}
	if !isGitignored("dist/bundle.js", patterns) {
		t.Error("expected prefix match")
	}
	if isGitignored("distfiles/readme.md", patterns) {
		t.Error("did not expect distfiles to match dist prefix without slash boundary")
	}
}
