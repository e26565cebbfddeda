// Copyright 2026 CoreAgent Authors. All rights reserved.

package classify

// safeBashCommands is the static table of command names that, absent any
// shell operators or mutating flags, never have observable side effects.
var safeBashCommands = buildSet(
	// File inspection
	"cat", "head", "tail", "wc", "file", "stat", "md5sum", "sha256sum", "xxd", "hexdump", "strings",
	// Directory listing
	"ls", "find", "tree", "du", "df", "exa", "lsd",
	// Text search
	"grep", "rg", "ag", "ack", "sed", "awk",
	// System info
	"pwd", "whoami", "hostname", "uname", "date", "uptime", "id",
	// Environment
	"env", "printenv", "echo", "printf", "which", "type", "whereis", "command",
	// Version/help
	"man", "help", "info",
	// Path manipulation
	"basename", "dirname", "realpath", "readlink",
	// Text processing (read-only)
	"sort", "uniq", "cut", "tr", "tee", "diff", "cmp", "comm", "join", "paste", "fold", "fmt", "nl", "rev", "tac", "expand", "unexpand",
	// JSON/data processing
	"jq", "yq", "xq",
	// Tools with subcommand-gated safety
	"git", "cargo", "npm",
	// Other read operations
	"test", "[", "true", "false",
)

var safeGitSubcommands = buildSet(
	"status", "log", "diff", "show", "branch", "tag", "describe",
	"rev-parse", "rev-list", "ls-files", "ls-tree", "cat-file", "blame",
	"shortlog", "config", "remote", "stash", "reflog", "name-rev", "for-each-ref",
)

var safeCargoSubcommands = buildSet(
	"check", "clippy", "test", "doc", "tree", "metadata", "pkgid",
	"verify-project", "locate-project", "read-manifest",
)

var safeNpmSubcommands = buildSet(
	"ls", "list", "view", "info", "show", "outdated", "search", "audit",
	"doctor", "explain", "fund", "pack", "query",
)

// gitFlagsWithArgs are git global flags that consume the following token
// as their value, so it must not be mistaken for the subcommand.
var gitFlagsWithArgs = buildSet(
	"-C", "-c", "--git-dir", "--work-tree", "--namespace", "-p", "--paginate",
)

func buildSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
