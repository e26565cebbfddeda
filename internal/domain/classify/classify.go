// Copyright 2026 CoreAgent Authors. All rights reserved.

// Package classify implements the parallel-execution safety classifier:
// a pure, side-effect-free function that maps a tool call to one of
// ReadOnly, Mutating, or Unknown so the scheduler knows which calls may
// run concurrently.
package classify

import "strings"

// SafetyClass is the parallel-execution safety of a tool invocation.
type SafetyClass int

const (
	// ReadOnly calls have no observable side effects and may be run
	// concurrently with other ReadOnly calls.
	ReadOnly SafetyClass = iota
	// Mutating calls change state and must never run concurrently with
	// any other call.
	Mutating
	// Unknown calls have unverifiable side effects and are treated as
	// Mutating for scheduling purposes (pessimistic default).
	Unknown
)

func (c SafetyClass) String() string {
	switch c {
	case ReadOnly:
		return "read_only"
	case Mutating:
		return "mutating"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Parallelizable reports whether calls of this class may be grouped into
// a concurrent batch. Only ReadOnly returns true.
func (c SafetyClass) Parallelizable() bool {
	return c == ReadOnly
}

const mcpNamespacePrefix = "mcp__"

// ByName classifies a tool call using only its name, per the static table:
//
//	ReadOnly: read_file, glob, grep, list_files, web_fetch, web_search
//	Mutating: write_file, edit
//	Unknown:  bash, any mcp__-prefixed name, anything unrecognized
func ByName(toolName string) SafetyClass {
	switch toolName {
	case "read_file", "glob", "grep", "list_files", "web_fetch", "web_search":
		return ReadOnly
	case "write_file", "edit":
		return Mutating
	case "bash":
		return Unknown
	default:
		if strings.HasPrefix(toolName, mcpNamespacePrefix) {
			return Unknown
		}
		return Unknown
	}
}

// Tool classifies a call given its name and, for "bash", the command
// string extracted from its input (under the "command" key). Callers for
// non-bash tools should pass an empty command; it is ignored.
func Tool(toolName, bashCommand string) SafetyClass {
	if toolName == "bash" {
		return BashCommand(bashCommand)
	}
	return ByName(toolName)
}

// BashCommand classifies a shell command string in isolation. It returns
// ReadOnly only when every one of the following holds:
//
//  1. The command contains none of the shell operators that could chain
//     it to a mutating or unpredictable command (pipes, redirects,
//     command substitution, `;`, `&&`, `||`, trailing background `&`).
//  2. Its first whitespace-delimited token is in the static safe-command
//     table.
//  3. If that token has tool-specific mutating flags (currently: `sed -i`
//     / `sed --in-place`), it is excluded.
//  4. If that token is git, cargo, or npm, the first non-flag argument is
//     in that tool's safe-subcommand set.
//
// Any deviation returns Unknown.
func BashCommand(command string) SafetyClass {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Unknown
	}

	if containsShellOperators(trimmed) {
		return Unknown
	}

	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return Unknown
	}
	firstWord := fields[0]

	if !safeBashCommands[firstWord] {
		return Unknown
	}

	if hasMutatingFlags(trimmed, firstWord) {
		return Unknown
	}

	switch firstWord {
	case "git":
		return classifySubcommand(fields, gitFlagsWithArgs, safeGitSubcommands)
	case "cargo":
		return classifySubcommand(fields, nil, safeCargoSubcommands)
	case "npm":
		return classifySubcommand(fields, nil, safeNpmSubcommands)
	}

	return ReadOnly
}

// containsShellOperators reports whether command contains an operator
// that could chain a read-only command to one with side effects.
func containsShellOperators(command string) bool {
	if strings.Contains(command, ">") || strings.Contains(command, "|") {
		return true
	}

	if strings.Contains(command, " & ") || strings.HasSuffix(command, " &") || strings.HasSuffix(command, "&") {
		if !strings.HasSuffix(command, "&&") {
			return true
		}
	}

	if strings.Contains(command, "&&") || strings.Contains(command, "||") {
		return true
	}

	if strings.Contains(command, "$(") || strings.Contains(command, "`") {
		return true
	}

	if strings.Contains(command, ";") {
		return true
	}

	return false
}

// hasMutatingFlags reports whether command invokes baseCommand with a
// flag known to turn an otherwise-safe command into a mutating one.
func hasMutatingFlags(command, baseCommand string) bool {
	switch baseCommand {
	case "sed":
		return strings.Contains(command, " -i") || strings.Contains(command, " --in-place")
	default:
		return false
	}
}

// classifySubcommand finds the first non-flag argument after fields[0],
// skipping any flag in flagsWithArgs (and that flag's value), and checks
// it against the safe-subcommand set.
func classifySubcommand(fields []string, flagsWithArgs map[string]bool, safeSubcommands map[string]bool) SafetyClass {
	if len(fields) < 2 {
		return Unknown
	}

	skipNext := false
	subcommand := ""
	for _, part := range fields[1:] {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(part, "-") {
			if flagsWithArgs[part] {
				skipNext = true
			}
			continue
		}
		subcommand = part
		break
	}

	if safeSubcommands[subcommand] {
		return ReadOnly
	}
	return Unknown
}
