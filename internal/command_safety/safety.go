package command_safety

import (
	"path/filepath"
	"strings"
)

// readOnlyCommands are safe to run with any arguments because they cannot
// write outside their own stdout. Commands that are only conditionally safe
// (base64, find, rg, git, sed) get a guard in execIsKnownSafe instead.
var readOnlyCommands = map[string]bool{
	"cat": true, "cd": true, "cut": true, "echo": true, "expr": true,
	"false": true, "grep": true, "head": true, "id": true, "ls": true,
	"nl": true, "numfmt": true, "paste": true, "pwd": true, "rev": true,
	"seq": true, "stat": true, "tac": true, "tail": true, "tr": true,
	"true": true, "uname": true, "uniq": true, "wc": true, "which": true,
	"whoami": true,
}

// IsKnownSafeCommand reports whether command is a read-only invocation that
// may skip user approval under the trusted-commands policy. It accepts
// either a direct argv or a bash/zsh/sh -lc script whose every sub-command
// classifies as safe. Unknown commands are not safe.
func IsKnownSafeCommand(command []string) bool {
	normalized := make([]string, len(command))
	for i, s := range command {
		if s == "zsh" {
			normalized[i] = "bash"
		} else {
			normalized[i] = s
		}
	}

	if execIsKnownSafe(normalized) {
		return true
	}

	subCommands := ShellScriptCommands(normalized)
	if len(subCommands) == 0 {
		return false
	}
	for _, sub := range subCommands {
		if !execIsKnownSafe(sub) {
			return false
		}
	}
	return true
}

func execIsKnownSafe(command []string) bool {
	if len(command) == 0 {
		return false
	}

	base := filepath.Base(command[0])
	if readOnlyCommands[base] {
		return true
	}

	switch base {
	case "base64":
		return base64IsSafe(command[1:])
	case "find":
		return findIsSafe(command[1:])
	case "rg":
		return rgIsSafe(command[1:])
	case "git":
		return gitIsSafe(command)
	case "sed":
		return sedIsSafe(command)
	}
	return false
}

// base64 is safe unless it is told to write a file.
func base64IsSafe(args []string) bool {
	for _, arg := range args {
		if arg == "--output" || strings.HasPrefix(arg, "--output=") {
			return false
		}
		if strings.HasPrefix(arg, "-o") {
			return false
		}
	}
	return true
}

// find is safe unless it executes or deletes.
func findIsSafe(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-exec", "-execdir", "-ok", "-okdir", "-delete",
			"-fls", "-fprint", "-fprint0", "-fprintf":
			return false
		}
	}
	return true
}

// rg is safe unless it can spawn a helper binary or decompress archives.
func rgIsSafe(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--search-zip", "-z", "--pre", "--hostname-bin":
			return false
		}
		if strings.HasPrefix(arg, "--pre=") || strings.HasPrefix(arg, "--hostname-bin=") {
			return false
		}
	}
	return true
}

func gitIsSafe(command []string) bool {
	// -c key=value and --config-env can rewire pagers and diff drivers to
	// arbitrary binaries, so any config override disqualifies the command.
	for _, arg := range command {
		if arg == "-c" || arg == "--config-env" ||
			strings.HasPrefix(arg, "--config-env=") ||
			(strings.HasPrefix(arg, "-c") && len(arg) > 2) {
			return false
		}
	}

	idx, sub, ok := gitSubcommand(command, []string{"status", "log", "diff", "show", "branch"})
	if !ok {
		return false
	}
	args := command[idx+1:]
	if !gitArgsAreReadOnly(args) {
		return false
	}
	if sub == "branch" {
		return gitBranchIsListOnly(args)
	}
	return true
}

func gitArgsAreReadOnly(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--output", "--ext-diff", "--textconv", "--exec", "--paginate":
			return false
		}
		if strings.HasPrefix(arg, "--output=") || strings.HasPrefix(arg, "--exec=") {
			return false
		}
	}
	return true
}

// git branch only lists when every argument is one of the listing flags.
// Positional arguments create or rename branches.
func gitBranchIsListOnly(args []string) bool {
	if len(args) == 0 {
		return true
	}
	listed := false
	for _, arg := range args {
		switch arg {
		case "--list", "-l", "--show-current", "-a", "--all",
			"-r", "--remotes", "-v", "-vv", "--verbose":
			listed = true
		default:
			if !strings.HasPrefix(arg, "--format=") {
				return false
			}
			listed = true
		}
	}
	return listed
}

// sed is only safe in the exact line-printing form `sed -n {N|M,N}p [file]`.
func sedIsSafe(command []string) bool {
	if len(command) < 3 || len(command) > 4 {
		return false
	}
	if command[1] != "-n" {
		return false
	}
	arg, ok := strings.CutSuffix(command[2], "p")
	if !ok {
		return false
	}
	lo, hi, ranged := strings.Cut(arg, ",")
	if ranged {
		return isDigits(lo) && isDigits(hi)
	}
	return isDigits(lo)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
