package command_safety

import (
	"path/filepath"
	"strings"
)

// CommandMightBeDangerous reports whether command matches a destructive
// pattern such as rm -rf, git reset, or a force push. It is advisory: the
// approval gate uses it to explain why a command needs review, not to allow
// anything. A false return does not mean the command is safe.
func CommandMightBeDangerous(command []string) bool {
	if execMightBeDangerous(command) {
		return true
	}
	for _, sub := range ShellScriptCommands(command) {
		if execMightBeDangerous(sub) {
			return true
		}
	}
	return false
}

func execMightBeDangerous(command []string) bool {
	if len(command) == 0 {
		return false
	}

	switch command[0] {
	case "rm":
		return len(command) > 1 && (command[1] == "-f" || command[1] == "-rf")
	case "sudo":
		return execMightBeDangerous(command[1:])
	}

	if filepath.Base(command[0]) != "git" {
		return false
	}
	idx, sub, ok := gitSubcommand(command, []string{"reset", "rm", "branch", "push", "clean"})
	if !ok {
		return false
	}
	rest := command[idx+1:]
	switch sub {
	case "reset", "rm":
		return true
	case "branch":
		return hasAnyFlag(rest, 'd', "--delete") || hasAnyFlag(rest, 'D', "")
	case "push":
		return gitPushIsDangerous(rest)
	case "clean":
		return hasAnyFlag(rest, 'f', "--force")
	}
	return false
}

// gitSubcommand locates the first positional token of a git command, skipping
// global options, and reports it when it is one of the wanted subcommands.
// Scanning stops at the first positional token either way so that branch
// names or pathspecs are never mistaken for subcommands.
func gitSubcommand(command []string, wanted []string) (idx int, name string, ok bool) {
	if len(command) == 0 || filepath.Base(command[0]) != "git" {
		return 0, "", false
	}

	skipValue := false
	for i := 1; i < len(command); i++ {
		arg := command[i]
		if skipValue {
			skipValue = false
			continue
		}
		switch {
		case gitGlobalOptionTakesValue(arg):
			skipValue = true
		case gitGlobalOptionHasInlineValue(arg):
		case arg == "--" || strings.HasPrefix(arg, "-"):
		default:
			for _, w := range wanted {
				if arg == w {
					return i, arg, true
				}
			}
			return 0, "", false
		}
	}
	return 0, "", false
}

func gitGlobalOptionTakesValue(arg string) bool {
	switch arg {
	case "-C", "-c", "--config-env", "--exec-path", "--git-dir",
		"--namespace", "--super-prefix", "--work-tree":
		return true
	}
	return false
}

func gitGlobalOptionHasInlineValue(arg string) bool {
	for _, opt := range []string{
		"--config-env=", "--exec-path=", "--git-dir=",
		"--namespace=", "--super-prefix=", "--work-tree=",
	} {
		if strings.HasPrefix(arg, opt) {
			return true
		}
	}
	return (strings.HasPrefix(arg, "-C") || strings.HasPrefix(arg, "-c")) && len(arg) > 2
}

func gitPushIsDangerous(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--force", "--force-with-lease", "--force-if-includes":
			return true
		}
		if strings.HasPrefix(arg, "--force-with-lease=") ||
			strings.HasPrefix(arg, "--force-if-includes=") {
			return true
		}
		// +refspec forces, :dst deletes the remote ref.
		if len(arg) > 1 && (arg[0] == '+' || arg[0] == ':') {
			return true
		}
	}
	return hasAnyFlag(args, 'f', "") || hasAnyFlag(args, 'd', "--delete")
}

// hasAnyFlag reports whether args contains the short flag (alone or inside a
// grouped -xyz cluster) or the long form, including its --long=value shape.
func hasAnyFlag(args []string, short byte, long string) bool {
	for _, arg := range args {
		if long != "" && (arg == long || strings.HasPrefix(arg, long+"=")) {
			return true
		}
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") {
			if strings.IndexByte(arg[1:], short) >= 0 {
				return true
			}
		}
	}
	return false
}
