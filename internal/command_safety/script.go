// Package command_safety classifies shell invocations for the approval gate.
// A command is "known safe" when it is a read-only operation from a static
// allowlist, and "might be dangerous" when it matches a destructive pattern.
// Anything the package cannot parse or recognize falls through as neither,
// which the caller must treat as requiring approval.
package command_safety

import (
	"path/filepath"
	"strings"
)

// ShellScriptCommands splits a ["bash", "-lc", script] invocation into its
// individual plain commands. It returns nil unless the invocation is a
// bash/zsh/sh -c or -lc call AND the script is a sequence of word-only
// commands joined by &&, ||, ; or |. Redirections, subshells, expansions,
// substitutions, background jobs, and assignments all make the script
// non-plain, so classification falls back to the raw argv.
func ShellScriptCommands(command []string) [][]string {
	script, ok := shellInvocationScript(command)
	if !ok {
		return nil
	}
	return splitPlainCommands(script)
}

func shellInvocationScript(command []string) (string, bool) {
	if len(command) != 3 {
		return "", false
	}
	if command[1] != "-lc" && command[1] != "-c" {
		return "", false
	}
	switch filepath.Base(command[0]) {
	case "bash", "zsh", "sh":
		return command[2], true
	}
	return "", false
}

// scriptScanner is a single-pass scanner over a candidate plain script. It
// deliberately understands only the boring subset of shell syntax; any byte
// it cannot account for aborts the whole parse.
type scriptScanner struct {
	src string
	i   int
}

func splitPlainCommands(script string) [][]string {
	sc := &scriptScanner{src: script}

	var commands [][]string
	var words []string
	danglingOp := false

	flush := func() bool {
		if len(words) == 0 {
			return false
		}
		commands = append(commands, words)
		words = nil
		danglingOp = true
		return true
	}

	for sc.skipSpace(); !sc.done(); sc.skipSpace() {
		switch c := sc.peek(); {
		case c == '#':
			sc.skipLine()

		case c == '>' || c == '<' || c == '(' || c == ')' || c == '`' || c == '$':
			return nil

		case c == '&':
			if !sc.consumeIf("&&") {
				// A single & backgrounds the job.
				return nil
			}
			if !flush() {
				return nil
			}

		case c == '|':
			if !sc.consumeIf("||") && !sc.consumeIf("|") {
				return nil
			}
			if !flush() {
				return nil
			}

		case c == ';':
			sc.i++
			if !flush() {
				return nil
			}

		default:
			word, ok := sc.scanWord()
			if !ok {
				return nil
			}
			// FOO=bar at command head is an assignment, not a command.
			if len(words) == 0 && strings.Contains(word, "=") {
				return nil
			}
			words = append(words, word)
			danglingOp = false
		}
	}

	if danglingOp {
		return nil
	}
	if len(words) > 0 {
		commands = append(commands, words)
	}
	if len(commands) == 0 {
		return nil
	}
	return commands
}

func (sc *scriptScanner) done() bool { return sc.i >= len(sc.src) }

func (sc *scriptScanner) peek() byte { return sc.src[sc.i] }

func (sc *scriptScanner) skipSpace() {
	for !sc.done() {
		switch sc.src[sc.i] {
		case ' ', '\t', '\n', '\r':
			sc.i++
		default:
			return
		}
	}
}

func (sc *scriptScanner) skipLine() {
	for !sc.done() && sc.src[sc.i] != '\n' {
		sc.i++
	}
}

func (sc *scriptScanner) consumeIf(tok string) bool {
	if strings.HasPrefix(sc.src[sc.i:], tok) {
		sc.i += len(tok)
		return true
	}
	return false
}

// scanWord reads one word, which may interleave bare text with single- and
// double-quoted segments, e.g. -g"*.py" or "/usr"'/'bin. Double quotes must
// not contain $ or ` since those expand.
func (sc *scriptScanner) scanWord() (string, bool) {
	var b strings.Builder
	started := false

scan:
	for !sc.done() {
		switch c := sc.peek(); c {
		case ' ', '\t', '\n', '\r', '&', '|', ';', '#':
			break scan

		case '>', '<', '(', ')', '`', '$':
			return "", false

		case '=':
			if !started {
				return "", false
			}
			b.WriteByte(c)
			sc.i++

		case '\'':
			seg, ok := sc.scanQuoted('\'', false)
			if !ok {
				return "", false
			}
			b.WriteString(seg)
			started = true

		case '"':
			seg, ok := sc.scanQuoted('"', true)
			if !ok {
				return "", false
			}
			b.WriteString(seg)
			started = true

		default:
			b.WriteByte(c)
			sc.i++
			started = true
		}
	}

	if !started {
		return "", false
	}
	return b.String(), true
}

func (sc *scriptScanner) scanQuoted(quote byte, rejectExpansion bool) (string, bool) {
	sc.i++ // opening quote
	var b strings.Builder
	for !sc.done() {
		c := sc.src[sc.i]
		if c == quote {
			sc.i++
			return b.String(), true
		}
		if rejectExpansion && (c == '$' || c == '`') {
			return "", false
		}
		b.WriteByte(c)
		sc.i++
	}
	// Unterminated quote.
	return "", false
}
