package execpolicy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// ParseError reports a malformed rules file. The activity loader treats it
// as fatal rather than retryable, since retrying cannot fix the file.
type ParseError struct {
	File    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParsePolicy executes a Starlark rules source and collects every rule()
// call into a Policy. The rule builtin accepts:
//
//	rule(program="git", decision="forbid", flags=["push"], reason="no pushes")
//
// decision defaults to allow, flags to none.
func ParsePolicy(filename, source string) (*Policy, error) {
	policy := NewPolicy()

	ruleBuiltin := starlark.NewBuiltin("rule", func(
		thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		var (
			program     string
			decisionStr string
			flagsList   *starlark.List
			reason      string
		)
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"program", &program,
			"decision?", &decisionStr,
			"flags?", &flagsList,
			"reason?", &reason,
		); err != nil {
			return nil, err
		}
		if program == "" {
			return nil, fmt.Errorf("rule: program must not be empty")
		}
		decision, err := ParseDecision(decisionStr)
		if err != nil {
			return nil, err
		}
		flags, err := stringsFromList(flagsList)
		if err != nil {
			return nil, fmt.Errorf("rule: flags: %w", err)
		}
		policy.Add(Rule{Program: program, Flags: flags, Decision: decision, Reason: reason})
		return starlark.None, nil
	})

	thread := &starlark.Thread{Name: filename}
	predeclared := starlark.StringDict{"rule": ruleBuiltin}
	if _, err := starlark.ExecFile(thread, filename, source, predeclared); err != nil {
		return nil, &ParseError{File: filename, Message: err.Error(), Cause: err}
	}
	return policy, nil
}

func stringsFromList(list *starlark.List) ([]string, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]string, 0, list.Len())
	iter := list.Iterate()
	defer iter.Done()
	var v starlark.Value
	for iter.Next(&v) {
		s, ok := v.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", v.Type())
		}
		if s == "" {
			return nil, fmt.Errorf("flag must not be empty")
		}
		out = append(out, string(s))
	}
	return out, nil
}

// ReadRulesDir concatenates every {codexHome}/rules/*.rules file, sorted by
// name for stable output. A missing directory yields empty source. The
// result is what the policy-loading activity ships to the workflow.
func ReadRulesDir(codexHome string) (string, error) {
	rulesDir := filepath.Join(codexHome, "rules")
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rules") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(rulesDir, name))
		if err != nil {
			return "", err
		}
		b.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// LoadDir reads and parses every rules file under codexHome. Binaries use it
// to validate an operator's rules up front; the workflow itself receives the
// raw source through the policy-loading activity instead.
func LoadDir(codexHome string) (*Policy, error) {
	source, err := ReadRulesDir(codexHome)
	if err != nil {
		return nil, err
	}
	return ParsePolicy(filepath.Join(codexHome, "rules"), source)
}
