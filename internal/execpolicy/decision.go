// Package execpolicy evaluates shell commands against user-authored Starlark
// rule files. Rules classify commands as allow, prompt, or forbid; the
// highest decision across all matching rules wins. Rule files live under
// {CODEX_HOME}/rules/*.rules and are fetched as raw text by an activity so
// the workflow can parse and evaluate them deterministically.
package execpolicy

import (
	"fmt"
	"strings"
)

// Decision orders the possible outcomes. Aggregation takes the maximum, so
// one forbid rule overrides any number of allow rules.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionPrompt
	DecisionForbid
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionPrompt:
		return "prompt"
	case DecisionForbid:
		return "forbid"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision parses the decision strings accepted in rule files. An empty
// string means allow, so `rule(program="ls")` reads naturally.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(s) {
	case "allow", "":
		return DecisionAllow, nil
	case "prompt":
		return DecisionPrompt, nil
	case "forbid", "forbidden":
		return DecisionForbid, nil
	}
	return DecisionAllow, fmt.Errorf("invalid decision %q: must be allow, prompt, or forbid", s)
}
