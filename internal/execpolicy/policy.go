package execpolicy

import (
	"path/filepath"

	"github.com/mfateev/codex-temporal/internal/command_safety"
)

// Rule matches commands whose program is Program and whose arguments contain
// every token in Flags. With no Flags it matches every invocation of the
// program.
type Rule struct {
	Program  string
	Flags    []string
	Decision Decision
	Reason   string
}

// Matches reports whether cmd falls under this rule.
func (r Rule) Matches(cmd []string) bool {
	if len(cmd) == 0 || filepath.Base(cmd[0]) != r.Program {
		return false
	}
	for _, flag := range r.Flags {
		found := false
		for _, arg := range cmd[1:] {
			if arg == flag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Verdict is the outcome of evaluating one command vector, including the
// shell-script case where the vector expands to several sub-commands.
type Verdict struct {
	Decision Decision
	// Reason is the reason of the rule that set the decision, if any.
	Reason string
	// Matched reports whether any rule matched any sub-command. When false
	// the decision came entirely from the caller's fallback.
	Matched bool
}

// Policy is an immutable set of rules indexed by program name. A Policy is
// safe to share: evaluation never mutates it.
type Policy struct {
	rules map[string][]Rule
}

// NewPolicy returns an empty policy, which matches nothing.
func NewPolicy() *Policy {
	return &Policy{rules: make(map[string][]Rule)}
}

// Add indexes a rule under its program name.
func (p *Policy) Add(r Rule) {
	p.rules[r.Program] = append(p.rules[r.Program], r)
}

// Merge copies every rule of other into p.
func (p *Policy) Merge(other *Policy) {
	for program, rules := range other.rules {
		p.rules[program] = append(p.rules[program], rules...)
	}
}

// Len reports the number of rules.
func (p *Policy) Len() int {
	n := 0
	for _, rules := range p.rules {
		n += len(rules)
	}
	return n
}

// Evaluate classifies a command vector. A bash/zsh/sh -lc script is split
// into its plain sub-commands and each is classified separately; the highest
// decision wins. Sub-commands no rule matches are decided by fallback, or
// prompt when fallback is nil.
func (p *Policy) Evaluate(cmd []string, fallback func([]string) Decision) Verdict {
	subs := command_safety.ShellScriptCommands(cmd)
	if subs == nil {
		subs = [][]string{cmd}
	}

	verdict := Verdict{Decision: DecisionAllow}
	decided := false
	for _, sub := range subs {
		d, reason, matched := p.evaluateOne(sub)
		if matched {
			verdict.Matched = true
		} else {
			d, reason = DecisionPrompt, ""
			if fallback != nil {
				d = fallback(sub)
			}
		}
		if !decided || d > verdict.Decision {
			verdict.Decision = d
			verdict.Reason = reason
			decided = true
		}
	}
	return verdict
}

func (p *Policy) evaluateOne(cmd []string) (Decision, string, bool) {
	if len(cmd) == 0 {
		return DecisionAllow, "", false
	}
	best, reason, matched := DecisionAllow, "", false
	for _, r := range p.rules[filepath.Base(cmd[0])] {
		if !r.Matches(cmd) {
			continue
		}
		if !matched || r.Decision > best {
			best, reason = r.Decision, r.Reason
		}
		matched = true
	}
	return best, reason, matched
}
