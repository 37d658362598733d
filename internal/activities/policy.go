package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfateev/codex-temporal/internal/execpolicy"
	"github.com/mfateev/codex-temporal/internal/models"
)

// LoadExecPolicyActivityName is the registered name of the policy loader.
const LoadExecPolicyActivityName = "load_exec_policy"

// LoadExecPolicyInput names the directory tree to read rules from.
type LoadExecPolicyInput struct {
	CodexHome string `json:"codex_home,omitempty"`
}

// LoadExecPolicyOutput ships the concatenated rules source to the workflow.
// The workflow parses it so policy evaluation stays deterministic on replay.
type LoadExecPolicyOutput struct {
	RulesSource string `json:"rules_source,omitempty"`
}

// PolicyActivities loads exec policy rules from the worker's filesystem.
type PolicyActivities struct{}

// NewPolicyActivities creates a PolicyActivities instance.
func NewPolicyActivities() *PolicyActivities {
	return &PolicyActivities{}
}

// LoadExecPolicy reads every rules file under {codex_home}/rules and
// validates that the combined source parses. Invalid rules fail fatally:
// retrying cannot fix a broken file, and shipping it to the workflow would
// just move the failure somewhere harder to see.
func (a *PolicyActivities) LoadExecPolicy(ctx context.Context, input LoadExecPolicyInput) (LoadExecPolicyOutput, error) {
	if input.CodexHome == "" {
		return LoadExecPolicyOutput{}, nil
	}

	source, err := execpolicy.ReadRulesDir(input.CodexHome)
	if err != nil {
		return LoadExecPolicyOutput{}, fmt.Errorf("failed to read exec policy rules: %w", err)
	}
	if source == "" {
		return LoadExecPolicyOutput{}, nil
	}

	if _, err := execpolicy.ParsePolicy("rules", source); err != nil {
		var parseErr *execpolicy.ParseError
		if errors.As(err, &parseErr) {
			return LoadExecPolicyOutput{}, models.WrapActivityError(
				models.NewFatalError(fmt.Sprintf("invalid exec policy: %v", parseErr)))
		}
		return LoadExecPolicyOutput{}, err
	}

	return LoadExecPolicyOutput{RulesSource: source}, nil
}
