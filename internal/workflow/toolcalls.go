package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mfateev/codex-temporal/internal/activities"
	"github.com/mfateev/codex-temporal/internal/command_safety"
	"github.com/mfateev/codex-temporal/internal/execpolicy"
	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/models"
)

// Synthesized outputs for tool calls that never ran. The model sees these as
// ordinary failed tool results and can adjust its plan.
const (
	deniedByUserOutput      = "Tool execution was denied by the user."
	forbiddenByPolicyOutput = "Tool execution was forbidden by policy."
)

// defaultCwd is the working directory reported to clients and passed to the
// tool activity. Sessions have no workspace concept yet.
const defaultCwd = "/tmp"

// executeToolCall gates one tool invocation through the exec policy rules
// and the session approval policy, then runs the tool_exec activity. The
// returned item is always a function_call_output for the model; the error
// return is reserved for cancellation.
func (s *sessionState) executeToolCall(ctx workflow.Context, turnID string, call models.ResponseItem) (models.ResponseItem, error) {
	command := commandVector(call.Arguments)

	decision, reason := s.gateDecision(command)
	switch decision {
	case execpolicy.DecisionForbid:
		workflow.GetLogger(ctx).Info("Tool call forbidden by policy",
			"call_id", call.CallID, "tool", call.Name, "reason", reason)
		return models.ToolCallOutput(call.CallID, forbiddenByPolicyOutput, 1, 0), nil

	case execpolicy.DecisionPrompt:
		approved, err := s.awaitApproval(ctx, turnID, call.CallID, command, reason)
		if err != nil {
			return models.ResponseItem{}, err
		}
		if !approved {
			return models.ToolCallOutput(call.CallID, deniedByUserOutput, 1, 0), nil
		}
	}

	return s.runTool(ctx, call)
}

// gateDecision classifies the command under the loaded rules, falling back
// to the session approval policy for anything no rule matched. Shell scripts
// are split into sub-commands by the policy; the most severe decision wins.
func (s *sessionState) gateDecision(command []string) (execpolicy.Decision, string) {
	fallback := func(cmd []string) execpolicy.Decision {
		switch s.policy {
		case models.ApprovalNever:
			return execpolicy.DecisionAllow
		case models.ApprovalUnlessTrusted:
			if command_safety.IsKnownSafeCommand(cmd) {
				return execpolicy.DecisionAllow
			}
			return execpolicy.DecisionPrompt
		default:
			return execpolicy.DecisionPrompt
		}
	}

	if s.execPolicy == nil {
		return fallback(command), ""
	}
	verdict := s.execPolicy.Evaluate(command, fallback)
	return verdict.Decision, verdict.Reason
}

// awaitApproval parks the turn on the one-slot approval gate until a client
// resolves it via the receive_approval signal. There is never more than one
// pending approval because tool calls within a turn run sequentially.
func (s *sessionState) awaitApproval(ctx workflow.Context, turnID, callID string, command []string, reason string) (bool, error) {
	pending := &PendingApproval{CallID: callID}
	s.pendingApproval = pending
	defer func() { s.pendingApproval = nil }()

	s.emit(models.ExecApprovalRequestMsg(callID, turnID, command, defaultCwd, reason))

	if err := workflow.Await(ctx, func() bool { return pending.Decision != nil }); err != nil {
		return false, err
	}
	return *pending.Decision, nil
}

// runTool executes the tool_exec activity for an approved call and converts
// the result into the model-facing output item. Infrastructure failures
// (after retries) become failed outputs rather than session errors, so the
// model can react; cancellation propagates.
func (s *sessionState) runTool(ctx workflow.Context, call models.ResponseItem) (models.ResponseItem, error) {
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: toolExecTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				models.ErrorTypeFatal.String(),
			},
		},
	}

	input := activities.ToolExecInput{
		ToolName:  call.Name,
		CallID:    call.CallID,
		Arguments: call.Arguments,
		Model:     s.model.Slug,
		Cwd:       defaultCwd,
	}
	if mcp.IsQualifiedName(call.Name) {
		input.SessionID = workflow.GetInfo(ctx).WorkflowExecution.ID
		input.McpServers = s.input.McpServers
	}

	var out activities.ToolExecOutput
	err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, opts),
		activities.ToolExecActivityName, input,
	).Get(ctx, &out)
	if err != nil {
		var canceled *temporal.CanceledError
		if errors.As(err, &canceled) {
			return models.ResponseItem{}, err
		}
		workflow.GetLogger(ctx).Error("Tool activity failed",
			"call_id", call.CallID, "tool", call.Name, "error", err)
		return models.ToolCallOutput(call.CallID, fmt.Sprintf("error: %v", err), 1, 0), nil
	}

	return models.ToolCallOutput(out.CallID, out.Output, out.ExitCode, out.DurationSeconds), nil
}

// commandVector extracts the argv to gate on. Shell-style tools carry it as
// a "command" array in the arguments JSON; for anything else the raw
// argument string stands in, so rules and safety checks see one opaque word.
func commandVector(arguments string) []string {
	var args struct {
		Command []string `json:"command"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err == nil && len(args.Command) > 0 {
		return args.Command
	}
	return []string{arguments}
}
