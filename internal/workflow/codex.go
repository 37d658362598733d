package workflow

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mfateev/codex-temporal/internal/activities"
	"github.com/mfateev/codex-temporal/internal/entropy"
	"github.com/mfateev/codex-temporal/internal/execpolicy"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/sink"
	"github.com/mfateev/codex-temporal/internal/storage"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// Activity timeouts. Model calls stream for a while on long prompts; tool
// executions may run builds or tests. Both heartbeat every ten seconds, so
// the heartbeat timeout detects a dead worker long before start-to-close.
const (
	modelCallTimeout  = 300 * time.Second
	toolExecTimeout   = 600 * time.Second
	heartbeatTimeout  = 30 * time.Second
	policyLoadTimeout = 10 * time.Second
	mcpTimeout        = 30 * time.Second
)

// CodexWorkflow hosts one interactive agent session. It consumes user turns
// from the receive_user_turn signal (plus an optional seed turn from the
// input), runs each through the model/tool loop, and exits after
// request_shutdown once the queue is drained. Clients observe progress
// through the get_events_since query.
func CodexWorkflow(ctx workflow.Context, input CodexWorkflowInput) (CodexWorkflowOutput, error) {
	logger := workflow.GetLogger(ctx)

	if input.Model == "" {
		input.Model = defaultModel
	}

	// One seed per execution, drawn outside workflow code and recorded in
	// history, so replay sees the same value.
	var seed uint64
	if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return rand.Uint64()
	}).Get(&seed); err != nil {
		return CodexWorkflowOutput{}, fmt.Errorf("failed to draw session seed: %w", err)
	}

	s := &sessionState{
		input:     input,
		model:     models.NewModelInfo(input.Model),
		policy:    models.ParseApprovalPolicy(string(input.ApprovalPolicy)),
		webSearch: models.ParseWebSearchMode(string(input.WebSearchMode)),
		store:     storage.NewInMemoryStorage(),
		events:    sink.NewBuffer(),
		random:    entropy.NewSource(seed),
		clock:     entropy.NewClock(workflow.Now(ctx).UTC()),
	}

	if err := s.registerHandlers(ctx); err != nil {
		return CodexWorkflowOutput{}, err
	}

	if err := s.loadExecPolicy(ctx); err != nil {
		return CodexWorkflowOutput{}, err
	}
	s.discoverTools(ctx)

	if input.UserMessage != "" {
		s.userTurns = append(s.userTurns, UserTurnInput{TurnID: "turn-0", Message: input.UserMessage})
	}

	for {
		if err := workflow.Await(ctx, func() bool {
			return len(s.userTurns) > 0 || s.shutdownRequested
		}); err != nil {
			return CodexWorkflowOutput{}, err
		}
		if s.shutdownRequested && len(s.userTurns) == 0 {
			break
		}

		turn := s.userTurns[0]
		s.userTurns = s.userTurns[1:]

		if err := s.runTurn(ctx, turn); err != nil {
			return CodexWorkflowOutput{}, err
		}

		// Shutdown during a turn lets the turn finish, then ends the
		// session even if more turns are queued.
		if s.shutdownRequested {
			break
		}
	}

	s.emit(models.ShutdownCompleteMsg())
	s.cleanupMcp(ctx)

	logger.Info("Session complete",
		"iterations", s.iterations,
		"history_items", len(s.history),
		"events", s.events.Len())

	return CodexWorkflowOutput{
		LastAgentMessage: models.LastAssistantMessage(s.history),
		Iterations:       s.iterations,
	}, nil
}

// runTurn drives one user turn: model call, tool execution, repeat, until
// the model stops requesting tools or the iteration cap trips. Only
// cancellation propagates as an error; model failures end the turn but keep
// the session alive.
func (s *sessionState) runTurn(ctx workflow.Context, turn UserTurnInput) error {
	logger := workflow.GetLogger(ctx)

	s.emit(models.TurnStartedMsg(turn.TurnID, s.model.ContextWindow))
	s.record(models.UserMessage(turn.Message))

	var lastAgentMessage *string

	for i := 0; i < maxIterations; i++ {
		s.iterations++

		out, err := s.callModel(ctx)
		if err != nil {
			var canceled *temporal.CanceledError
			if errors.As(err, &canceled) {
				return err
			}
			logger.Error("Model call failed", "turn_id", turn.TurnID, "error", err)
			s.emit(models.ErrorMsg(modelErrorMessage(err)))
			break
		}

		s.record(out.Items...)
		for _, item := range out.Items {
			if item.Type == models.ItemTypeMessage && item.Role == models.RoleAssistant {
				content := item.Content
				lastAgentMessage = &content
				s.emit(models.AgentMessageMsg(content))
			}
		}

		calls := functionCalls(out.Items)
		if len(calls) == 0 {
			break
		}

		for _, call := range calls {
			output, err := s.executeToolCall(ctx, turn.TurnID, call)
			if err != nil {
				return err
			}
			s.record(output)
		}
	}

	s.emit(models.TurnCompleteMsg(turn.TurnID, lastAgentMessage))
	logger.Debug("Turn complete", "turn_id", turn.TurnID, "logical_time", s.clock.Now())
	return nil
}

// callModel runs one model_call activity against the current history.
// Transient and rate-limit failures retry with backoff; fatal and
// context-overflow errors fail immediately.
func (s *sessionState) callModel(ctx workflow.Context) (activities.ModelCallOutput, error) {
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: modelCallTimeout,
		HeartbeatTimeout:    heartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
			NonRetryableErrorTypes: []string{
				models.ErrorTypeFatal.String(),
				models.ErrorTypeContextOverflow.String(),
			},
		},
	}

	input := activities.ModelCallInput{
		ConversationID: workflow.GetInfo(ctx).WorkflowExecution.ID,
		Input:          s.history,
		Tools:          s.toolSpecs,
		Instructions:   s.input.Instructions,
		Model:          s.model,
		WebSearchMode:  s.webSearch,
	}

	var out activities.ModelCallOutput
	err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, opts),
		activities.ModelCallActivityName, input,
	).Get(ctx, &out)
	return out, err
}

// modelErrorMessage flattens an activity failure into the text shown to the
// user. Application errors carry a category name worth surfacing; everything
// else is reported verbatim.
func modelErrorMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("model call failed (%s): %s", appErr.Type(), appErr.Message())
	}
	var timeout *temporal.TimeoutError
	if errors.As(err, &timeout) {
		return fmt.Sprintf("model call timed out: %s", timeout.TimeoutType())
	}
	return fmt.Sprintf("model call failed: %v", err)
}

// loadExecPolicy fetches the rules source from the worker and parses it in
// workflow code, keeping evaluation deterministic on replay. Invalid rules
// fail the session: silently executing without the operator's policy would
// be worse than not starting.
func (s *sessionState) loadExecPolicy(ctx workflow.Context) error {
	if s.input.CodexHome == "" {
		return nil
	}

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: policyLoadTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				models.ErrorTypeFatal.String(),
			},
		},
	}

	var out activities.LoadExecPolicyOutput
	err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, opts),
		activities.LoadExecPolicyActivityName,
		activities.LoadExecPolicyInput{CodexHome: s.input.CodexHome},
	).Get(ctx, &out)
	if err != nil {
		return fmt.Errorf("failed to load exec policy: %w", err)
	}
	if out.RulesSource == "" {
		return nil
	}

	policy, err := execpolicy.ParsePolicy("rules", out.RulesSource)
	if err != nil {
		return fmt.Errorf("failed to parse exec policy: %w", err)
	}
	s.execPolicy = policy
	return nil
}

// discoverTools assembles the session's tool catalog: the built-in tools
// plus whatever the configured MCP servers expose. MCP discovery failure is
// reported but not fatal; the session still has its built-ins.
func (s *sessionState) discoverTools(ctx workflow.Context) {
	logger := workflow.GetLogger(ctx)
	s.toolSpecs = tools.DefaultSpecs()

	if len(s.input.McpServers) == 0 {
		return
	}

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: mcpTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}

	var out activities.ListMcpToolsOutput
	err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, opts),
		activities.ListMcpToolsActivityName,
		activities.ListMcpToolsInput{
			SessionID:  workflow.GetInfo(ctx).WorkflowExecution.ID,
			McpServers: s.input.McpServers,
		},
	).Get(ctx, &out)
	if err != nil {
		logger.Error("MCP tool discovery failed", "error", err)
		s.emit(models.ErrorMsg(fmt.Sprintf("MCP tool discovery failed: %v", err)))
		return
	}

	for server, reason := range out.Failures {
		logger.Warn("MCP server unavailable", "server", server, "reason", reason)
	}
	s.toolSpecs = append(s.toolSpecs, out.Tools...)
}

// cleanupMcp tears down the worker-side MCP connections for this session.
// Best effort: the worker also reaps idle sessions on its own.
func (s *sessionState) cleanupMcp(ctx workflow.Context) {
	if len(s.input.McpServers) == 0 {
		return
	}

	opts := workflow.ActivityOptions{
		StartToCloseTimeout: mcpTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	_ = workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, opts),
		activities.CleanupMcpSessionActivityName,
		activities.CleanupMcpSessionInput{SessionID: workflow.GetInfo(ctx).WorkflowExecution.ID},
	).Get(ctx, nil)
}

// emit appends an event to the session's event log. Event IDs come from the
// seeded source, so they are stable across replay.
func (s *sessionState) emit(msg models.EventMsg) {
	_ = s.events.Emit(models.Event{ID: s.random.UUID(), Msg: msg})
}
