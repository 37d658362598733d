// Package workflow contains the Temporal workflow that hosts one agent
// session: a long-lived conversation loop that alternates model calls and
// tool executions, gated by the session's approval policy.
//
// The workflow is deterministic. All side effects (model calls, tool
// executions, filesystem reads) happen in activities; randomness comes from
// a seeded source and time from a logical clock, so replay reproduces the
// same history byte for byte.
package workflow

import (
	"encoding/json"

	"github.com/mfateev/codex-temporal/internal/entropy"
	"github.com/mfateev/codex-temporal/internal/execpolicy"
	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/sink"
	"github.com/mfateev/codex-temporal/internal/storage"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// TaskQueue is the Temporal task queue shared by the worker and every
// client binary.
const TaskQueue = "codex-temporal"

// WorkflowName is the registered name of CodexWorkflow. Clients start
// sessions by name so they don't link workflow code into their binaries.
const WorkflowName = "CodexWorkflow"

// Signal and query names. These are the wire protocol between the session
// adapter and a running workflow; renaming any of them breaks deployed
// clients.
const (
	SignalReceiveUserTurn = "receive_user_turn"
	SignalReceiveApproval = "receive_approval"
	SignalRequestShutdown = "request_shutdown"
	QueryGetEventsSince   = "get_events_since"
)

// maxIterations caps the model-call/tool-execution cycles of a single turn.
// A model stuck requesting tools forever ends its turn here instead of
// consuming the task queue indefinitely.
const maxIterations = 50

// defaultModel is used when the input names no model.
const defaultModel = "gpt-4o"

// CodexWorkflowInput starts a session. UserMessage, when non-empty, seeds
// the first turn so one-shot clients get a response without sending a
// separate signal.
type CodexWorkflowInput struct {
	UserMessage    string                `json:"user_message,omitempty"`
	Model          string                `json:"model,omitempty"`
	Instructions   string                `json:"instructions,omitempty"`
	ApprovalPolicy models.ApprovalPolicy `json:"approval_policy,omitempty"`
	WebSearchMode  models.WebSearchMode  `json:"web_search_mode,omitempty"`

	// CodexHome points the policy loader at the worker-side directory
	// holding exec policy rules. Empty means no rules.
	CodexHome string `json:"codex_home,omitempty"`

	// McpServers lists external tool servers whose tools join the catalog.
	McpServers map[string]mcp.ServerConfig `json:"mcp_servers,omitempty"`
}

// CodexWorkflowOutput is the workflow result returned after shutdown.
type CodexWorkflowOutput struct {
	LastAgentMessage *string `json:"last_agent_message,omitempty"`
	Iterations       int     `json:"iterations"`
}

// UserTurnInput is the payload of the receive_user_turn signal.
type UserTurnInput struct {
	TurnID  string `json:"turn_id"`
	Message string `json:"message"`
}

// ApprovalInput is the payload of the receive_approval signal.
type ApprovalInput struct {
	CallID   string `json:"call_id"`
	Approved bool   `json:"approved"`
}

// PendingApproval is the single in-flight approval slot. Decision stays nil
// until a matching receive_approval signal resolves it.
type PendingApproval struct {
	CallID   string `json:"call_id"`
	Decision *bool  `json:"decision,omitempty"`
}

// EventsPage is the get_events_since query result: the events at positions
// [from, watermark) of the session's event log, already marshaled, plus the
// new watermark to poll from.
type EventsPage struct {
	Events    []json.RawMessage `json:"events"`
	Watermark int               `json:"watermark"`
}

// sessionState is the mutable state of one running session. It lives for
// the whole workflow execution and is touched only from workflow goroutines,
// so no locking is needed.
type sessionState struct {
	input     CodexWorkflowInput
	model     models.ModelInfo
	policy    models.ApprovalPolicy
	webSearch models.WebSearchMode

	history []models.ResponseItem
	store   storage.Backend
	events  *sink.BufferEventSink
	random  *entropy.Source
	clock   *entropy.Clock

	execPolicy *execpolicy.Policy
	toolSpecs  []tools.ToolSpec

	userTurns         []UserTurnInput
	pendingApproval   *PendingApproval
	shutdownRequested bool

	// iterations counts model calls across the whole session; it is
	// reported in the workflow result.
	iterations int
}

// record appends items to the conversation history and mirrors them to the
// storage backend.
func (s *sessionState) record(items ...models.ResponseItem) {
	s.history = append(s.history, items...)
	// The in-memory backend cannot fail; a future persistent backend
	// reports its errors without corrupting the history slice.
	_ = s.store.Save(items)
}

// functionCalls extracts the tool invocation requests from a model response.
func functionCalls(items []models.ResponseItem) []models.ResponseItem {
	var calls []models.ResponseItem
	for _, item := range items {
		if item.IsFunctionCall() {
			calls = append(calls, item)
		}
	}
	return calls
}
