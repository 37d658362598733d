package activities

import (
	"context"
	"fmt"

	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// ToolExecActivityName is the registered name of the tool activity.
const ToolExecActivityName = "tool_exec"

// ToolExecInput identifies one tool invocation.
type ToolExecInput struct {
	ToolName  string `json:"tool_name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
	Model     string `json:"model,omitempty"`
	Cwd       string `json:"cwd,omitempty"`

	// SessionID and McpServers route mcp__-qualified tools. Carrying the
	// server configs in the input lets a freshly restarted worker reconnect
	// before dispatching instead of failing the call.
	SessionID  string                      `json:"session_id,omitempty"`
	McpServers map[string]mcp.ServerConfig `json:"mcp_servers,omitempty"`
}

// ToolExecOutput is the result of one tool invocation. A nonzero exit code
// is data for the model, not an activity failure.
type ToolExecOutput struct {
	CallID          string  `json:"call_id"`
	Output          string  `json:"output"`
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ToolActivities holds the tool registry and the MCP session store.
type ToolActivities struct {
	registry *tools.Registry
	mcpStore *mcp.Store
}

// NewToolActivities creates a ToolActivities over the given registry and
// MCP store. The store may be nil when no MCP servers are configured.
func NewToolActivities(registry *tools.Registry, mcpStore *mcp.Store) *ToolActivities {
	return &ToolActivities{registry: registry, mcpStore: mcpStore}
}

// ToolExec dispatches one tool call and returns its output. Handler
// failures come back with a nonzero exit code so the model can react;
// the error return is reserved for cancellation.
func (a *ToolActivities) ToolExec(ctx context.Context, input ToolExecInput) (ToolExecOutput, error) {
	stop := heartbeatEvery(ctx, heartbeatInterval)
	defer stop()

	result, err := a.dispatch(ctx, input)
	if err != nil {
		return ToolExecOutput{}, err
	}
	if ctx.Err() != nil {
		// Abandon the output on cancellation; the caller sees a
		// canceled-activity error instead of a half-finished result.
		return ToolExecOutput{}, ctx.Err()
	}

	return ToolExecOutput{
		CallID:          input.CallID,
		Output:          result.Output,
		ExitCode:        result.ExitCode,
		DurationSeconds: result.DurationSeconds,
	}, nil
}

func (a *ToolActivities) dispatch(ctx context.Context, input ToolExecInput) (tools.ToolResult, error) {
	call := tools.ToolCall{
		CallID:    input.CallID,
		Name:      input.ToolName,
		Arguments: input.Arguments,
		Cwd:       input.Cwd,
	}

	if mcp.IsQualifiedName(input.ToolName) {
		return a.dispatchMcp(ctx, input, call)
	}
	return a.registry.Dispatch(ctx, call)
}

// dispatchMcp routes a qualified tool name to its MCP session, reconnecting
// the session's servers first if this worker has not seen them yet.
func (a *ToolActivities) dispatchMcp(ctx context.Context, input ToolExecInput, call tools.ToolCall) (tools.ToolResult, error) {
	if a.mcpStore == nil {
		return tools.ToolResult{
			Output:   fmt.Sprintf("error: MCP tools are not available on this worker: %s", input.ToolName),
			ExitCode: 1,
		}, nil
	}

	mgr := a.mcpStore.GetOrCreate(input.SessionID)
	if err := mgr.EnsureConnected(ctx, input.McpServers); err != nil {
		return tools.ToolResult{
			Output:   fmt.Sprintf("error: %v", err),
			ExitCode: 1,
		}, nil
	}

	handler, ok := mgr.Handler(input.ToolName)
	if !ok {
		return tools.ToolResult{
			Output:   fmt.Sprintf("error: tool not found: %s", input.ToolName),
			ExitCode: 1,
		}, nil
	}
	return handler.Run(ctx, call)
}
