package activities

import (
	"context"
	"fmt"

	"github.com/mfateev/codex-temporal/internal/mcp"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// ListMcpToolsActivityName is the registered name of the MCP discovery
// activity.
const ListMcpToolsActivityName = "list_mcp_tools"

// CleanupMcpSessionActivityName is the registered name of the MCP cleanup
// activity.
const CleanupMcpSessionActivityName = "cleanup_mcp_session"

// ListMcpToolsInput carries the server configs to connect and discover.
type ListMcpToolsInput struct {
	SessionID  string                      `json:"session_id"`
	McpServers map[string]mcp.ServerConfig `json:"mcp_servers"`
}

// ListMcpToolsOutput is the discovered tool catalog. Failures records
// optional servers that could not be reached; the workflow surfaces them
// without aborting the session.
type ListMcpToolsOutput struct {
	Tools    []tools.ToolSpec  `json:"tools,omitempty"`
	Failures map[string]string `json:"failures,omitempty"`
}

// McpActivities manages per-session MCP connections on the worker.
type McpActivities struct {
	store *mcp.Store
}

// NewMcpActivities creates a McpActivities over the given store.
func NewMcpActivities(store *mcp.Store) *McpActivities {
	return &McpActivities{store: store}
}

// ListMcpTools connects the session's MCP servers, discovers their tools,
// and returns plain tool specs the workflow can feed into the model's tool
// catalog. A failing required server is an error; optional failures are
// reported in the output.
func (a *McpActivities) ListMcpTools(ctx context.Context, input ListMcpToolsInput) (ListMcpToolsOutput, error) {
	if len(input.McpServers) == 0 {
		return ListMcpToolsOutput{}, nil
	}

	mgr := a.store.GetOrCreate(input.SessionID)
	result, err := mgr.Initialize(ctx, input.McpServers)
	if err != nil {
		return ListMcpToolsOutput{}, fmt.Errorf("MCP initialization failed: %w", err)
	}

	var specs []tools.ToolSpec
	for _, mcpSpec := range result.ToolSpecs {
		specs = append(specs, tools.ToolSpec{
			Name:        mcpSpec.QualifiedName,
			Description: mcpSpec.Description,
			RawSchema:   mcpSpec.InputSchema,
		})
	}

	return ListMcpToolsOutput{
		Tools:    specs,
		Failures: result.Failures,
	}, nil
}

// CleanupMcpSessionInput names the session whose connections to close.
type CleanupMcpSessionInput struct {
	SessionID string `json:"session_id"`
}

// CleanupMcpSession closes the session's MCP connections. Called when the
// workflow completes.
func (a *McpActivities) CleanupMcpSession(ctx context.Context, input CleanupMcpSessionInput) error {
	a.store.Remove(input.SessionID)
	return nil
}
