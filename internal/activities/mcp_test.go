package activities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/codex-temporal/internal/mcp"
)

func TestListMcpTools_NoServers(t *testing.T) {
	a := NewMcpActivities(mcp.NewStore())

	output, err := a.ListMcpTools(context.Background(), ListMcpToolsInput{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Empty(t, output.Tools)
	assert.Empty(t, output.Failures)
}

func TestListMcpTools_OptionalFailureReported(t *testing.T) {
	a := NewMcpActivities(mcp.NewStore())

	startup := 2
	output, err := a.ListMcpTools(context.Background(), ListMcpToolsInput{
		SessionID: "sess-2",
		McpServers: map[string]mcp.ServerConfig{
			"flaky": {Command: "/nonexistent-mcp-server", StartupTimeoutSec: &startup},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, output.Tools)
	assert.Contains(t, output.Failures, "flaky")
}

func TestListMcpTools_RequiredFailureIsError(t *testing.T) {
	a := NewMcpActivities(mcp.NewStore())

	startup := 2
	_, err := a.ListMcpTools(context.Background(), ListMcpToolsInput{
		SessionID: "sess-3",
		McpServers: map[string]mcp.ServerConfig{
			"critical": {Command: "/nonexistent-mcp-server", Required: true, StartupTimeoutSec: &startup},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical")
}

func TestCleanupMcpSession(t *testing.T) {
	store := mcp.NewStore()
	store.GetOrCreate("sess-4")
	require.Equal(t, 1, store.Count())

	a := NewMcpActivities(store)
	require.NoError(t, a.CleanupMcpSession(context.Background(), CleanupMcpSessionInput{SessionID: "sess-4"}))
	assert.Equal(t, 0, store.Count())
}
