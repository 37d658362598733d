package mcp

import (
	"context"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/codex-temporal/internal/tools"
)

// startTestServer runs an MCP server with the given tools on an in-memory
// transport and returns a connected client session.
func startTestServer(t *testing.T, ctx context.Context, handlers map[string]gomcp.ToolHandler) *gomcp.ClientSession {
	t.Helper()

	server := gomcp.NewServer(&gomcp.Implementation{
		Name:    "test-server",
		Version: "1.0.0",
	}, nil)

	for name, handler := range handlers {
		server.AddTool(&gomcp.Tool{
			Name:        name,
			Description: "Test tool: " + name,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		}, handler)
	}

	serverTransport, clientTransport := gomcp.NewInMemoryTransports()

	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := gomcp.NewClient(&gomcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	return session
}

// inject wires a pre-connected session and its discovered tools into the
// manager, standing in for Initialize for transports tests cannot spawn.
func inject(mgr *Manager, serverName string, session *gomcp.ClientSession, infos ...ToolInfo) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.clients[serverName] = &managedClient{session: session, config: ServerConfig{}}
	for name, info := range QualifyTools(infos) {
		mgr.tools[name] = info
	}
}

func TestManager_CallTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"echo": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				Content: []gomcp.Content{&gomcp.TextContent{Text: "echoed"}},
			}, nil
		},
	})
	defer session.Close()

	mgr := NewManager()
	inject(mgr, "test_server", session, ToolInfo{ServerName: "test_server", ToolName: "echo"})

	result, err := mgr.CallTool(ctx, "test_server", "echo", map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "echoed", tc.Text)
}

func TestManager_CallTool_ServerNotConnected(t *testing.T) {
	mgr := NewManager()

	_, err := mgr.CallTool(context.Background(), "nonexistent", "tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestManager_LookupTool(t *testing.T) {
	mgr := NewManager()
	mgr.tools["mcp__github__create_issue"] = ToolInfo{
		ServerName: "github",
		ToolName:   "create_issue",
	}

	info, ok := mgr.LookupTool("mcp__github__create_issue")
	assert.True(t, ok)
	assert.Equal(t, "github", info.ServerName)
	assert.Equal(t, "create_issue", info.ToolName)

	_, ok = mgr.LookupTool("nonexistent")
	assert.False(t, ok)
}

func TestManager_DiscoversAndQualifiesTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"greet": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				Content: []gomcp.Content{&gomcp.TextContent{Text: "Hello!"}},
			}, nil
		},
		"farewell": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				Content: []gomcp.Content{&gomcp.TextContent{Text: "Goodbye!"}},
			}, nil
		},
	})
	defer session.Close()

	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var infos []ToolInfo
	for _, tool := range listed.Tools {
		infos = append(infos, ToolInfo{ServerName: "myserver", ToolName: tool.Name, Tool: tool})
	}

	mgr := NewManager()
	inject(mgr, "myserver", session, infos...)

	assert.Len(t, mgr.tools, 2)
	assert.Contains(t, mgr.tools, "mcp__myserver__greet")
	assert.Contains(t, mgr.tools, "mcp__myserver__farewell")

	specs := mgr.Specs()
	assert.Len(t, specs, 2)
	for _, spec := range specs {
		assert.Equal(t, "myserver", spec.ServerName)
		assert.NotEmpty(t, spec.Description)
		assert.Equal(t, "object", spec.InputSchema["type"])
	}

	result, err := mgr.CallTool(ctx, "myserver", "greet", map[string]any{"name": "World"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Hello!", tc.Text)
}

func TestManager_Initialize_NoServers(t *testing.T) {
	mgr := NewManager()

	result, err := mgr.Initialize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.ToolSpecs)
	assert.Empty(t, result.Failures)
}

func TestManager_Initialize_DisabledServerSkipped(t *testing.T) {
	mgr := NewManager()
	disabled := false

	result, err := mgr.Initialize(context.Background(), map[string]ServerConfig{
		"off": {Command: "/nonexistent-mcp-server", Enabled: &disabled},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.Empty(t, mgr.clients)
}

func TestManager_Initialize_OptionalFailureRecorded(t *testing.T) {
	mgr := NewManager()
	timeout := 2

	result, err := mgr.Initialize(context.Background(), map[string]ServerConfig{
		"broken": {Command: "/nonexistent-mcp-server", StartupTimeoutSec: &timeout},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Failures, "broken")
	assert.Empty(t, mgr.clients)
}

func TestManager_Initialize_RequiredFailureFatal(t *testing.T) {
	mgr := NewManager()
	timeout := 2

	_, err := mgr.Initialize(context.Background(), map[string]ServerConfig{
		"critical": {Command: "/nonexistent-mcp-server", Required: true, StartupTimeoutSec: &timeout},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required MCP server critical")
}

func TestManager_EnsureConnected_AllLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"noop": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{}, nil
		},
	})
	defer session.Close()

	mgr := NewManager()
	inject(mgr, "live", session)

	// Nothing missing, so no dialing happens even with a bogus command.
	err := mgr.EnsureConnected(ctx, map[string]ServerConfig{
		"live": {Command: "/nonexistent-mcp-server"},
	})
	require.NoError(t, err)
}

func TestManager_Close(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"test": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				Content: []gomcp.Content{&gomcp.TextContent{Text: "ok"}},
			}, nil
		},
	})

	mgr := NewManager()
	inject(mgr, "test", session, ToolInfo{ServerName: "test", ToolName: "test"})

	mgr.Close()

	assert.Empty(t, mgr.clients)
	assert.Empty(t, mgr.tools)
}

func TestHandler_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"echo": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				Content: []gomcp.Content{&gomcp.TextContent{Text: "echoed"}},
			}, nil
		},
	})
	defer session.Close()

	mgr := NewManager()
	inject(mgr, "test_server", session, ToolInfo{ServerName: "test_server", ToolName: "echo"})

	handler, ok := mgr.Handler("mcp__test_server__echo")
	require.True(t, ok)

	result, err := handler.Run(ctx, tools.ToolCall{
		CallID:    "call-1",
		Name:      "mcp__test_server__echo",
		Arguments: `{"message": "hi"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "echoed", result.Output)
	assert.Equal(t, 0, result.ExitCode)
	assert.GreaterOrEqual(t, result.DurationSeconds, 0.0)
}

func TestHandler_Run_ToolError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := startTestServer(t, ctx, map[string]gomcp.ToolHandler{
		"fail": func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
			return &gomcp.CallToolResult{
				IsError: true,
				Content: []gomcp.Content{&gomcp.TextContent{Text: "boom"}},
			}, nil
		},
	})
	defer session.Close()

	mgr := NewManager()
	inject(mgr, "test_server", session, ToolInfo{ServerName: "test_server", ToolName: "fail"})

	handler, ok := mgr.Handler("mcp__test_server__fail")
	require.True(t, ok)

	result, err := handler.Run(ctx, tools.ToolCall{Name: "mcp__test_server__fail", Arguments: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "boom", result.Output)
	assert.Equal(t, 1, result.ExitCode)
}

func TestHandler_Run_BadArguments(t *testing.T) {
	mgr := NewManager()
	mgr.tools["mcp__s__t"] = ToolInfo{ServerName: "s", ToolName: "t"}

	handler, ok := mgr.Handler("mcp__s__t")
	require.True(t, ok)

	result, err := handler.Run(context.Background(), tools.ToolCall{
		Name:      "mcp__s__t",
		Arguments: "{not json",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "invalid tool arguments")
}

func TestHandler_UnknownTool(t *testing.T) {
	mgr := NewManager()
	_, ok := mgr.Handler("mcp__nobody__nothing")
	assert.False(t, ok)
}

func TestResultText(t *testing.T) {
	result := &gomcp.CallToolResult{
		Content: []gomcp.Content{
			&gomcp.TextContent{Text: "line one"},
			&gomcp.TextContent{Text: "line two"},
		},
	}
	assert.Equal(t, "line one\nline two", ResultText(result))

	assert.Equal(t, "", ResultText(&gomcp.CallToolResult{}))
}

func TestServerConfigTimeouts(t *testing.T) {
	cfg := ServerConfig{}
	assert.Equal(t, DefaultStartupTimeout, cfg.StartupTimeout())
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout())

	startup, tool := 3, 120
	cfg = ServerConfig{StartupTimeoutSec: &startup, ToolTimeoutSec: &tool}
	assert.Equal(t, 3*time.Second, cfg.StartupTimeout())
	assert.Equal(t, 120*time.Second, cfg.ToolTimeout())
}
