package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mfateev/codex-temporal/internal/tools"
)

// toolHandler adapts one MCP tool to the registry's Handler interface so the
// tool activity can dispatch MCP calls the same way it dispatches built-ins.
type toolHandler struct {
	mgr           *Manager
	qualifiedName string
	info          ToolInfo
}

// Handler returns a tools.Handler for a qualified MCP tool name, if the
// manager knows it.
func (m *Manager) Handler(qualifiedName string) (tools.Handler, bool) {
	info, ok := m.LookupTool(qualifiedName)
	if !ok {
		return nil, false
	}
	return &toolHandler{mgr: m, qualifiedName: qualifiedName, info: info}, true
}

func (h *toolHandler) Spec() tools.ToolSpec {
	spec := tools.ToolSpec{Name: h.qualifiedName}
	if h.info.Tool != nil {
		spec.Description = h.info.Tool.Description
		spec.RawSchema = schemaMap(h.info.Tool.InputSchema)
	}
	return spec
}

// Run forwards the call to the MCP server. Server-reported tool errors come
// back as failed results so the model can react; transport errors and
// cancellation surface as errors for the activity layer to classify.
func (h *toolHandler) Run(ctx context.Context, call tools.ToolCall) (tools.ToolResult, error) {
	start := time.Now()

	var args map[string]any
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return tools.ToolResult{
				Output:          fmt.Sprintf("error: invalid tool arguments: %v", err),
				ExitCode:        1,
				DurationSeconds: time.Since(start).Seconds(),
			}, nil
		}
	}

	result, err := h.mgr.CallTool(ctx, h.info.ServerName, h.info.ToolName, args)
	if err != nil {
		if ctx.Err() != nil {
			return tools.ToolResult{}, ctx.Err()
		}
		return tools.ToolResult{
			Output:          fmt.Sprintf("error: %v", err),
			ExitCode:        1,
			DurationSeconds: time.Since(start).Seconds(),
		}, nil
	}

	exitCode := 0
	if result.IsError {
		exitCode = 1
	}

	return tools.ToolResult{
		Output:          ResultText(result),
		ExitCode:        exitCode,
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}

// ResultText flattens a tool result's text content blocks into one string.
// Non-text blocks are noted rather than dropped silently.
func ResultText(result *gomcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*gomcp.TextContent); ok {
			parts = append(parts, tc.Text)
		} else {
			parts = append(parts, "[non-text content]")
		}
	}
	return strings.Join(parts, "\n")
}
