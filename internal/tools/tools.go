// Package tools provides the worker-side tool registry and the built-in
// tool handlers the agent can call. Tool specs are plain data and safe to
// reference from workflow code; handlers run only inside activities.
package tools

import (
	"context"
	"fmt"
	"sort"
)

// ToolSpec describes a tool to the model.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
	// RawSchema carries the complete JSON schema for tools discovered over
	// MCP. When set it takes precedence over Parameters.
	RawSchema map[string]any `json:"raw_schema,omitempty"`
}

// ToolParameter is one argument in a tool's JSON schema.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	// Items is the element type for array parameters.
	Items string `json:"items,omitempty"`
}

// ToolCall is one invocation requested by the model. Arguments is the raw
// JSON argument object; each handler decodes its own shape.
type ToolCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Cwd       string `json:"cwd,omitempty"`
}

// ToolResult is what a handler produced. Handler-level failures (bad
// arguments, missing files, nonzero exits) are reported here with a nonzero
// ExitCode so the model can see and react to them; the error return is
// reserved for infrastructure failures and cancellation.
type ToolResult struct {
	Output          string  `json:"output"`
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Handler executes one tool.
type Handler interface {
	Spec() ToolSpec
	Run(ctx context.Context, call ToolCall) (ToolResult, error)
}

// Registry maps tool names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces a handler under its spec name.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Spec().Name] = h
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Specs lists every registered tool spec, sorted by name for a stable
// catalog across worker restarts.
func (r *Registry) Specs() []ToolSpec {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, r.handlers[name].Spec())
	}
	return specs
}

// Dispatch routes a call to its handler. An unknown tool name comes back as
// a failed result rather than an error so the model gets a chance to
// correct itself.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall) (ToolResult, error) {
	h, ok := r.handlers[call.Name]
	if !ok {
		return ToolResult{
			Output:   fmt.Sprintf("error: tool not found: %s", call.Name),
			ExitCode: 1,
		}, nil
	}
	return h.Run(ctx, call)
}

// DefaultRegistry returns a registry with the built-in tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewShellTool())
	r.Register(NewReadFileTool())
	r.Register(NewListDirTool())
	r.Register(NewGrepFilesTool())
	r.Register(NewHTTPFetchTool())
	return r
}

// DefaultSpecs is the built-in tool catalog. It is pure data, so workflow
// code may call it when assembling a model request.
func DefaultSpecs() []ToolSpec {
	return DefaultRegistry().Specs()
}
