// Package llm contains the model clients the model_call activity dispatches
// to. Each request is complete and self-contained: the full conversation
// history rides in Input and nothing is streamed or chained, because the
// workflow owns all state and replays must see identical responses.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// ModelRequest is one model call.
type ModelRequest struct {
	ConversationID    string                `json:"conversation_id"`
	Model             models.ModelInfo      `json:"model"`
	Instructions      string                `json:"instructions,omitempty"`
	Input             []models.ResponseItem `json:"input"`
	Tools             []tools.ToolSpec      `json:"tools,omitempty"`
	ParallelToolCalls bool                  `json:"parallel_tool_calls,omitempty"`
	WebSearchMode     models.WebSearchMode  `json:"web_search_mode,omitempty"`
}

// ModelResponse carries the model's output items and token usage.
type ModelResponse struct {
	Items []models.ResponseItem `json:"items"`
	Usage models.TokenUsage     `json:"usage"`
}

// ModelClient is implemented once per provider.
type ModelClient interface {
	Call(ctx context.Context, request ModelRequest) (ModelResponse, error)
}

// classifyByStatusCode maps an HTTP status to a categorized ActivityError.
// Shared by every provider's error classifier.
//
//   - 429: rate limit, retryable with backoff
//   - 408, 409: transient, retryable
//   - other 4xx: client error, non-retryable
//   - 5xx: server error, retryable
func classifyByStatusCode(statusCode int, err error) *models.ActivityError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return models.NewAPILimitError(fmt.Sprintf("rate limit (%d): %v", statusCode, err))
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusConflict:
		return models.NewTransientError(fmt.Sprintf("retryable error (%d): %v", statusCode, err))
	case statusCode >= 400 && statusCode < 500:
		return models.NewFatalError(fmt.Sprintf("client error (%d): %v", statusCode, err))
	case statusCode >= 500:
		return models.NewTransientError(fmt.Sprintf("server error (%d): %v", statusCode, err))
	default:
		return models.NewTransientError(fmt.Sprintf("unexpected status (%d): %v", statusCode, err))
	}
}

// schemaObject renders a tool spec as a JSON schema object. MCP tools carry
// their schema verbatim in RawSchema; built-in tools describe parameters
// individually.
func schemaObject(spec tools.ToolSpec) map[string]any {
	if spec.RawSchema != nil {
		return spec.RawSchema
	}

	properties := make(map[string]any)
	required := make([]string, 0)
	for _, p := range spec.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Items != "" {
			prop["items"] = map[string]any{"type": p.Items}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// requiredList extracts a schema object's required-field names, tolerating
// both the []string we build and the []any JSON decoding produces.
func requiredList(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
