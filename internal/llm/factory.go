package llm

import (
	"context"
	"strings"
)

// DetectProvider maps a model slug to the provider that serves it.
// Anthropic models all carry the "claude" prefix; everything else is
// assumed to speak the OpenAI Responses API.
func DetectProvider(slug string) string {
	if strings.HasPrefix(slug, "claude") {
		return "anthropic"
	}
	return "openai"
}

// MultiProviderClient routes each call to the provider owning the
// requested model. Both underlying clients are constructed eagerly;
// a missing API key only matters once a model from that provider is
// actually requested.
type MultiProviderClient struct {
	openai    *OpenAIClient
	anthropic *AnthropicClient
}

// NewMultiProviderClient builds a client for every supported provider.
func NewMultiProviderClient() *MultiProviderClient {
	return &MultiProviderClient{
		openai:    NewOpenAIClient(),
		anthropic: NewAnthropicClient(),
	}
}

// Call dispatches to the provider selected by the request's model slug.
func (c *MultiProviderClient) Call(ctx context.Context, request ModelRequest) (ModelResponse, error) {
	if DetectProvider(request.Model.Slug) == "anthropic" {
		return c.anthropic.Call(ctx, request)
	}
	return c.openai.Call(ctx, request)
}
