package activities

import (
	"context"
	"errors"

	"github.com/mfateev/codex-temporal/internal/llm"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// ModelCallActivityName is the registered name of the model activity. The
// workflow invokes activities by name, so this must stay stable across
// deployments.
const ModelCallActivityName = "model_call"

// ModelCallInput carries one complete prompt to the model activity.
type ModelCallInput struct {
	ConversationID    string                `json:"conversation_id"`
	Input             []models.ResponseItem `json:"input"`
	Tools             []tools.ToolSpec      `json:"tools,omitempty"`
	ParallelToolCalls bool                  `json:"parallel_tool_calls,omitempty"`
	Instructions      string                `json:"instructions,omitempty"`
	Model             models.ModelInfo      `json:"model_info"`

	// Reasoning and personality knobs ride along in the input so the wire
	// shape stays stable; the current clients do not send them.
	Effort      string `json:"effort,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Personality string `json:"personality,omitempty"`

	WebSearchMode models.WebSearchMode `json:"web_search_mode,omitempty"`
}

// ModelCallOutput is the collected model response.
type ModelCallOutput struct {
	Items []models.ResponseItem `json:"items"`
	Usage models.TokenUsage     `json:"usage"`
}

// ModelActivities holds the provider client the model activity dispatches to.
type ModelActivities struct {
	client llm.ModelClient
}

// NewModelActivities creates a ModelActivities backed by the given client.
func NewModelActivities(client llm.ModelClient) *ModelActivities {
	return &ModelActivities{client: client}
}

// ModelCall sends the prompt to the model provider and returns the output
// items. Categorized client errors become typed application errors so the
// retry policy can distinguish transient failures from fatal ones.
func (a *ModelActivities) ModelCall(ctx context.Context, input ModelCallInput) (ModelCallOutput, error) {
	stop := heartbeatEvery(ctx, heartbeatInterval)
	defer stop()

	response, err := a.client.Call(ctx, llm.ModelRequest{
		ConversationID:    input.ConversationID,
		Model:             input.Model,
		Instructions:      input.Instructions,
		Input:             input.Input,
		Tools:             input.Tools,
		ParallelToolCalls: input.ParallelToolCalls,
		WebSearchMode:     input.WebSearchMode,
	})
	if err != nil {
		var activityErr *models.ActivityError
		if errors.As(err, &activityErr) {
			return ModelCallOutput{}, models.WrapActivityError(activityErr)
		}
		return ModelCallOutput{}, err
	}

	return ModelCallOutput{
		Items: response.Items,
		Usage: response.Usage,
	}, nil
}
