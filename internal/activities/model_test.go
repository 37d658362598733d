package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/mfateev/codex-temporal/internal/llm"
	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// fakeModelClient returns a canned response and records the request it saw.
type fakeModelClient struct {
	response    llm.ModelResponse
	err         error
	lastRequest llm.ModelRequest
}

func (f *fakeModelClient) Call(ctx context.Context, request llm.ModelRequest) (llm.ModelResponse, error) {
	f.lastRequest = request
	if f.err != nil {
		return llm.ModelResponse{}, f.err
	}
	return f.response, nil
}

func modelTestEnv(t *testing.T, client llm.ModelClient) *testsuite.TestActivityEnvironment {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	a := NewModelActivities(client)
	env.RegisterActivityWithOptions(a.ModelCall, activity.RegisterOptions{Name: ModelCallActivityName})
	return env
}

func TestModelCall_ReturnsItems(t *testing.T) {
	fake := &fakeModelClient{
		response: llm.ModelResponse{
			Items: []models.ResponseItem{
				models.AssistantMessage("All done."),
			},
			Usage: models.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
		},
	}
	env := modelTestEnv(t, fake)

	input := ModelCallInput{
		ConversationID: "conv-1",
		Input:          []models.ResponseItem{models.UserMessage("hi")},
		Tools:          []tools.ToolSpec{{Name: "shell"}},
		Instructions:   "be brief",
		Model:          models.NewModelInfo("gpt-4o"),
	}

	future, err := env.ExecuteActivity(ModelCallActivityName, input)
	require.NoError(t, err)

	var output ModelCallOutput
	require.NoError(t, future.Get(&output))

	require.Len(t, output.Items, 1)
	assert.Equal(t, "All done.", output.Items[0].Content)
	assert.Equal(t, 15, output.Usage.TotalTokens)

	assert.Equal(t, "conv-1", fake.lastRequest.ConversationID)
	assert.Equal(t, "gpt-4o", fake.lastRequest.Model.Slug)
	assert.Equal(t, "be brief", fake.lastRequest.Instructions)
	require.Len(t, fake.lastRequest.Tools, 1)
}

func TestModelCall_FatalErrorIsNonRetryable(t *testing.T) {
	fake := &fakeModelClient{err: models.NewFatalError("bad request")}
	env := modelTestEnv(t, fake)

	_, err := env.ExecuteActivity(ModelCallActivityName, ModelCallInput{
		Model: models.NewModelInfo("gpt-4o"),
	})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Fatal", appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestModelCall_TransientErrorIsRetryable(t *testing.T) {
	fake := &fakeModelClient{err: models.NewTransientError("connection reset")}
	env := modelTestEnv(t, fake)

	_, err := env.ExecuteActivity(ModelCallActivityName, ModelCallInput{
		Model: models.NewModelInfo("gpt-4o"),
	})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Transient", appErr.Type())
	assert.False(t, appErr.NonRetryable())
}

func TestModelCall_PlainErrorPassesThrough(t *testing.T) {
	fake := &fakeModelClient{err: errors.New("unexpected")}
	env := modelTestEnv(t, fake)

	_, err := env.ExecuteActivity(ModelCallActivityName, ModelCallInput{
		Model: models.NewModelInfo("gpt-4o"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")
}
