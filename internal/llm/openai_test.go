package llm

import (
	"errors"
	"testing"

	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// inputKind reports which variant of an input item union is populated. The
// SDK's union types carry one pointer per variant.
func inputKind(t *testing.T, item responses.ResponseInputItemUnionParam) string {
	t.Helper()
	switch {
	case item.OfMessage != nil:
		return "message"
	case item.OfOutputMessage != nil:
		return "output_message"
	case item.OfFunctionCall != nil:
		return "function_call"
	case item.OfFunctionCallOutput != nil:
		return "function_call_output"
	default:
		t.Fatal("input item has no recognized variant set")
		return ""
	}
}

func TestBuildResponsesInput_UserMessage(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		models.UserMessage("hello"),
	})

	require.Len(t, items, 1)
	require.NotNil(t, items[0].OfMessage)
	assert.Equal(t, responses.EasyInputMessageRoleUser, items[0].OfMessage.Role)
	assert.Equal(t, "hello", items[0].OfMessage.Content.OfString.Value)
}

func TestBuildResponsesInput_AssistantMessage(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		models.AssistantMessage("I'll run that now."),
	})

	require.Len(t, items, 1)
	msg := items[0].OfOutputMessage
	require.NotNil(t, msg)
	require.Len(t, msg.Content, 1)
	require.NotNil(t, msg.Content[0].OfOutputText)
	assert.Equal(t, "I'll run that now.", msg.Content[0].OfOutputText.Text)
	assert.Equal(t, responses.ResponseOutputMessageStatusCompleted, msg.Status)
}

func TestBuildResponsesInput_FunctionCall(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		{
			Type:      models.ItemTypeFunctionCall,
			CallID:    "call-1",
			Name:      "shell",
			Arguments: `{"command":["ls"]}`,
		},
	})

	require.Len(t, items, 1)
	call := items[0].OfFunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "call-1", call.CallID)
	assert.Equal(t, "shell", call.Name)
	assert.Equal(t, `{"command":["ls"]}`, call.Arguments)
}

func TestBuildResponsesInput_FunctionCallOutput(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		models.FunctionCallOutput("call-1", `{"output":"file.txt"}`, true),
	})

	require.Len(t, items, 1)
	require.NotNil(t, items[0].OfFunctionCallOutput)
	assert.Equal(t, "call-1", items[0].OfFunctionCallOutput.CallID)
}

func TestBuildResponsesInput_NilOutputPayload(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		{Type: models.ItemTypeFunctionCallOutput, CallID: "call-1"},
	})

	require.Len(t, items, 1)
	require.NotNil(t, items[0].OfFunctionCallOutput)
	assert.Equal(t, "call-1", items[0].OfFunctionCallOutput.CallID)
}

func TestBuildResponsesInput_FullConversation(t *testing.T) {
	items := buildResponsesInput([]models.ResponseItem{
		models.UserMessage("list the files"),
		models.AssistantMessage("Running ls."),
		{Type: models.ItemTypeFunctionCall, CallID: "c1", Name: "shell", Arguments: `{"command":["ls"]}`},
		models.FunctionCallOutput("c1", "file.txt", true),
		models.AssistantMessage("There is one file."),
	})

	require.Len(t, items, 5)
	kinds := make([]string, len(items))
	for i, item := range items {
		kinds[i] = inputKind(t, item)
	}
	assert.Equal(t, []string{
		"message",
		"output_message",
		"function_call",
		"function_call_output",
		"output_message",
	}, kinds)
}

func TestBuildResponsesTools_FunctionDefinitions(t *testing.T) {
	specs := []tools.ToolSpec{
		{
			Name:        "shell",
			Description: "Execute a shell command",
			Parameters: []tools.ToolParameter{
				{Name: "command", Type: "array", Required: true, Items: "string"},
			},
		},
		{Name: "read_file", Description: "Read a file"},
	}

	defs := buildResponsesTools(specs, models.WebSearchDisabled)

	require.Len(t, defs, 2)

	require.NotNil(t, defs[0].OfFunction)
	assert.Equal(t, "shell", defs[0].OfFunction.Name)
	assert.Equal(t, "Execute a shell command", defs[0].OfFunction.Description.Value)
	assert.Equal(t, "object", defs[0].OfFunction.Parameters["type"])

	require.NotNil(t, defs[1].OfFunction)
	assert.Equal(t, "read_file", defs[1].OfFunction.Name)
}

func TestBuildResponsesTools_WebSearchAppended(t *testing.T) {
	specs := []tools.ToolSpec{{Name: "shell"}}

	for _, mode := range []models.WebSearchMode{models.WebSearchLive, models.WebSearchCached} {
		defs := buildResponsesTools(specs, mode)
		require.Len(t, defs, 2, "mode %q", mode)
		ws := defs[1].OfWebSearch
		require.NotNil(t, ws, "mode %q", mode)
		assert.Equal(t, responses.WebSearchToolTypeWebSearch, ws.Type)
	}

	defs := buildResponsesTools(specs, models.WebSearchDisabled)
	require.Len(t, defs, 1)
	assert.Nil(t, defs[0].OfWebSearch)
}

func TestBuildResponsesTools_Empty(t *testing.T) {
	assert.Empty(t, buildResponsesTools(nil, models.WebSearchDisabled))
}

func TestParseResponsesOutput_Message(t *testing.T) {
	resp := &responses.Response{
		Output: []responses.ResponseOutputItemUnion{
			{
				Type: "message",
				Content: []responses.ResponseOutputMessageContentUnion{
					{Type: "output_text", Text: "Hello, "},
					{Type: "output_text", Text: "world."},
				},
			},
		},
	}

	items := parseResponsesOutput(resp)

	require.Len(t, items, 1)
	assert.Equal(t, models.ItemTypeMessage, items[0].Type)
	assert.Equal(t, models.RoleAssistant, items[0].Role)
	assert.Equal(t, "Hello, world.", items[0].Content)
}

func TestParseResponsesOutput_FunctionCall(t *testing.T) {
	resp := &responses.Response{
		Output: []responses.ResponseOutputItemUnion{
			{
				Type:      "function_call",
				CallID:    "call-9",
				Name:      "shell",
				Arguments: `{"command":["pwd"]}`,
			},
		},
	}

	items := parseResponsesOutput(resp)

	require.Len(t, items, 1)
	assert.Equal(t, models.ItemTypeFunctionCall, items[0].Type)
	assert.Equal(t, "call-9", items[0].CallID)
	assert.Equal(t, "shell", items[0].Name)
	assert.Equal(t, `{"command":["pwd"]}`, items[0].Arguments)
}

func TestParseResponsesOutput_MessageThenCalls(t *testing.T) {
	resp := &responses.Response{
		Output: []responses.ResponseOutputItemUnion{
			{
				Type: "message",
				Content: []responses.ResponseOutputMessageContentUnion{
					{Type: "output_text", Text: "Checking two places."},
				},
			},
			{Type: "function_call", CallID: "c1", Name: "shell", Arguments: `{}`},
			{Type: "function_call", CallID: "c2", Name: "read_file", Arguments: `{}`},
		},
	}

	items := parseResponsesOutput(resp)

	require.Len(t, items, 3)
	assert.Equal(t, models.ItemTypeMessage, items[0].Type)
	assert.Equal(t, "c1", items[1].CallID)
	assert.Equal(t, "c2", items[2].CallID)
}

func TestParseResponsesOutput_EmptyFallsBackToEmptyMessage(t *testing.T) {
	items := parseResponsesOutput(&responses.Response{})

	require.Len(t, items, 1)
	assert.Equal(t, models.ItemTypeMessage, items[0].Type)
	assert.Equal(t, models.RoleAssistant, items[0].Role)
	assert.Equal(t, "", items[0].Content)
}

func TestParseResponsesOutput_IgnoresUnknownTypes(t *testing.T) {
	resp := &responses.Response{
		Output: []responses.ResponseOutputItemUnion{
			{Type: "reasoning"},
			{Type: "function_call", CallID: "c1", Name: "shell", Arguments: `{}`},
		},
	}

	items := parseResponsesOutput(resp)

	require.Len(t, items, 1)
	assert.Equal(t, models.ItemTypeFunctionCall, items[0].Type)
}

func TestClassifyOpenAIError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		errType models.ErrorType
	}{
		{
			"context overflow",
			errors.New("This model's maximum context length is 128000 tokens"),
			models.ErrorTypeContextOverflow,
		},
		{
			"rate limit by message",
			errors.New("Rate limit reached for gpt-4o"),
			models.ErrorTypeAPILimit,
		},
		{
			"network error",
			errors.New("connection refused"),
			models.ErrorTypeTransient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyOpenAIError(tc.err)
			var actErr *models.ActivityError
			require.ErrorAs(t, err, &actErr)
			assert.Equal(t, tc.errType, actErr.Type)
		})
	}
}
