package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// OpenAIClient implements ModelClient against the OpenAI Responses API.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a client from OPENAI_API_KEY, or from
// OPENAI_BEARER_TOKEN when set (account tokens that are not API keys).
// OPENAI_BASE_URL is honored for proxies and API-compatible endpoints.
func NewOpenAIClient() *OpenAIClient {
	var opts []option.RequestOption
	if token := os.Getenv("OPENAI_BEARER_TOKEN"); token != "" {
		opts = append(opts, option.WithHeader("Authorization", "Bearer "+token))
	} else {
		opts = append(opts, option.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Call sends one Responses API request carrying the full conversation and
// returns the output items in conversation form.
func (c *OpenAIClient) Call(ctx context.Context, request ModelRequest) (ModelResponse, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(request.Model.Slug),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildResponsesInput(request.Input),
		},
	}

	if request.Instructions != "" {
		params.Instructions = openai.String(request.Instructions)
	}

	if toolDefs := buildResponsesTools(request.Tools, request.WebSearchMode); len(toolDefs) > 0 {
		params.Tools = toolDefs
		params.ParallelToolCalls = openai.Bool(request.ParallelToolCalls)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return ModelResponse{}, classifyOpenAIError(err)
	}

	return ModelResponse{
		Items: parseResponsesOutput(resp),
		Usage: models.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildResponsesInput converts conversation items to Responses API input.
//
//	message (user)        -> EasyInputMessageParam
//	message (assistant)   -> ResponseOutputMessageParam, fed back as input
//	function_call         -> ResponseFunctionToolCallParam
//	function_call_output  -> function call output item
func buildResponsesInput(history []models.ResponseItem) responses.ResponseInputParam {
	items := make(responses.ResponseInputParam, 0, len(history))

	for _, item := range history {
		switch item.Type {
		case models.ItemTypeMessage:
			if item.Role == models.RoleAssistant {
				items = append(items, responses.ResponseInputItemUnionParam{
					OfOutputMessage: &responses.ResponseOutputMessageParam{
						Content: []responses.ResponseOutputMessageContentUnionParam{
							{
								OfOutputText: &responses.ResponseOutputTextParam{
									Text:        item.Content,
									Annotations: []responses.ResponseOutputTextAnnotationUnionParam{},
								},
							},
						},
						Status: responses.ResponseOutputMessageStatusCompleted,
					},
				})
				continue
			}
			items = append(items, responses.ResponseInputItemUnionParam{
				OfMessage: &responses.EasyInputMessageParam{
					Role: responses.EasyInputMessageRoleUser,
					Content: responses.EasyInputMessageContentUnionParam{
						OfString: openai.String(item.Content),
					},
				},
			})

		case models.ItemTypeFunctionCall:
			items = append(items, responses.ResponseInputItemUnionParam{
				OfFunctionCall: &responses.ResponseFunctionToolCallParam{
					CallID:    item.CallID,
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})

		case models.ItemTypeFunctionCallOutput:
			content := ""
			if item.Output != nil {
				content = item.Output.Content
			}
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(item.CallID, content))
		}
	}

	return items
}

// buildResponsesTools converts the tool catalog to Responses API tool
// definitions, appending the native web_search tool when enabled.
func buildResponsesTools(specs []tools.ToolSpec, webSearch models.WebSearchMode) []responses.ToolUnionParam {
	toolDefs := make([]responses.ToolUnionParam, 0, len(specs)+1)

	for _, spec := range specs {
		toolDefs = append(toolDefs, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  schemaObject(spec),
			},
		})
	}

	if webSearch.Enabled() {
		toolDefs = append(toolDefs, responses.ToolUnionParam{
			OfWebSearch: &responses.WebSearchToolParam{
				Type: responses.WebSearchToolTypeWebSearch,
			},
		})
	}

	return toolDefs
}

// parseResponsesOutput converts Responses API output items back to
// conversation items. Reads the union's flat fields directly rather than the
// As* accessors, which depend on raw-JSON state absent in tests.
func parseResponsesOutput(resp *responses.Response) []models.ResponseItem {
	var items []models.ResponseItem

	for _, outputItem := range resp.Output {
		switch outputItem.Type {
		case "message":
			var text string
			for _, content := range outputItem.Content {
				if content.Type == "output_text" {
					text += content.Text
				}
			}
			if text != "" {
				items = append(items, models.AssistantMessage(text))
			}

		case "function_call":
			items = append(items, models.ResponseItem{
				Type:      models.ItemTypeFunctionCall,
				CallID:    outputItem.CallID,
				Name:      outputItem.Name,
				Arguments: outputItem.Arguments,
			})
		}
	}

	// A response with no usable output still advances the loop.
	if len(items) == 0 {
		items = append(items, models.AssistantMessage(""))
	}

	return items
}

// classifyOpenAIError categorizes an API error by status code when the typed
// error is available, falling back to message heuristics.
func classifyOpenAIError(err error) error {
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "context_length") || strings.Contains(errMsg, "maximum context length") {
		return models.NewContextOverflowError(err.Error())
	}

	if apiErr, ok := err.(*openai.Error); ok {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "rate limit") {
		return models.NewAPILimitError(err.Error())
	}
	return models.NewTransientError(fmt.Sprintf("OpenAI API error: %v", err))
}
