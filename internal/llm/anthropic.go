package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/tools"
)

// defaultMaxTokens is used because the Messages API requires an explicit
// completion budget while nothing in the conversation protocol carries one.
const defaultMaxTokens = 8192

// AnthropicClient implements ModelClient against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a client from ANTHROPIC_API_KEY.
func NewAnthropicClient() *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY"))),
	}
}

// Call sends one Messages API request carrying the full conversation.
func (c *AnthropicClient) Call(ctx context.Context, request ModelRequest) (ModelResponse, error) {
	messages, err := buildAnthropicMessages(request.Input)
	if err != nil {
		return ModelResponse{}, models.NewFatalError(fmt.Sprintf("failed to build messages: %v", err))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model.Slug),
		MaxTokens: defaultMaxTokens,
		Messages:  messages,
	}

	if request.Instructions != "" {
		params.System = buildSystemBlocks(request.Instructions)
	}

	if len(request.Tools) > 0 {
		params.Tools = buildAnthropicTools(request.Tools)
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return ModelResponse{}, classifyAnthropicError(err)
	}

	return ModelResponse{
		Items: parseAnthropicResponse(response),
		Usage: models.TokenUsage{
			PromptTokens:     int(response.Usage.InputTokens),
			CompletionTokens: int(response.Usage.OutputTokens),
			TotalTokens:      int(response.Usage.InputTokens + response.Usage.OutputTokens),
		},
	}, nil
}

// buildSystemBlocks wraps the instructions in a cacheable system block.
// Instructions repeat verbatim on every iteration of the loop, which is
// exactly the shape prompt caching pays off for.
func buildSystemBlocks(instructions string) []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{{
		Text: instructions,
		CacheControl: anthropic.CacheControlEphemeralParam{
			TTL: anthropic.CacheControlEphemeralTTLTTL5m,
		},
	}}
}

// buildAnthropicMessages converts conversation items to Messages API form.
//
// The Messages API differs from the Responses API in two ways that matter
// here: tool calls are content blocks inside assistant messages, and tool
// results are content blocks inside user messages.
func buildAnthropicMessages(history []models.ResponseItem) ([]anthropic.MessageParam, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))

	i := 0
	for i < len(history) {
		item := history[i]

		switch {
		case item.Type == models.ItemTypeMessage && item.Role == models.RoleUser:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: item.Content},
				}},
			})
			i++

		case item.Type == models.ItemTypeMessage && item.Role == models.RoleAssistant:
			// Fold any directly following tool calls into this message.
			content := make([]anthropic.ContentBlockParamUnion, 0, 1)
			if item.Content != "" {
				content = append(content, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: item.Content},
				})
			}

			j := i + 1
			for j < len(history) && history[j].Type == models.ItemTypeFunctionCall {
				block, err := toolUseBlock(history[j])
				if err != nil {
					return nil, err
				}
				content = append(content, block)
				j++
			}

			if len(content) > 0 {
				messages = append(messages, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: content,
				})
			}
			i = j

		case item.Type == models.ItemTypeFunctionCall:
			// Tool calls without a preceding assistant message still need an
			// assistant wrapper.
			content := make([]anthropic.ContentBlockParamUnion, 0, 1)

			j := i
			for j < len(history) && history[j].Type == models.ItemTypeFunctionCall {
				block, err := toolUseBlock(history[j])
				if err != nil {
					return nil, err
				}
				content = append(content, block)
				j++
			}

			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: content,
			})
			i = j

		case item.Type == models.ItemTypeFunctionCallOutput:
			// Tool results ride in a user message.
			isError := item.Output != nil && item.Output.Success != nil && !*item.Output.Success
			text := ""
			if item.Output != nil {
				text = item.Output.Content
			}

			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: item.CallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: text},
						}},
						IsError: anthropic.Bool(isError),
					},
				}},
			})
			i++

		default:
			i++
		}
	}

	return messages, nil
}

// toolUseBlock converts a function_call item to a tool_use content block.
func toolUseBlock(item models.ResponseItem) (anthropic.ContentBlockParamUnion, error) {
	input := map[string]any{}
	if strings.TrimSpace(item.Arguments) != "" {
		if err := json.Unmarshal([]byte(item.Arguments), &input); err != nil {
			return anthropic.ContentBlockParamUnion{}, fmt.Errorf("failed to parse tool arguments for %s: %w", item.CallID, err)
		}
	}

	return anthropic.ContentBlockParamUnion{
		OfToolUse: &anthropic.ToolUseBlockParam{
			ID:    item.CallID,
			Name:  item.Name,
			Input: input,
		},
	}, nil
}

// buildAnthropicTools converts the tool catalog to Messages API tool
// definitions.
func buildAnthropicTools(specs []tools.ToolSpec) []anthropic.ToolUnionParam {
	toolDefs := make([]anthropic.ToolUnionParam, 0, len(specs))

	for _, spec := range specs {
		schema := schemaObject(spec)

		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
		}
		if required := requiredList(schema); len(required) > 0 {
			inputSchema.Required = required
		}

		toolDefs = append(toolDefs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: inputSchema,
			},
		})
	}

	return toolDefs
}

// parseAnthropicResponse converts a Messages API response to conversation
// items. Reads the content union's flat fields directly rather than the As*
// accessors, which depend on raw-JSON state absent in tests.
func parseAnthropicResponse(response *anthropic.Message) []models.ResponseItem {
	var items []models.ResponseItem

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				items = append(items, models.AssistantMessage(block.Text))
			}

		case "tool_use":
			argsJSON, err := json.Marshal(block.Input)
			if err != nil {
				argsJSON = []byte("{}")
			}
			items = append(items, models.ResponseItem{
				Type:      models.ItemTypeFunctionCall,
				CallID:    block.ID,
				Name:      block.Name,
				Arguments: string(argsJSON),
			})
		}
	}

	if len(items) == 0 {
		items = append(items, models.AssistantMessage(""))
	}

	return items
}

// classifyAnthropicError categorizes an API error by status code when the
// typed error is available, falling back to message heuristics.
func classifyAnthropicError(err error) error {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "context_length") || strings.Contains(errMsg, "too many tokens") {
		return models.NewContextOverflowError(err.Error())
	}

	if apiErr, ok := err.(*anthropic.Error); ok {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "rate limit") {
		return models.NewAPILimitError(err.Error())
	}
	return models.NewTransientError(fmt.Sprintf("Anthropic API error: %v", err))
}
