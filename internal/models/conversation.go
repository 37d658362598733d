// Package models contains the protocol value types shared by the workflow,
// the activities, the session adapter, and the UI. Everything here is a plain
// JSON-serializable value; the workflow engine records these types in history,
// so their wire form must stay stable.
package models

import "encoding/json"

// ResponseItemType discriminates the variants of ResponseItem.
type ResponseItemType string

const (
	ItemTypeMessage            ResponseItemType = "message"
	ItemTypeFunctionCall       ResponseItemType = "function_call"
	ItemTypeFunctionCallOutput ResponseItemType = "function_call_output"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FunctionCallOutputPayload is the body of a function_call_output item.
// Success is a tri-state: nil means the handler did not report an outcome.
type FunctionCallOutputPayload struct {
	Content string `json:"content"`
	Success *bool  `json:"success,omitempty"`
}

// ResponseItem is one entry of the conversation history and the unit
// exchanged with the model API. Different fields are populated depending
// on Type:
//
//	message:              Role, Content
//	function_call:        CallID, Name, Arguments
//	function_call_output: CallID, Output
type ResponseItem struct {
	Type ResponseItemType `json:"type"`

	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // raw JSON string

	Output *FunctionCallOutputPayload `json:"output,omitempty"`
}

// UserMessage builds a user message item.
func UserMessage(content string) ResponseItem {
	return ResponseItem{Type: ItemTypeMessage, Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message item.
func AssistantMessage(content string) ResponseItem {
	return ResponseItem{Type: ItemTypeMessage, Role: RoleAssistant, Content: content}
}

// FunctionCallOutput builds a function_call_output item for the given call.
func FunctionCallOutput(callID, content string, success bool) ResponseItem {
	ok := success
	return ResponseItem{
		Type:   ItemTypeFunctionCallOutput,
		CallID: callID,
		Output: &FunctionCallOutputPayload{Content: content, Success: &ok},
	}
}

// ToolOutputMetadata accompanies tool output sent back to the model.
type ToolOutputMetadata struct {
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ToolOutputBody is the envelope serialized into a function_call_output's
// content: the tool's textual output plus execution metadata.
type ToolOutputBody struct {
	Output   string             `json:"output"`
	Metadata ToolOutputMetadata `json:"metadata"`
}

// ToolCallOutput builds the function_call_output item for a finished tool
// call. Success mirrors a zero exit code.
func ToolCallOutput(callID, output string, exitCode int, durationSeconds float64) ResponseItem {
	body, err := json.Marshal(ToolOutputBody{
		Output:   output,
		Metadata: ToolOutputMetadata{ExitCode: exitCode, DurationSeconds: durationSeconds},
	})
	if err != nil {
		// Marshaling two strings and two numbers cannot fail.
		body = []byte(`{"output":"","metadata":{"exit_code":1,"duration_seconds":0}}`)
	}
	return FunctionCallOutput(callID, string(body), exitCode == 0)
}

// IsFunctionCall reports whether the item is a tool invocation request.
func (r ResponseItem) IsFunctionCall() bool {
	return r.Type == ItemTypeFunctionCall
}

// LastAssistantMessage returns the content of the last assistant message in
// items, or nil when there is none.
func LastAssistantMessage(items []ResponseItem) *string {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Type == ItemTypeMessage && items[i].Role == RoleAssistant {
			content := items[i].Content
			return &content
		}
	}
	return nil
}

// TokenUsage tracks token consumption of a single model call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
