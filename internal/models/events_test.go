package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONShape(t *testing.T) {
	msg := "done"
	ev := Event{
		ID:  "ev-1",
		Msg: TurnCompleteMsg("turn-0", &msg),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	// The wire form is load-bearing: clients match on these exact keys.
	assert.JSONEq(t, `{
		"id": "ev-1",
		"msg": {"type": "turn_complete", "turn_id": "turn-0", "last_agent_message": "done"}
	}`, string(data))
}

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		{ID: "ev-0", Msg: TurnStartedMsg("turn-0", nil)},
		{ID: "ev-1", Msg: ExecApprovalRequestMsg("call-1", "turn-0", []string{"echo", "hi"}, "/tmp", "")},
		{ID: "ev-2", Msg: AgentMessageMsg("hello")},
		{ID: "ev-3", Msg: ErrorMsg("boom")},
		{ID: "ev-4", Msg: ShutdownCompleteMsg()},
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		require.NoError(t, err)
		var back Event
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, ev, back)
	}
}

func TestExecApprovalRequestPreservesCommandOrder(t *testing.T) {
	cmd := []string{"echo", "hello world"}
	ev := Event{ID: "ev-9", Msg: ExecApprovalRequestMsg("call-9", "turn-2", cmd, "/tmp", "")}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	var back Event
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, cmd, back.Msg.Command)
	assert.Equal(t, "call-9", back.Msg.CallID)
}

func TestTurnCompleteWithoutMessageOmitsField(t *testing.T) {
	data, err := json.Marshal(TurnCompleteMsg("turn-1", nil))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_agent_message")
}

func TestLastAssistantMessage(t *testing.T) {
	items := []ResponseItem{
		UserMessage("hi"),
		AssistantMessage("first"),
		{Type: ItemTypeFunctionCall, CallID: "c1", Name: "shell", Arguments: "{}"},
		FunctionCallOutput("c1", "ok", true),
		AssistantMessage("second"),
	}

	got := LastAssistantMessage(items)
	require.NotNil(t, got)
	assert.Equal(t, "second", *got)

	assert.Nil(t, LastAssistantMessage([]ResponseItem{UserMessage("hi")}))
	assert.Nil(t, LastAssistantMessage(nil))
}
