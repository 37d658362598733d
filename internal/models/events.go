package models

// EventType discriminates the variants of EventMsg.
type EventType string

const (
	EventTurnStarted         EventType = "turn_started"
	EventTurnComplete        EventType = "turn_complete"
	EventExecApprovalRequest EventType = "exec_approval_request"
	EventAgentMessage        EventType = "agent_message"
	EventAgentMessageDelta   EventType = "agent_message_delta"
	EventError               EventType = "error"
	EventShutdownComplete    EventType = "shutdown_complete"
)

// EventMsg is the payload of an Event. Fields are populated per Type:
//
//	turn_started:          TurnID, ModelContextWindow?, CollaborationModeKind
//	turn_complete:         TurnID, LastAgentMessage?
//	exec_approval_request: CallID, TurnID, Command, Cwd, Reason?
//	agent_message:         Text
//	agent_message_delta:   Delta
//	error:                 Message
//	shutdown_complete:     (no fields)
//
// The JSON form is the stable wire format returned by the get_events_since
// query; new variants may be added but existing fields never change meaning.
type EventMsg struct {
	Type EventType `json:"type"`

	TurnID                string  `json:"turn_id,omitempty"`
	ModelContextWindow    *int    `json:"model_context_window,omitempty"`
	CollaborationModeKind string  `json:"collaboration_mode_kind,omitempty"`
	LastAgentMessage      *string `json:"last_agent_message,omitempty"`

	CallID  string   `json:"call_id,omitempty"`
	Command []string `json:"command,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
	Reason  string   `json:"reason,omitempty"`

	Text    string `json:"text,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Message string `json:"message,omitempty"`
}

// Event is a single entry of the workflow's event stream. ID is unique within
// one workflow run.
type Event struct {
	ID  string   `json:"id"`
	Msg EventMsg `json:"msg"`
}

// TurnStartedMsg builds a turn_started payload.
func TurnStartedMsg(turnID string, contextWindow *int) EventMsg {
	return EventMsg{Type: EventTurnStarted, TurnID: turnID, ModelContextWindow: contextWindow}
}

// TurnCompleteMsg builds a turn_complete payload.
func TurnCompleteMsg(turnID string, lastAgentMessage *string) EventMsg {
	return EventMsg{Type: EventTurnComplete, TurnID: turnID, LastAgentMessage: lastAgentMessage}
}

// ExecApprovalRequestMsg builds an exec_approval_request payload.
func ExecApprovalRequestMsg(callID, turnID string, command []string, cwd, reason string) EventMsg {
	return EventMsg{
		Type:    EventExecApprovalRequest,
		CallID:  callID,
		TurnID:  turnID,
		Command: command,
		Cwd:     cwd,
		Reason:  reason,
	}
}

// AgentMessageMsg builds an agent_message payload.
func AgentMessageMsg(text string) EventMsg {
	return EventMsg{Type: EventAgentMessage, Text: text}
}

// ErrorMsg builds an error payload.
func ErrorMsg(message string) EventMsg {
	return EventMsg{Type: EventError, Message: message}
}

// ShutdownCompleteMsg builds a shutdown_complete payload.
func ShutdownCompleteMsg() EventMsg {
	return EventMsg{Type: EventShutdownComplete}
}
