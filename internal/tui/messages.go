package tui

import "github.com/mfateev/codex-temporal/internal/models"

// SessionEventMsg delivers one workflow event from the event pump.
type SessionEventMsg struct {
	Event models.Event
}

// SessionClosedMsg is sent when the event stream has ended normally.
type SessionClosedMsg struct{}

// SessionErrorMsg is sent when the event stream fails.
type SessionErrorMsg struct {
	Err error
}

// TurnSubmittedMsg is sent after a user turn has been accepted.
type TurnSubmittedMsg struct {
	TurnID string
}

// TurnErrorMsg is sent when submitting a user turn fails.
type TurnErrorMsg struct {
	Err error
}

// ApprovalSubmittedMsg is sent after an approval decision has been delivered.
type ApprovalSubmittedMsg struct{}

// ApprovalErrorMsg is sent when delivering an approval decision fails.
type ApprovalErrorMsg struct {
	Err error
}

// ShutdownSubmittedMsg is sent after a shutdown request has been delivered.
type ShutdownSubmittedMsg struct{}

// ShutdownErrorMsg is sent when delivering a shutdown request fails.
type ShutdownErrorMsg struct {
	Err error
}
