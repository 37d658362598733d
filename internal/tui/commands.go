package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/session"
)

const submitTimeout = 30 * time.Second

// AgentSession is the slice of the session adapter the TUI drives.
// *session.TemporalAgentSession satisfies it.
type AgentSession interface {
	Submit(ctx context.Context, op models.Op) (string, error)
	NextEvent(ctx context.Context) (models.Event, error)
	WorkflowID() string
}

// submitTurnCmd submits a user turn (starting the workflow if this is the
// first one).
func submitTurnCmd(s AgentSession, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		turnID, err := s.Submit(ctx, models.Op{Type: models.OpUserTurn, Text: text})
		if err != nil {
			return TurnErrorMsg{Err: err}
		}
		return TurnSubmittedMsg{TurnID: turnID}
	}
}

// submitApprovalCmd delivers an approval decision for a pending tool call.
func submitApprovalCmd(s AgentSession, callID string, decision models.ReviewDecision) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		_, err := s.Submit(ctx, models.Op{
			Type:     models.OpExecApproval,
			CallID:   callID,
			Decision: decision,
		})
		if err != nil {
			return ApprovalErrorMsg{Err: err}
		}
		return ApprovalSubmittedMsg{}
	}
}

// submitShutdownCmd requests a graceful session shutdown.
func submitShutdownCmd(s AgentSession) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		if _, err := s.Submit(ctx, models.Op{Type: models.OpShutdown}); err != nil {
			return ShutdownErrorMsg{Err: err}
		}
		return ShutdownSubmittedMsg{}
	}
}

// waitForEventCmd blocks on the session's event stream and delivers the next
// event as a message. The model re-issues this command after handling each
// event, forming the pump loop.
func waitForEventCmd(ctx context.Context, s AgentSession) tea.Cmd {
	return func() tea.Msg {
		ev, err := s.NextEvent(ctx)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSessionClosed):
				return SessionClosedMsg{}
			case errors.Is(err, context.Canceled):
				return nil // pump cancelled during quit
			}
			return SessionErrorMsg{Err: err}
		}
		return SessionEventMsg{Event: ev}
	}
}
