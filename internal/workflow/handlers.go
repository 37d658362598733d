package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"
)

// registerHandlers wires the session's query handler and signal drains.
// Signals are consumed in workflow goroutines so they land in session state
// regardless of what the main loop is doing; the loop observes the state
// through workflow.Await.
func (s *sessionState) registerHandlers(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)

	// Query: get_events_since
	// Returns the marshaled events at positions [from, watermark) plus the
	// new watermark. Clients poll this instead of holding a connection.
	err := workflow.SetQueryHandler(ctx, QueryGetEventsSince, func(from int) (EventsPage, error) {
		events, watermark := s.events.EventsSince(from)
		return EventsPage{Events: events, Watermark: watermark}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register %s query handler: %w", QueryGetEventsSince, err)
	}

	// receive_user_turn: enqueues a turn for the main loop.
	userTurnCh := workflow.GetSignalChannel(ctx, SignalReceiveUserTurn)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		for {
			var turn UserTurnInput
			if !userTurnCh.Receive(gCtx, &turn) {
				return // channel closed
			}
			if s.shutdownRequested {
				logger.Warn("Dropping user turn received after shutdown request", "turn_id", turn.TurnID)
				continue
			}
			s.userTurns = append(s.userTurns, turn)
		}
	})

	// receive_approval: resolves the pending approval slot. A decision for
	// an unknown call, or a second decision for an already-resolved call, is
	// dropped; approvals are first-writer-wins.
	approvalCh := workflow.GetSignalChannel(ctx, SignalReceiveApproval)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		for {
			var in ApprovalInput
			if !approvalCh.Receive(gCtx, &in) {
				return
			}
			pending := s.pendingApproval
			if pending == nil || pending.CallID != in.CallID {
				logger.Warn("Dropping approval for unknown call", "call_id", in.CallID)
				continue
			}
			if pending.Decision != nil {
				logger.Warn("Dropping duplicate approval", "call_id", in.CallID)
				continue
			}
			decision := in.Approved
			pending.Decision = &decision
		}
	})

	// request_shutdown: flags the session to exit once the current turn
	// and queued work are done. The flag is monotonic.
	shutdownCh := workflow.GetSignalChannel(ctx, SignalRequestShutdown)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		for {
			var ignored interface{}
			if !shutdownCh.Receive(gCtx, &ignored) {
				return
			}
			s.shutdownRequested = true
		}
	})

	return nil
}
