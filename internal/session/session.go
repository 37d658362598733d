// Package session adapts a running CodexWorkflow into a blocking
// submit/next-event API. Clients push operations through Submit and pull the
// ordered event stream through NextEvent; underneath, operations become
// signals and the event stream is assembled by polling the get_events_since
// query with a watermark.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/workflow"
)

// Polling backoff for the event query. Starts snappy so interactive turns
// feel live, doubles up to the cap while the model is thinking.
const (
	initialPollInterval = 50 * time.Millisecond
	maxPollInterval     = 500 * time.Millisecond
)

// maxQueryFailures is how many consecutive query errors NextEvent tolerates
// before giving up on the stream.
const maxQueryFailures = 5

// SubmissionIgnored is returned by Submit for operations that are accepted
// but have no effect (interrupt, unknown types).
const SubmissionIgnored = "ignored"

// ErrSessionClosed is returned once the session has delivered its
// shutdown_complete event (or been shut down before starting).
var ErrSessionClosed = errors.New("session closed")

// ErrNotStarted is returned by operations that need a running workflow
// before the first user turn has been submitted.
var ErrNotStarted = errors.New("session not started")

// temporalClient is the slice of client.Client the adapter needs. Narrowed
// so tests can drive the adapter without a server.
type temporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

// TemporalAgentSession is one client's view of one agent workflow. It is
// safe for concurrent use by a submitter and an event-pump goroutine.
//
// The first user_turn submission starts the workflow with the message as its
// seed turn; later ones are delivered as signals with client-assigned turn
// IDs. NextEvent returns events in emission order, exactly once.
type TemporalAgentSession struct {
	client     temporalClient
	workflowID string
	taskQueue  string
	attached   bool
	base       workflow.CodexWorkflowInput

	mu        sync.Mutex
	started   bool
	turnSeq   int
	watermark int
	buffer    []models.Event
	shutdown  bool
	closed    bool
}

// New creates a session for workflowID. The base input supplies everything
// except the seed message, which comes from the first user turn.
func New(c client.Client, workflowID string, base workflow.CodexWorkflowInput) *TemporalAgentSession {
	return newSession(c, workflowID, base)
}

// Attach joins an already-running workflow instead of starting a new one.
// The event stream replays from the beginning, so an attaching client sees
// the whole conversation so far. Its turn IDs carry a random component so
// they cannot collide with IDs assigned by the client that started the
// session.
func Attach(c client.Client, workflowID string) *TemporalAgentSession {
	return attachSession(c, workflowID)
}

func attachSession(c temporalClient, workflowID string) *TemporalAgentSession {
	s := newSession(c, workflowID, workflow.CodexWorkflowInput{})
	s.started = true
	s.attached = true
	return s
}

func newSession(c temporalClient, workflowID string, base workflow.CodexWorkflowInput) *TemporalAgentSession {
	return &TemporalAgentSession{
		client:     c,
		workflowID: workflowID,
		taskQueue:  workflow.TaskQueue,
		base:       base,
	}
}

// WorkflowID returns the session's workflow ID.
func (s *TemporalAgentSession) WorkflowID() string {
	return s.workflowID
}

// Submit sends one operation to the workflow. It returns the turn ID for
// user turns and a fresh submission ID for everything else; interrupt and
// unknown operations are logged and reported as SubmissionIgnored.
func (s *TemporalAgentSession) Submit(ctx context.Context, op models.Op) (string, error) {
	switch op.Type {
	case models.OpUserTurn:
		return s.submitUserTurn(ctx, op.Text)
	case models.OpExecApproval:
		return s.submitApproval(ctx, op.CallID, op.Decision.Approved())
	case models.OpShutdown:
		return s.submitShutdown(ctx)
	case models.OpInterrupt:
		log.Printf("session: interrupt is not supported yet, ignoring")
		return SubmissionIgnored, nil
	default:
		log.Printf("session: ignoring unsupported op %q", op.Type)
		return SubmissionIgnored, nil
	}
}

func (s *TemporalAgentSession) submitUserTurn(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrSessionClosed
	}

	if !s.started {
		input := s.base
		input.UserMessage = text
		_, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        s.workflowID,
			TaskQueue: s.taskQueue,
		}, workflow.WorkflowName, input)
		if err != nil {
			return "", fmt.Errorf("failed to start workflow: %w", err)
		}
		s.started = true
		s.turnSeq = 1
		return "turn-0", nil
	}

	turnID := fmt.Sprintf("turn-%d", s.turnSeq)
	if s.attached {
		turnID = "turn-" + uuid.NewString()[:8]
	}
	err := s.client.SignalWorkflow(ctx, s.workflowID, "",
		workflow.SignalReceiveUserTurn, workflow.UserTurnInput{TurnID: turnID, Message: text})
	if err != nil {
		return "", fmt.Errorf("failed to send user turn: %w", err)
	}
	s.turnSeq++
	return turnID, nil
}

func (s *TemporalAgentSession) submitApproval(ctx context.Context, callID string, approved bool) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if !s.started {
		s.mu.Unlock()
		return "", ErrNotStarted
	}
	s.mu.Unlock()

	err := s.client.SignalWorkflow(ctx, s.workflowID, "",
		workflow.SignalReceiveApproval, workflow.ApprovalInput{CallID: callID, Approved: approved})
	if err != nil {
		return "", fmt.Errorf("failed to send approval: %w", err)
	}
	return uuid.NewString(), nil
}

func (s *TemporalAgentSession) submitShutdown(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if !s.started {
		// Nothing is running; close locally so pollers stop.
		s.closed = true
		s.mu.Unlock()
		return uuid.NewString(), nil
	}
	s.shutdown = true
	s.mu.Unlock()

	err := s.client.SignalWorkflow(ctx, s.workflowID, "", workflow.SignalRequestShutdown, nil)
	if err != nil {
		return "", fmt.Errorf("failed to send shutdown: %w", err)
	}
	return uuid.NewString(), nil
}

// NextEvent blocks until the next event is available and returns it. Events
// come back in emission order, each exactly once. After the
// shutdown_complete event has been delivered every further call returns
// ErrSessionClosed.
//
// Transient query failures are retried with backoff. When the workflow is
// gone (or failures persist) after a shutdown was requested, a synthetic
// shutdown_complete is delivered so clients always observe closure.
func (s *TemporalAgentSession) NextEvent(ctx context.Context) (models.Event, error) {
	interval := initialPollInterval
	failures := 0

	for {
		ev, ok, err := s.nextBuffered(ctx)
		if err != nil || ok {
			return ev, err
		}

		buffered, failed, terminal := s.pollOnce(ctx)
		switch {
		case failed:
			failures++
			if terminal || failures >= maxQueryFailures {
				return s.concludeStream(terminal)
			}
		case buffered:
			failures = 0
			continue // deliver what the poll found without sleeping
		default:
			failures = 0
		}

		select {
		case <-ctx.Done():
			return models.Event{}, ctx.Err()
		case <-time.After(interval):
		}
		if interval *= 2; interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

// nextBuffered pops the head of the buffer if there is one, and reports
// stream-state errors.
func (s *TemporalAgentSession) nextBuffered(ctx context.Context) (models.Event, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) > 0 {
		ev := s.buffer[0]
		s.buffer = s.buffer[1:]
		if ev.Msg.Type == models.EventShutdownComplete {
			s.closed = true
		}
		return ev, true, nil
	}
	if s.closed {
		return models.Event{}, false, ErrSessionClosed
	}
	if !s.started {
		return models.Event{}, false, ErrNotStarted
	}
	return models.Event{}, false, nil
}

// pollOnce runs one get_events_since query and buffers the results.
// It reports whether anything was buffered, whether the query failed, and
// whether the failure is terminal (workflow gone rather than flaky).
func (s *TemporalAgentSession) pollOnce(ctx context.Context) (buffered, failed, terminal bool) {
	s.mu.Lock()
	from := s.watermark
	s.mu.Unlock()

	val, err := s.client.QueryWorkflow(ctx, s.workflowID, "", workflow.QueryGetEventsSince, from)
	if err != nil {
		var notFound *serviceerror.NotFound
		return false, true, errors.As(err, &notFound)
	}
	var page workflow.EventsPage
	if err := val.Get(&page); err != nil {
		log.Printf("session: undecodable query result: %v", err)
		return false, true, false
	}

	events := make([]models.Event, 0, len(page.Events))
	for _, raw := range page.Events {
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Protocol violation from a newer worker; skip the event
			// rather than wedging the stream.
			log.Printf("session: skipping undecodable event: %v", err)
			continue
		}
		events = append(events, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if page.Watermark > s.watermark {
		s.watermark = page.Watermark
		s.buffer = append(s.buffer, events...)
	}
	return len(events) > 0, false, false
}

// concludeStream ends a stream whose query no longer answers. If shutdown
// was requested the closure is expected: synthesize the shutdown_complete
// the client is waiting for. Otherwise surface the failure.
func (s *TemporalAgentSession) concludeStream(terminal bool) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		s.closed = true
		return models.Event{ID: uuid.NewString(), Msg: models.ShutdownCompleteMsg()}, nil
	}
	if terminal {
		return models.Event{}, fmt.Errorf("session workflow %s no longer exists", s.workflowID)
	}
	return models.Event{}, fmt.Errorf("session event query kept failing for workflow %s", s.workflowID)
}
