package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/workflow"
)

type fakeRun struct{ id string }

func (r *fakeRun) GetID() string                                 { return r.id }
func (r *fakeRun) GetRunID() string                              { return "run-1" }
func (r *fakeRun) Get(context.Context, interface{}) error       { return nil }
func (r *fakeRun) GetWithOptions(context.Context, interface{}, client.WorkflowRunGetOptions) error {
	return nil
}

// encodedPage wraps an EventsPage as the query result value.
type encodedPage struct{ page workflow.EventsPage }

func (v encodedPage) HasValue() bool { return true }
func (v encodedPage) Get(ptr interface{}) error {
	b, err := json.Marshal(v.page)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ptr)
}

type signalRecord struct {
	name string
	arg  interface{}
}

type queryResponse struct {
	page workflow.EventsPage
	err  error
}

// fakeClient scripts query responses and records everything the adapter
// sends. When the script runs out the last response repeats.
type fakeClient struct {
	mu          sync.Mutex
	startErr    error
	started     []client.StartWorkflowOptions
	startInputs []workflow.CodexWorkflowInput
	signalErr   error
	signals     []signalRecord
	queryFroms  []int
	responses   []queryResponse
}

func (f *fakeClient) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, options)
	if len(args) == 1 {
		if input, ok := args[0].(workflow.CodexWorkflowInput); ok {
			f.startInputs = append(f.startInputs, input)
		}
	}
	return &fakeRun{id: options.ID}, nil
}

func (f *fakeClient) SignalWorkflow(_ context.Context, _, _, signalName string, arg interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signals = append(f.signals, signalRecord{name: signalName, arg: arg})
	return nil
}

func (f *fakeClient) QueryWorkflow(_ context.Context, _, _, _ string, args ...interface{}) (converter.EncodedValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(args) == 1 {
		if from, ok := args[0].(int); ok {
			f.queryFroms = append(f.queryFroms, from)
		}
	}
	resp := queryResponse{}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return encodedPage{page: resp.page}, nil
}

func (f *fakeClient) recordedSignals() []signalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signalRecord(nil), f.signals...)
}

func marshalEvents(t *testing.T, events ...models.Event) []json.RawMessage {
	t.Helper()
	raw := make([]json.RawMessage, len(events))
	for i, ev := range events {
		b, err := json.Marshal(ev)
		require.NoError(t, err)
		raw[i] = b
	}
	return raw
}

func newTestSession(f *fakeClient) *TemporalAgentSession {
	return newSession(f, "codex-test", workflow.CodexWorkflowInput{
		Model:        "gpt-4o-mini",
		Instructions: "You are a helpful coding assistant.",
	})
}

func startSession(t *testing.T, s *TemporalAgentSession) {
	t.Helper()
	id, err := s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "turn-0", id)
}

func TestSubmit_FirstUserTurnStartsWorkflow(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)

	id, err := s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "turn-0", id)

	require.Len(t, f.started, 1)
	assert.Equal(t, "codex-test", f.started[0].ID)
	assert.Equal(t, workflow.TaskQueue, f.started[0].TaskQueue)
	require.Len(t, f.startInputs, 1)
	assert.Equal(t, "hello", f.startInputs[0].UserMessage)
	assert.Equal(t, "gpt-4o-mini", f.startInputs[0].Model)
	assert.Empty(t, f.recordedSignals(), "the seed turn must not also be signaled")
}

func TestSubmit_LaterUserTurnsAreSignals(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)
	startSession(t, s)

	id, err := s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "and then?"})
	require.NoError(t, err)
	assert.Equal(t, "turn-1", id)

	id, err = s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "more"})
	require.NoError(t, err)
	assert.Equal(t, "turn-2", id)

	signals := f.recordedSignals()
	require.Len(t, signals, 2)
	assert.Equal(t, workflow.SignalReceiveUserTurn, signals[0].name)
	assert.Equal(t, workflow.UserTurnInput{TurnID: "turn-1", Message: "and then?"}, signals[0].arg)
	assert.Equal(t, workflow.UserTurnInput{TurnID: "turn-2", Message: "more"}, signals[1].arg)
	assert.Len(t, f.started, 1, "only the first turn starts a workflow")
}

func TestSubmit_ApprovalNormalizesDecision(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)
	startSession(t, s)

	id, err := s.Submit(context.Background(), models.Op{
		Type: models.OpExecApproval, CallID: "call-1", Decision: models.DecisionApprovedForSession,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, SubmissionIgnored, id)

	_, err = s.Submit(context.Background(), models.Op{
		Type: models.OpExecApproval, CallID: "call-2", Decision: models.DecisionDenied,
	})
	require.NoError(t, err)

	signals := f.recordedSignals()
	require.Len(t, signals, 2)
	assert.Equal(t, workflow.SignalReceiveApproval, signals[0].name)
	assert.Equal(t, workflow.ApprovalInput{CallID: "call-1", Approved: true}, signals[0].arg)
	assert.Equal(t, workflow.ApprovalInput{CallID: "call-2", Approved: false}, signals[1].arg)
}

func TestSubmit_ApprovalBeforeStartFails(t *testing.T) {
	s := newTestSession(&fakeClient{})

	_, err := s.Submit(context.Background(), models.Op{
		Type: models.OpExecApproval, CallID: "call-1", Decision: models.DecisionApproved,
	})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSubmit_InterruptIsIgnored(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)
	startSession(t, s)

	id, err := s.Submit(context.Background(), models.Op{Type: models.OpInterrupt})
	require.NoError(t, err)
	assert.Equal(t, SubmissionIgnored, id)
	assert.Empty(t, f.recordedSignals())
}

func TestSubmit_ShutdownSignalsWorkflow(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)
	startSession(t, s)

	id, err := s.Submit(context.Background(), models.Op{Type: models.OpShutdown})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	signals := f.recordedSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, workflow.SignalRequestShutdown, signals[0].name)
}

func TestSubmit_ShutdownBeforeStartClosesLocally(t *testing.T) {
	f := &fakeClient{}
	s := newTestSession(f)

	_, err := s.Submit(context.Background(), models.Op{Type: models.OpShutdown})
	require.NoError(t, err)
	assert.Empty(t, f.recordedSignals(), "nothing to signal before start")

	_, err = s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "hi"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNextEvent_DeliversInOrderExactlyOnce(t *testing.T) {
	events := []models.Event{
		{ID: "ev-1", Msg: models.TurnStartedMsg("turn-0", nil)},
		{ID: "ev-2", Msg: models.AgentMessageMsg("Hello!")},
		{ID: "ev-3", Msg: models.TurnCompleteMsg("turn-0", nil)},
	}
	f := &fakeClient{responses: []queryResponse{
		{page: workflow.EventsPage{Events: marshalEvents(t, events...), Watermark: 3}},
		{page: workflow.EventsPage{Watermark: 3}},
	}}
	s := newTestSession(f)
	startSession(t, s)

	for i, want := range events {
		got, err := s.NextEvent(context.Background())
		require.NoError(t, err, "event %d", i)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Msg.Type, got.Msg.Type)
	}

	// Nothing further: the next call must block until the context expires,
	// not replay delivered events.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := s.NextEvent(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queryFroms)
	assert.Equal(t, 0, f.queryFroms[0], "first poll starts at the beginning")
	assert.Equal(t, 3, f.queryFroms[len(f.queryFroms)-1], "later polls resume at the watermark")
}

func TestNextEvent_ShutdownCompleteClosesStream(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{page: workflow.EventsPage{
			Events:    marshalEvents(t, models.Event{ID: "ev-1", Msg: models.ShutdownCompleteMsg()}),
			Watermark: 1,
		}},
	}}
	s := newTestSession(f)
	startSession(t, s)

	ev, err := s.NextEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.EventShutdownComplete, ev.Msg.Type)

	_, err = s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNextEvent_SynthesizesShutdownWhenWorkflowGone(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{err: serviceerror.NewNotFound("workflow execution not found")},
	}}
	s := newTestSession(f)
	startSession(t, s)

	_, err := s.Submit(context.Background(), models.Op{Type: models.OpShutdown})
	require.NoError(t, err)

	ev, err := s.NextEvent(context.Background())
	require.NoError(t, err, "a vanished workflow after shutdown still yields closure")
	assert.Equal(t, models.EventShutdownComplete, ev.Msg.Type)
	assert.NotEmpty(t, ev.ID)

	_, err = s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestNextEvent_TerminalErrorWithoutShutdownSurfaces(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{err: serviceerror.NewNotFound("workflow execution not found")},
	}}
	s := newTestSession(f)
	startSession(t, s)

	_, err := s.NextEvent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer exists")
}

func TestNextEvent_TransientErrorsRetry(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{page: workflow.EventsPage{
			Events:    marshalEvents(t, models.Event{ID: "ev-1", Msg: models.AgentMessageMsg("back")}),
			Watermark: 1,
		}},
	}}
	s := newTestSession(f)
	startSession(t, s)

	ev, err := s.NextEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ev-1", ev.ID)
}

func TestNextEvent_PersistentErrorsGiveUp(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{err: errors.New("connection refused")},
	}}
	s := newTestSession(f)
	startSession(t, s)

	_, err := s.NextEvent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kept failing")
}

func TestNextEvent_BeforeStartFails(t *testing.T) {
	s := newTestSession(&fakeClient{})

	_, err := s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestNextEvent_SkipsUndecodableEvents(t *testing.T) {
	good, err := json.Marshal(models.Event{ID: "ev-2", Msg: models.AgentMessageMsg("kept")})
	require.NoError(t, err)
	f := &fakeClient{responses: []queryResponse{
		{page: workflow.EventsPage{
			Events:    []json.RawMessage{json.RawMessage(`{"id":`), good},
			Watermark: 2,
		}},
	}}
	s := newTestSession(f)
	startSession(t, s)

	ev, err := s.NextEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ev-2", ev.ID)
}

func TestAttach_UserTurnsAreSignalsWithRandomIDs(t *testing.T) {
	f := &fakeClient{}
	s := attachSession(f, "codex-existing")

	id, err := s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "hello again"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "turn-"))
	assert.NotEqual(t, "turn-0", id, "attached clients must not reuse the creator's turn IDs")

	assert.Empty(t, f.started, "attach must never start a workflow")
	signals := f.recordedSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, workflow.SignalReceiveUserTurn, signals[0].name)
	input, ok := signals[0].arg.(workflow.UserTurnInput)
	require.True(t, ok)
	assert.Equal(t, id, input.TurnID)
	assert.Equal(t, "hello again", input.Message)

	id2, err := s.Submit(context.Background(), models.Op{Type: models.OpUserTurn, Text: "more"})
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestAttach_ReplaysEventsFromStart(t *testing.T) {
	f := &fakeClient{responses: []queryResponse{
		{page: workflow.EventsPage{
			Events:    marshalEvents(t, models.Event{ID: "ev-1", Msg: models.AgentMessageMsg("earlier reply")}),
			Watermark: 1,
		}},
	}}
	s := attachSession(f, "codex-existing")

	ev, err := s.NextEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ev-1", ev.ID)
	require.NotEmpty(t, f.queryFroms)
	assert.Equal(t, 0, f.queryFroms[0], "replay starts at the beginning of the stream")
}
