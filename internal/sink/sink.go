// Package sink buffers agent events for incremental consumption. The
// workflow appends every event it raises; clients page through the buffer
// with a watermark so repeated polls never re-deliver or skip events.
package sink

import (
	"encoding/json"
	"sync"

	"github.com/mfateev/codex-temporal/internal/models"
)

// EventSink receives every event the agent loop raises.
type EventSink interface {
	Emit(ev models.Event) error
}

// BufferEventSink is an append-only event buffer. Events are serialized once
// at emit time, so the query path hands out stable bytes regardless of later
// type changes.
type BufferEventSink struct {
	mu     sync.Mutex
	events []json.RawMessage
}

// NewBuffer returns an empty buffer.
func NewBuffer() *BufferEventSink {
	return &BufferEventSink{}
}

// Emit serializes ev and appends it.
func (b *BufferEventSink) Emit(ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.events = append(b.events, data)
	b.mu.Unlock()
	return nil
}

// Len reports the number of buffered events.
func (b *BufferEventSink) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// EventsSince returns the events at positions [from, len) and the new
// watermark, which is always the current buffer length. A from at or past
// the end returns an empty batch with the same watermark, so callers can
// poll with their last watermark and only ever see each event once.
func (b *BufferEventSink) EventsSince(from int) ([]json.RawMessage, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	watermark := len(b.events)
	if from < 0 {
		from = 0
	}
	if from >= watermark {
		return []json.RawMessage{}, watermark
	}
	batch := make([]json.RawMessage, watermark-from)
	copy(batch, b.events[from:])
	return batch, watermark
}

// Drain returns the full buffer contents. Used by tests and by shutdown
// paths that want one final snapshot.
func (b *BufferEventSink) Drain() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]json.RawMessage, len(b.events))
	copy(out, b.events)
	return out
}
