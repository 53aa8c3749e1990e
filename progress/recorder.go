// ABOUTME: In-memory Broadcaster that keeps every delivered event in order.
// ABOUTME: Used by the run command to summarize an execution and by tests to assert on event streams.
package progress

import (
	"context"
	"encoding/json"
	"sync"
)

// Recorder is a Broadcaster that decodes and stores every message it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   Broadcaster
}

// NewRecorder creates a Recorder. If next is non-nil, every message is also
// forwarded to it after being recorded.
func NewRecorder(next Broadcaster) *Recorder {
	return &Recorder{next: next}
}

// Broadcast implements Broadcaster.
func (r *Recorder) Broadcast(ctx context.Context, msg []byte) {
	var evt Event
	if err := json.Unmarshal(msg, &evt); err == nil {
		r.mu.Lock()
		r.events = append(r.events, evt)
		r.mu.Unlock()
	}
	if r.next != nil {
		r.next.Broadcast(ctx, msg)
	}
}

// Events returns a copy of the recorded events in delivery order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events with the given kind, in order.
func (r *Recorder) OfKind(kind EventKind) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Kind == kind {
			out = append(out, evt)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
