// ABOUTME: Canonical execution event shape streamed to browser clients over WebSocket.
// ABOUTME: Defines EventKind values and the Event struct serialized verbatim as JSON.
package progress

import "time"

// EventKind discriminates the type of execution event.
type EventKind string

const (
	EventAgentStart    EventKind = "agent_start"
	EventAgentThinking EventKind = "agent_thinking"
	EventAgentOutput   EventKind = "agent_output"
	EventTaskComplete  EventKind = "task_complete"
	EventCrewComplete  EventKind = "crew_complete"
	EventError         EventKind = "error"
)

// Event is one progress notification. Events are built by the Logger and not
// modified after they are handed to the sink.
type Event struct {
	Kind      EventKind      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent,omitempty"`
	Task      string         `json:"task,omitempty"`
	Data      map[string]any `json:"data"`
	Progress  *int           `json:"progress,omitempty"`
}

// HasProgress reports whether the event carries a progress value.
func (e Event) HasProgress() bool {
	return e.Progress != nil
}

// ProgressValue returns the progress value, or -1 when the event has none.
func (e Event) ProgressValue() int {
	if e.Progress == nil {
		return -1
	}
	return *e.Progress
}

func intPtr(v int) *int {
	return &v
}
