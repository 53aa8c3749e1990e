// ABOUTME: Bubble Tea message types used in the watch view's message loop.
// ABOUTME: Wraps decoded execution events, stream closure and spinner ticks.
package tui

import (
	"time"

	"github.com/2389-research/featurecrew/progress"
)

// EventMsg carries one execution event received from the server.
type EventMsg struct {
	Event progress.Event
}

// StreamClosedMsg signals that the event stream ended.
type StreamClosedMsg struct {
	Err error
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}
