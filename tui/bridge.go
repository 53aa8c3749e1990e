// ABOUTME: Bridge connecting the server's WebSocket event stream to the Bubble Tea message loop.
// ABOUTME: Provides Dial plus tea.Cmd factories that read one event at a time and drive the spinner.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2389-research/featurecrew/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// EventSource yields raw messages from the server. *websocket.Conn satisfies it.
type EventSource interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// Dial connects to the server's /ws endpoint.
func Dial(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// WaitForEventCmd returns a tea.Cmd that blocks until the next execution
// event arrives. Messages that are not execution events, such as pong
// replies, are skipped. A read error ends the stream.
func WaitForEventCmd(src EventSource) tea.Cmd {
	return func() tea.Msg {
		for {
			_, data, err := src.ReadMessage()
			if err != nil {
				return StreamClosedMsg{Err: err}
			}
			evt, ok := decodeEvent(data)
			if !ok {
				continue
			}
			return EventMsg{Event: evt}
		}
	}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(interval)
		return TickMsg{Time: time.Now()}
	}
}

func decodeEvent(data []byte) (progress.Event, bool) {
	var evt progress.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return progress.Event{}, false
	}
	switch evt.Kind {
	case progress.EventAgentStart, progress.EventAgentThinking, progress.EventAgentOutput,
		progress.EventTaskComplete, progress.EventCrewComplete:
		return evt, true
	case progress.EventError:
		// Control-message error replies carry no data payload.
		return evt, evt.Data != nil
	}
	return progress.Event{}, false
}
