// ABOUTME: Scrollable activity panel built on the bubbles viewport component.
// ABOUTME: Shows recent execution events as color-coded one-line entries.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/featurecrew/progress"
	"github.com/charmbracelet/bubbles/viewport"
)

// ActivityModel is a bounded, scrollable list of recent events.
type ActivityModel struct {
	entries  []progress.Event
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewActivityModel creates a panel holding at most maxEntries events. If
// maxEntries is <= 0, it defaults to 100.
func NewActivityModel(maxEntries int) ActivityModel {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return ActivityModel{
		entries:  make([]progress.Event, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(78, 8),
		width:    80,
		height:   11,
	}
}

// Append adds an event, evicting the oldest entry at capacity.
func (m *ActivityModel) Append(evt progress.Event) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, evt)
	m.syncViewport()
}

// Len returns the number of entries.
func (m ActivityModel) Len() int {
	return len(m.entries)
}

// SetSize sets the outer dimensions including the border and title.
func (m *ActivityModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-2, 1)
	m.viewport.Height = max(h-3, 1)
	m.syncViewport()
}

// View renders the panel.
func (m ActivityModel) View() string {
	content := "Waiting for events"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}
	return BorderStyle.
		Width(m.width - 2).
		Render(TitleStyle.Render("ACTIVITY") + "\n" + content)
}

func (m *ActivityModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, evt := range m.entries {
		lines = append(lines, formatEntry(evt))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// formatEntry renders one event as "15:04:05 kind message".
func formatEntry(evt progress.Event) string {
	ts := LogTimestampStyle.Render(evt.Timestamp.Format("15:04:05"))
	kind := eventStyle(evt.Kind).Render(string(evt.Kind))
	msg, _ := evt.Data["message"].(string)
	if msg == "" {
		msg = fmt.Sprintf("%s %s", evt.Agent, evt.Task)
	}
	return strings.Join([]string{ts, kind, firstLine(msg)}, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
