// ABOUTME: WatchModel is an inline Bubble Tea model that follows a crew run streamed from the server.
// ABOUTME: Shows one row per crew task with spinners and durations, a progress bar and recent activity.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/featurecrew/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	tickInterval = 100 * time.Millisecond
	barWidth     = 30
)

// WatchModel displays the progress of one crew run.
type WatchModel struct {
	source EventSource
	target string

	tasks     []progress.TaskDescriptor
	statuses  map[string]TaskStatus
	startedAt map[string]time.Time
	durations map[string]time.Duration

	activity ActivityModel

	spinnerIdx int
	runStart   time.Time
	progress   int
	estimate   int
	completed  int

	done        bool
	success     bool
	finalResult string
	lastError   string
	err         error

	width int
}

// NewWatchModel creates a WatchModel reading events from src. target names
// the server in the header.
func NewWatchModel(src EventSource, target string) WatchModel {
	statuses := make(map[string]TaskStatus, len(progress.Tasks))
	for _, t := range progress.Tasks {
		statuses[t.Name] = TaskPending
	}
	return WatchModel{
		source:    src,
		target:    target,
		tasks:     progress.Tasks,
		statuses:  statuses,
		startedAt: make(map[string]time.Time),
		durations: make(map[string]time.Duration),
		activity:  NewActivityModel(100),
		runStart:  time.Now(),
	}
}

// Done reports whether the run finished or the stream closed.
func (m WatchModel) Done() bool { return m.done }

// Success reports whether the run finished successfully.
func (m WatchModel) Success() bool { return m.success }

// FinalResult returns the crew_complete final result text.
func (m WatchModel) FinalResult() string { return m.finalResult }

// Err returns the stream error when the connection ended before the run did.
func (m WatchModel) Err() error { return m.err }

// Progress returns the last exact progress value seen.
func (m WatchModel) Progress() int { return m.progress }

// Status returns the display state of task.
func (m WatchModel) Status(task string) TaskStatus { return m.statuses[task] }

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(WaitForEventCmd(m.source), TickCmd(tickInterval))
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.activity.SetSize(msg.Width, 11)
		return m, nil

	case EventMsg:
		return m.handleEvent(msg.Event)

	case StreamClosedMsg:
		if !m.done {
			m.done = true
			m.err = msg.Err
		}
		return m, tea.Quit

	case TickMsg:
		m.spinnerIdx++
		if m.done {
			return m, nil
		}
		return m, TickCmd(tickInterval)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m WatchModel) handleEvent(evt progress.Event) (tea.Model, tea.Cmd) {
	next := WaitForEventCmd(m.source)

	switch evt.Kind {
	case progress.EventAgentStart:
		if evt.Task == progress.PipelineTask {
			m.reset()
		} else if _, ok := m.statuses[evt.Task]; ok {
			m.statuses[evt.Task] = TaskRunning
			m.startedAt[evt.Task] = time.Now()
		}

	case progress.EventTaskComplete:
		if est, ok := evt.Data["estimated_progress"].(float64); ok {
			m.estimate = int(est)
			return m, next
		}
		if evt.HasProgress() && evt.ProgressValue() > m.progress {
			m.progress = evt.ProgressValue()
		}
		if m.statuses[evt.Task] == TaskRunning {
			m.statuses[evt.Task] = TaskCompleted
			m.completed++
			if start, ok := m.startedAt[evt.Task]; ok {
				m.durations[evt.Task] = time.Since(start)
			}
		}

	case progress.EventError:
		m.lastError, _ = evt.Data["error"].(string)

	case progress.EventCrewComplete:
		m.done = true
		m.progress = 100
		m.success, _ = evt.Data["success"].(bool)
		m.finalResult, _ = evt.Data["final_result"].(string)
		if !m.success {
			m.failUnfinished()
		}
		m.activity.Append(evt)
		return m, tea.Quit
	}

	m.activity.Append(evt)
	return m, next
}

// reset clears state when a new run starts on the server.
func (m *WatchModel) reset() {
	for name := range m.statuses {
		m.statuses[name] = TaskPending
	}
	m.startedAt = make(map[string]time.Time)
	m.durations = make(map[string]time.Duration)
	m.runStart = time.Now()
	m.progress = 0
	m.estimate = 0
	m.completed = 0
	m.lastError = ""
}

func (m *WatchModel) failUnfinished() {
	for name, st := range m.statuses {
		if st == TaskRunning {
			m.statuses[name] = TaskFailed
			if start, ok := m.startedAt[name]; ok {
				m.durations[name] = time.Since(start)
			}
		}
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("featurecrew") + " " + PendingStyle.Render(m.target) + "\n\n")

	for _, t := range m.tasks {
		b.WriteString(m.renderTaskLine(t))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderProgressLine())
	b.WriteString("\n")
	if m.lastError != "" {
		b.WriteString(FailedStyle.Render("  " + m.lastError))
		b.WriteString("\n")
	}
	b.WriteString(m.activity.View())
	b.WriteString("\n")
	return b.String()
}

func (m WatchModel) renderTaskLine(t progress.TaskDescriptor) string {
	status := m.statuses[t.Name]
	switch status {
	case TaskRunning:
		frame := SpinnerFrames[m.spinnerIdx%len(SpinnerFrames)]
		return RunningStyle.Render(fmt.Sprintf("  %s %s", frame, t.Agent)) +
			RunningStyle.Render("  working...")
	case TaskCompleted:
		return CompletedStyle.Render(fmt.Sprintf("  ✓ %s", t.Agent)) +
			CompletedStyle.Render("  "+formatDuration(m.durations[t.Name]))
	case TaskFailed:
		return FailedStyle.Render(fmt.Sprintf("  ✗ %s", t.Agent)) +
			FailedStyle.Render(fmt.Sprintf("  failed (%s)", formatDuration(m.durations[t.Name])))
	default:
		return PendingStyle.Render(fmt.Sprintf("    %s", t.Agent))
	}
}

func (m WatchModel) renderProgressLine() string {
	elapsed := formatDuration(time.Since(m.runStart))
	bar := renderBar(m.progress, barWidth)

	if m.done {
		switch {
		case m.err != nil:
			return FailedStyle.Render(fmt.Sprintf("  %s %d%% · connection lost: %v", bar, m.progress, m.err))
		case m.success:
			return CompletedStyle.Render(fmt.Sprintf("  %s %d%% · %d/%d tasks · %s", bar, m.progress, m.completed, len(m.tasks), elapsed))
		default:
			return FailedStyle.Render(fmt.Sprintf("  %s FAILED · %s", bar, m.finalResult))
		}
	}

	line := fmt.Sprintf("  %s %d%% · %d/%d tasks · %s elapsed", bar, m.progress, m.completed, len(m.tasks), elapsed)
	if m.estimate > m.progress {
		line += fmt.Sprintf(" · ~%d%% estimated", m.estimate)
	}
	return line
}

// renderBar draws a fixed-width bar for pct in [0,100].
func renderBar(pct, width int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * width / 100
	return BarFilledStyle.Render(strings.Repeat("█", filled)) +
		BarEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// formatDuration formats a duration like "0.4s", "12s" or "2m05s".
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%.1fs", secs)
	}
	if secs < 60 {
		return fmt.Sprintf("%.0fs", secs)
	}
	mins := int(secs) / 60
	return fmt.Sprintf("%dm%02ds", mins, int(secs)%60)
}
