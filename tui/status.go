// ABOUTME: Defines the TaskStatus enum for the four crew task rows shown while watching a run.
// ABOUTME: Provides String/Icon methods and spinner animation frames for TUI rendering.
package tui

// TaskStatus represents the display state of one crew task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Task has not started
	TaskRunning                     // Agent is working on the task
	TaskCompleted                   // Task output was delivered
	TaskFailed                      // Run ended before the task completed
)

// String returns the lowercase name of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Icon returns a bracket-style status marker.
func (s TaskStatus) Icon() string {
	switch s {
	case TaskPending:
		return "[ ]"
	case TaskRunning:
		return "[~]"
	case TaskCompleted:
		return "[*]"
	case TaskFailed:
		return "[!]"
	default:
		return "[?]"
	}
}

// SpinnerFrames contains the Braille-dot animation frames for running tasks.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
