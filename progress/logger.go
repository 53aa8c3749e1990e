// ABOUTME: Event logger that turns crew lifecycle calls into canonical events and captures agent outputs.
// ABOUTME: Emission is serialized so every client observes events in call order; outputs are kept until cleared.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Broadcaster delivers a serialized event to every connected client.
// Delivery failures are handled by the implementation and never reported back.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg []byte)
}

// CapturedOutput is one agent's output for one task.
type CapturedOutput struct {
	Output     string    `json:"output"`
	OutputType string    `json:"output_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// Outputs maps task name to agent label to captured output.
type Outputs map[string]map[string]CapturedOutput

// Count returns the number of tasks that have at least one captured output.
func (o Outputs) Count() int {
	return len(o)
}

// Snapshot is a point-in-time view of the logger's pointers.
type Snapshot struct {
	CurrentAgent string
	CurrentTask  string
	Progress     int
	OutputsCount int
}

// Logger builds execution events, records agent outputs, and forwards each
// event to a Broadcaster. All methods are safe for concurrent use; emission
// is serialized by a single lock held until the sink returns.
type Logger struct {
	sink Broadcaster
	now  func() time.Time

	emitMu sync.Mutex

	mu           sync.RWMutex
	outputs      Outputs
	currentAgent string
	currentTask  string
	progress     int
}

// NewLogger creates a Logger that forwards events to sink. A nil sink is
// allowed; events are then only written to the process log.
func NewLogger(sink Broadcaster) *Logger {
	return &Logger{
		sink:    sink,
		now:     time.Now,
		outputs: make(Outputs),
	}
}

// AgentStart records that agent began task and emits an agent_start event.
func (l *Logger) AgentStart(ctx context.Context, agent, task string) {
	l.mu.Lock()
	l.currentAgent = agent
	l.currentTask = task
	l.mu.Unlock()

	l.emit(ctx, Event{
		Kind:  EventAgentStart,
		Agent: agent,
		Task:  task,
		Data: map[string]any{
			"message": fmt.Sprintf("%s started working on %s", agent, task),
			"status":  "starting",
		},
	})
}

// AgentThinking emits an agent_thinking event against the current task.
func (l *Logger) AgentThinking(ctx context.Context, agent, thought string) {
	l.mu.RLock()
	task := l.currentTask
	l.mu.RUnlock()

	l.emit(ctx, Event{
		Kind:  EventAgentThinking,
		Agent: agent,
		Task:  task,
		Data: map[string]any{
			"message": fmt.Sprintf("%s is thinking: %s", agent, thought),
			"thought": thought,
		},
	})
}

// AgentOutput stores output under (task, agent) and emits an agent_output event.
func (l *Logger) AgentOutput(ctx context.Context, agent, task, output, outputType string) {
	if outputType == "" {
		outputType = "text"
	}

	l.mu.Lock()
	if l.outputs[task] == nil {
		l.outputs[task] = make(map[string]CapturedOutput)
	}
	l.outputs[task][agent] = CapturedOutput{
		Output:     output,
		OutputType: outputType,
		Timestamp:  l.now(),
	}
	l.mu.Unlock()

	l.emit(ctx, Event{
		Kind:  EventAgentOutput,
		Agent: agent,
		Task:  task,
		Data: map[string]any{
			"message":     fmt.Sprintf("%s completed %s", agent, task),
			"output":      output,
			"output_type": outputType,
			"preview":     OutputPreview(output, outputType),
		},
	})
}

// TaskComplete emits a task_complete event carrying an exact progress value.
func (l *Logger) TaskComplete(ctx context.Context, task, agent string, progress int) {
	l.mu.Lock()
	l.progress = progress
	l.mu.Unlock()

	l.emit(ctx, Event{
		Kind:  EventTaskComplete,
		Agent: agent,
		Task:  task,
		Data: map[string]any{
			"message": fmt.Sprintf("Task %s completed by %s", task, agent),
			"status":  "completed",
		},
		Progress: intPtr(progress),
	})
}

// TaskEstimate emits a task_complete event for the cosmetic progress ticker.
// The estimate travels in the payload only; the progress field stays empty so
// an estimate can never move the stream's progress backwards.
func (l *Logger) TaskEstimate(ctx context.Context, agent string, estimate int) {
	l.emit(ctx, Event{
		Kind:  EventTaskComplete,
		Agent: agent,
		Task:  "crew_progress",
		Data: map[string]any{
			"message":            fmt.Sprintf("Execution in progress (%d%% estimated)", estimate),
			"status":             "in_progress",
			"estimated":          true,
			"estimated_progress": estimate,
		},
	})
}

// CrewComplete emits the terminal crew_complete event with progress 100.
func (l *Logger) CrewComplete(ctx context.Context, success bool, elapsed time.Duration, finalResult string) {
	l.mu.Lock()
	l.progress = 100
	l.mu.Unlock()

	l.emit(ctx, Event{
		Kind: EventCrewComplete,
		Data: map[string]any{
			"message":        "Crew execution completed",
			"success":        success,
			"execution_time": elapsed.Seconds(),
			"final_result":   finalResult,
			"outputs":        l.Outputs(),
		},
		Progress: intPtr(100),
	})
}

// Error emits an error event. agent and task may be empty.
func (l *Logger) Error(ctx context.Context, message, agent, task string) {
	l.emit(ctx, Event{
		Kind:  EventError,
		Agent: agent,
		Task:  task,
		Data: map[string]any{
			"message": "Error: " + message,
			"error":   message,
		},
	})
}

// Outputs returns a deep copy of every captured output.
func (l *Logger) Outputs() Outputs {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(Outputs, len(l.outputs))
	for task, byAgent := range l.outputs {
		inner := make(map[string]CapturedOutput, len(byAgent))
		for agent, co := range byAgent {
			inner[agent] = co
		}
		out[task] = inner
	}
	return out
}

// ClearOutputs drops all captured outputs and resets the current agent, task
// and progress. It must run before each new execution.
func (l *Logger) ClearOutputs() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = make(Outputs)
	l.currentAgent = ""
	l.currentTask = ""
	l.progress = 0
}

// Current returns the current agent, task, last exact progress and output count.
func (l *Logger) Current() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		CurrentAgent: l.currentAgent,
		CurrentTask:  l.currentTask,
		Progress:     l.progress,
		OutputsCount: len(l.outputs),
	}
}

func (l *Logger) emit(ctx context.Context, evt Event) {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	evt.Timestamp = l.now()
	logEvent(evt)

	if l.sink == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("component=progress action=marshal_failed type=%s err=%v", evt.Kind, err)
		return
	}
	l.sink.Broadcast(ctx, payload)
}

func logEvent(evt Event) {
	switch evt.Kind {
	case EventAgentStart:
		log.Printf("component=progress action=agent_start agent=%q task=%s", evt.Agent, evt.Task)
	case EventAgentOutput:
		log.Printf("component=progress action=agent_output agent=%q task=%s", evt.Agent, evt.Task)
	case EventTaskComplete:
		if evt.Progress != nil {
			log.Printf("component=progress action=task_complete task=%s progress=%d", evt.Task, *evt.Progress)
		}
	case EventCrewComplete:
		log.Printf("component=progress action=crew_complete success=%v execution_time=%.2fs",
			evt.Data["success"], evt.Data["execution_time"])
	case EventError:
		log.Printf("component=progress action=error agent=%q task=%s err=%v", evt.Agent, evt.Task, evt.Data["error"])
	}
}

// OutputPreview returns the short preview shown next to an output in the UI.
func OutputPreview(output, outputType string) string {
	switch outputType {
	case "html":
		return "HTML file generated"
	case "json":
		var data map[string]any
		if err := json.Unmarshal([]byte(output), &data); err != nil {
			return "JSON data"
		}
		return fmt.Sprintf("JSON with %d fields", len(data))
	}
	r := []rune(output)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return output
}
