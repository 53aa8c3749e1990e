// ABOUTME: Replays a finished pipeline result as paced per-task progress events.
// ABOUTME: Each task moves through its 25-point band and gets exactly one output event.
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/2389-research/featurecrew/extract"
	"github.com/2389-research/featurecrew/progress"
	"go.opentelemetry.io/otel/attribute"
)

// MissingOutputMarker appears in every placeholder emitted for a task whose
// output could not be attributed.
const MissingOutputMarker = "Output not captured"

const excerptLen = 500

// narrate emits the per-task event sequence for res and reports whether every
// task got its output. Pauses use ctx; cancellation stops narration.
func (e *Executor) narrate(ctx, emitCtx context.Context, res extract.Result) bool {
	_, span := e.tracer.Start(ctx, "executor.narrate")
	defer span.End()

	outputs := extract.Extract(res, e.tasks)
	span.SetAttributes(attribute.Int("crew.extracted_tasks", len(outputs)))
	whole := ""
	if res != nil {
		whole = res.String()
	}

	for i, task := range e.tasks {
		lower, upper := progress.Band(i)

		e.logger.AgentStart(emitCtx, task.Agent, task.Name)
		e.logger.TaskComplete(emitCtx, task.Name+"_start", task.Agent, lower)
		if !pause(ctx, e.cfg.StepDelay) {
			return false
		}

		e.logger.AgentThinking(emitCtx, task.Agent, fmt.Sprintf("Working on %s generation...", task.OutputType))
		e.logger.TaskComplete(emitCtx, task.Name+"_progress", task.Agent, lower+10)
		if !pause(ctx, e.cfg.ThinkDelay) {
			return false
		}

		text, ok := outputs[task.Name]
		if !ok || strings.TrimSpace(text) == "" {
			log.Printf("component=executor action=output_missing task=%s agent=%q", task.Name, task.Agent)
			text = missingOutput(task, whole)
		}
		e.logger.AgentOutput(emitCtx, task.Agent, task.Name, text, task.OutputType)
		e.logger.TaskComplete(emitCtx, task.Name, task.Agent, upper)

		if !pause(ctx, e.cfg.TaskGap) {
			// The last gap is pacing only; all outputs are out.
			return i == len(e.tasks)-1
		}
	}
	return true
}

// missingOutput builds the placeholder for a task without attributed text.
// When the whole result mentions the task, an excerpt is attached, labelled as
// unattributed because it may belong to a different task.
func missingOutput(task progress.TaskDescriptor, whole string) string {
	msg := fmt.Sprintf("⚠️ %s for %s. The task may have completed but its output could not be attributed.",
		MissingOutputMarker, task.Agent)

	lw := strings.ToLower(whole)
	if !strings.Contains(lw, task.OutputType) && !strings.Contains(lw, strings.ToLower(task.Agent)) {
		return msg
	}

	excerpt := whole
	if r := []rune(excerpt); len(r) > excerptLen {
		excerpt = string(r[:excerptLen]) + "..."
	}
	return msg + "\n\nUnattributed excerpt of the full crew result (may not belong to this task):\n" + excerpt
}

// pause sleeps for d unless ctx ends first. It reports whether the full
// duration elapsed.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
