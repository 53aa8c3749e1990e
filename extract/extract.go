// ABOUTME: Maps an opaque crew result onto per-task output text using three ranked strategies.
// ABOUTME: Works only through small declared interfaces so any pipeline can plug in without reflection.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389-research/featurecrew/progress"
)

// minWholeResultLen is the trimmed length a stringified result must exceed
// before it is attributed to the final task.
const minWholeResultLen = 50

// Result is the value returned by a pipeline run.
type Result interface {
	fmt.Stringer
}

// TaskLister is implemented by results that expose per-task outputs in
// pipeline order.
type TaskLister interface {
	TaskResults() []TaskResult
}

// TaskResult is one per-task output. Implementations may also provide
// Output() and RawText(); the first non-empty one wins, String() is the fallback.
type TaskResult interface {
	fmt.Stringer
}

type outputer interface {
	Output() string
}

type rawTexter interface {
	RawText() string
}

// RawPayloader is implemented by results that expose an unstructured
// payload: a string, or a map keyed by task-ish names.
type RawPayloader interface {
	RawPayload() any
}

// Extract returns task name → output text for the tasks it could attribute.
// Tasks that are absent from the map had no recoverable output.
func Extract(result Result, tasks []progress.TaskDescriptor) map[string]string {
	out := make(map[string]string)
	if result == nil || len(tasks) == 0 {
		return out
	}

	if lister, ok := result.(TaskLister); ok {
		fromTaskList(lister.TaskResults(), tasks, out)
	}

	// A task list with no usable text falls through like an absent one.
	if payloader, ok := result.(RawPayloader); ok && len(out) == 0 {
		fromRawPayload(payloader.RawPayload(), tasks, out)
	}

	if len(out) == 0 {
		whole := strings.TrimSpace(result.String())
		if len(whole) > minWholeResultLen {
			out[tasks[len(tasks)-1].Name] = whole
		}
	}
	return out
}

// TaskText returns the preferred text of a task result.
func TaskText(tr TaskResult) string {
	if tr == nil {
		return ""
	}
	if o, ok := tr.(outputer); ok {
		if s := o.Output(); s != "" {
			return s
		}
	}
	if r, ok := tr.(rawTexter); ok {
		if s := r.RawText(); s != "" {
			return s
		}
	}
	return tr.String()
}

func fromTaskList(entries []TaskResult, tasks []progress.TaskDescriptor, out map[string]string) {
	for i, entry := range entries {
		if i >= len(tasks) {
			break
		}
		text := TaskText(entry)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out[tasks[i].Name] = text
	}
}

func fromRawPayload(raw any, tasks []progress.TaskDescriptor, out map[string]string) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			out[tasks[len(tasks)-1].Name] = v
		}
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = val
		}
		fromKeyedPayload(m, tasks, out)
	case map[string]any:
		fromKeyedPayload(v, tasks, out)
	}
}

func fromKeyedPayload(m map[string]any, tasks []progress.TaskDescriptor, out map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		lk := strings.ToLower(key)
		for _, task := range tasks {
			if strings.Contains(lk, task.Name) ||
				strings.Contains(lk, strings.ToLower(task.Agent)) ||
				strings.Contains(lk, task.OutputType) {
				out[task.Name] = fmt.Sprint(m[key])
				break
			}
		}
	}
}
