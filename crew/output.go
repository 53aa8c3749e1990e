// ABOUTME: Result types produced by a crew run.
// ABOUTME: Output exposes per-task results and the raw final text for the result extractor.
package crew

import (
	"strings"

	"github.com/2389-research/featurecrew/extract"
)

// TaskOutput is the text one agent produced for one task.
type TaskOutput struct {
	Name  string
	Agent string
	Text  string
	// Raw is the model response before whitespace trimming.
	Raw string
}

// Output returns the trimmed task text.
func (t TaskOutput) Output() string { return t.Text }

// RawText returns the untrimmed model response.
func (t TaskOutput) RawText() string { return t.Raw }

func (t TaskOutput) String() string { return t.Text }

// Output is the complete result of one Kickoff.
type Output struct {
	Tasks []TaskOutput
}

// TaskResults returns the per-task outputs in execution order.
func (o *Output) TaskResults() []extract.TaskResult {
	out := make([]extract.TaskResult, len(o.Tasks))
	for i, t := range o.Tasks {
		out[i] = t
	}
	return out
}

// RawPayload returns the final task's raw text.
func (o *Output) RawPayload() any {
	if len(o.Tasks) == 0 {
		return ""
	}
	return o.Tasks[len(o.Tasks)-1].Raw
}

// String returns the final task's text, which is the crew's answer.
func (o *Output) String() string {
	if len(o.Tasks) == 0 {
		return ""
	}
	return strings.TrimSpace(o.Tasks[len(o.Tasks)-1].Text)
}

var (
	_ extract.TaskLister   = (*Output)(nil)
	_ extract.RawPayloader = (*Output)(nil)
)
