// ABOUTME: Outcome record of one execution, returned to callers and served by the status API.
// ABOUTME: Built once at the end of a run and never mutated afterwards.
package executor

import (
	"sort"
	"time"

	"github.com/2389-research/featurecrew/progress"
)

// AgentOutput is one captured output in flattened form.
type AgentOutput struct {
	AgentName  string    `json:"agent_name"`
	TaskName   string    `json:"task_name"`
	Output     string    `json:"output"`
	Timestamp  time.Time `json:"timestamp"`
	OutputType string    `json:"output_type"`
}

// Result describes a finished execution.
type Result struct {
	RunID          string        `json:"run_id"`
	Success        bool          `json:"success"`
	Outputs        []AgentOutput `json:"outputs"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	ExecutionTime  float64       `json:"execution_time"`
	GeneratedFiles []string      `json:"generated_files"`
	FinalResult    string        `json:"final_result,omitempty"`
}

// flattenOutputs lists captured outputs in pipeline task order; tasks outside
// the known list follow in name order.
func flattenOutputs(outs progress.Outputs, tasks []progress.TaskDescriptor) []AgentOutput {
	order := make(map[string]int, len(tasks))
	for i, t := range tasks {
		order[t.Name] = i
	}

	flat := make([]AgentOutput, 0, len(outs))
	for task, byAgent := range outs {
		for agent, co := range byAgent {
			flat = append(flat, AgentOutput{
				AgentName:  agent,
				TaskName:   task,
				Output:     co.Output,
				Timestamp:  co.Timestamp,
				OutputType: co.OutputType,
			})
		}
	}

	rank := func(task string) int {
		if i, ok := order[task]; ok {
			return i
		}
		return len(tasks)
	}
	sort.SliceStable(flat, func(i, j int) bool {
		ri, rj := rank(flat[i].TaskName), rank(flat[j].TaskName)
		if ri != rj {
			return ri < rj
		}
		if flat[i].TaskName != flat[j].TaskName {
			return flat[i].TaskName < flat[j].TaskName
		}
		return flat[i].AgentName < flat[j].AgentName
	})
	return flat
}
