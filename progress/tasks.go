// ABOUTME: Static descriptors for the four sequential crew tasks and their progress bands.
// ABOUTME: Defines execution order, agent labels, output-type tags, and the 25-point band each task owns.
package progress

// TaskDescriptor identifies one fixed stage of the feature-development crew.
type TaskDescriptor struct {
	Name       string `json:"name"`
	Agent      string `json:"agent"`
	OutputType string `json:"output_type"`
}

// PipelineAgent and PipelineTask label events emitted for the crew as a whole
// rather than for an individual agent.
const (
	PipelineAgent = "Crew"
	PipelineTask  = "product_feature_crew"
)

// bandWidth is the number of progress points owned by each task.
const bandWidth = 25

// Tasks is the execution order of the crew. The slice must not be modified.
var Tasks = []TaskDescriptor{
	{Name: "product_design_task", Agent: "Product Manager", OutputType: "product_spec"},
	{Name: "uiux_design_task", Agent: "UI/UX Designer", OutputType: "wireframe"},
	{Name: "backend_development_task", Agent: "Backend Engineer", OutputType: "backend_api"},
	{Name: "frontend_development_task", Agent: "Frontend Engineer", OutputType: "html"},
}

// Band returns the lower and upper progress bounds for the task at index i.
func Band(i int) (lower, upper int) {
	lower = i * bandWidth
	return lower, lower + bandWidth
}

// LookupTask returns the descriptor with the given task name.
func LookupTask(name string) (TaskDescriptor, bool) {
	for _, t := range Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskDescriptor{}, false
}
