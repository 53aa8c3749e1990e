// ABOUTME: YAML definition of the crew's agents and tasks, embedded at build time.
// ABOUTME: Parses and validates agent references, context ordering and input placeholders.
package crew

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed crew.yaml
var defaultDefinition []byte

// AgentDef describes one agent persona.
type AgentDef struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskDef describes one sequential task.
type TaskDef struct {
	Name           string   `yaml:"name"`
	Agent          string   `yaml:"agent"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Context        []string `yaml:"context"`
	OutputFile     string   `yaml:"output_file"`
}

// Definition is the full crew layout.
type Definition struct {
	Agents map[string]AgentDef `yaml:"agents"`
	Tasks  []TaskDef           `yaml:"tasks"`
}

// DefaultDefinition returns the embedded feature-development crew.
func DefaultDefinition() (*Definition, error) {
	return ParseDefinition(defaultDefinition)
}

// ParseDefinition decodes and validates a YAML crew definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse crew definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks that every task names a known agent and only takes context
// from tasks that run before it.
func (d *Definition) Validate() error {
	if len(d.Tasks) == 0 {
		return fmt.Errorf("crew definition has no tasks")
	}
	seen := make(map[string]bool, len(d.Tasks))
	for i, t := range d.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate task %q", t.Name)
		}
		if _, ok := d.Agents[t.Agent]; !ok {
			return fmt.Errorf("task %q references unknown agent %q", t.Name, t.Agent)
		}
		for _, c := range t.Context {
			if !seen[c] {
				return fmt.Errorf("task %q takes context from %q, which does not run before it", t.Name, c)
			}
		}
		if strings.ContainsAny(t.OutputFile, `/\`) {
			return fmt.Errorf("task %q output file %q must be a bare file name", t.Name, t.OutputFile)
		}
		seen[t.Name] = true
	}
	return nil
}

// TaskNames returns the task names in execution order.
func (d *Definition) TaskNames() []string {
	names := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		names[i] = t.Name
	}
	return names
}

func interpolate(s string, inputs map[string]string) string {
	for k, v := range inputs {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
