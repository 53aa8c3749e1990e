// ABOUTME: Sequential multi-agent crew that runs each task as one LLM completion.
// ABOUTME: Feeds earlier task outputs forward as context and writes declared output files.
package crew

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	muxllm "github.com/2389-research/mux/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultMaxTokens = 8192

// Crew runs a Definition against an LLM client.
type Crew struct {
	def       *Definition
	client    muxllm.Client
	model     string
	outputDir string
	maxTokens int

	// OnTaskDone, when set, is called after each task finishes with its
	// zero-based index and output. It runs on the Kickoff goroutine.
	OnTaskDone func(index int, out TaskOutput)
}

// Option configures a Crew.
type Option func(*Crew)

// WithOutputDir sets the directory that output_file tasks write into.
func WithOutputDir(dir string) Option {
	return func(c *Crew) { c.outputDir = dir }
}

// WithMaxTokens overrides the per-task completion limit.
func WithMaxTokens(n int) Option {
	return func(c *Crew) { c.maxTokens = n }
}

// New creates a Crew. model is passed through on every request; the client's
// own default applies when it is empty.
func New(def *Definition, client muxllm.Client, model string, opts ...Option) *Crew {
	c := &Crew{
		def:       def,
		client:    client,
		model:     model,
		outputDir: ".",
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Definition returns the crew's layout.
func (c *Crew) Definition() *Definition { return c.def }

// Kickoff runs every task in order. The context is checked before each task
// and passed to every LLM call, so cancellation stops the run at the next
// boundary at the latest.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*Output, error) {
	tracer := otel.Tracer("featurecrew/crew")
	out := &Output{Tasks: make([]TaskOutput, 0, len(c.def.Tasks))}
	byName := make(map[string]string, len(c.def.Tasks))

	for i, task := range c.def.Tasks {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		agent := c.def.Agents[task.Agent]
		taskCtx, span := tracer.Start(ctx, "crew.task")
		span.SetAttributes(
			attribute.String("crew.task", task.Name),
			attribute.String("crew.agent", agent.Role),
			attribute.Int("crew.index", i),
		)

		start := time.Now()
		log.Printf("component=crew action=task_start task=%s agent=%q", task.Name, agent.Role)

		req := &muxllm.Request{
			Model:     c.model,
			System:    systemPrompt(agent),
			Messages:  []muxllm.Message{{Role: muxllm.RoleUser, Content: userPrompt(task, inputs, byName)}},
			MaxTokens: c.maxTokens,
		}
		resp, err := c.client.CreateMessage(taskCtx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return out, fmt.Errorf("task %s: %w", task.Name, err)
		}

		raw := resp.TextContent()
		to := TaskOutput{
			Name:  task.Name,
			Agent: agent.Role,
			Text:  strings.TrimSpace(raw),
			Raw:   raw,
		}
		out.Tasks = append(out.Tasks, to)
		byName[task.Name] = to.Text

		if task.OutputFile != "" {
			if err := c.writeOutputFile(task.OutputFile, to.Text); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
				return out, fmt.Errorf("task %s: %w", task.Name, err)
			}
		}

		span.SetAttributes(attribute.Int("crew.output_len", len(to.Text)))
		span.End()
		log.Printf("component=crew action=task_done task=%s chars=%d duration=%s",
			task.Name, len(to.Text), time.Since(start).Round(time.Millisecond))

		if c.OnTaskDone != nil {
			c.OnTaskDone(i, to)
		}
	}
	return out, nil
}

func (c *Crew) writeOutputFile(name, content string) error {
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(c.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func systemPrompt(a AgentDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\n\n", a.Role, strings.TrimSpace(a.Backstory))
	fmt.Fprintf(&b, "Your personal goal is: %s", strings.TrimSpace(a.Goal))
	return b.String()
}

func userPrompt(t TaskDef, inputs map[string]string, prior map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Task: %s\n\n", strings.TrimSpace(interpolate(t.Description, inputs)))
	fmt.Fprintf(&b, "This is the expected criteria for your final answer: %s\n", strings.TrimSpace(interpolate(t.ExpectedOutput, inputs)))
	b.WriteString("You MUST return the actual complete content as the final answer, not a summary.\n")

	if len(t.Context) > 0 {
		b.WriteString("\nThis is the context you're working with:\n")
		for _, name := range t.Context {
			fmt.Fprintf(&b, "\n### %s\n%s\n", name, prior[name])
		}
	}
	return b.String()
}
