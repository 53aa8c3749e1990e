// ABOUTME: Assembles the crew, LLM client and executor shared by the serve and run commands.
package main

import (
	"context"
	"fmt"

	"github.com/2389-research/featurecrew/config"
	"github.com/2389-research/featurecrew/crew"
	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/extract"
	"github.com/2389-research/featurecrew/llm"
	"github.com/2389-research/featurecrew/progress"
	muxllm "github.com/2389-research/mux/llm"
)

// buildExecutor creates the LLM client named by cfg and wires a crew executor
// that reports to sink.
func buildExecutor(ctx context.Context, cfg config.Config, sink progress.Broadcaster, ecfg executor.Config) (*executor.Executor, error) {
	client, model, err := llm.NewClient(ctx, cfg.LLMSettings())
	if err != nil {
		return nil, err
	}
	ecfg.OutputDir = cfg.OutputDir
	return newExecutor(client, model, sink, ecfg)
}

func newExecutor(client muxllm.Client, model string, sink progress.Broadcaster, ecfg executor.Config) (*executor.Executor, error) {
	def, err := crew.DefaultDefinition()
	if err != nil {
		return nil, fmt.Errorf("load crew definition: %w", err)
	}
	c := crew.New(def, client, model, crew.WithOutputDir(ecfg.OutputDir))
	exec := executor.New(crewPipeline(c), progress.NewLogger(sink), ecfg)
	c.OnTaskDone = func(index int, out crew.TaskOutput) {
		exec.TaskDone(index, out.Name)
	}
	return exec, nil
}

// crewPipeline adapts a Crew to the executor. A nil *crew.Output must become a
// nil interface so the executor sees no result.
func crewPipeline(c *crew.Crew) executor.Pipeline {
	return executor.PipelineFunc(func(ctx context.Context, inputs map[string]string) (extract.Result, error) {
		out, err := c.Kickoff(ctx, inputs)
		if out == nil {
			return nil, err
		}
		return out, err
	})
}
