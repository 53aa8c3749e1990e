// ABOUTME: The run command: executes one crew in-process and prints every task's output.
// ABOUTME: Progress events go to the process log; the exit status reflects the run's success.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2389-research/featurecrew/executor"
	"github.com/2389-research/featurecrew/llm"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   `run "<feature request>"`,
		Short: "Run the crew once and print its outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, map[string]string{"output_dir": "output-dir"}); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !skipCheck {
				if err := llm.Preflight(ctx, a.cfg.LLMSettings(), nil); err != nil {
					return fmt.Errorf("LLM check failed: %w", err)
				}
			}
			exec, err := buildExecutor(ctx, a.cfg, nil, executor.Config{})
			if err != nil {
				return err
			}
			res, err := exec.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if !res.Success {
				return fmt.Errorf("crew failed: %s", res.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().String("output-dir", ".", "directory for generated files")
	cmd.Flags().BoolVar(&skipCheck, "skip-llm-check", false, "skip the LLM provider check")
	return cmd
}

// printResult writes each captured output under a heading, then a summary.
func printResult(w io.Writer, res *executor.Result) {
	for _, out := range res.Outputs {
		fmt.Fprintf(w, "== %s (%s) ==\n%s\n\n", out.AgentName, out.TaskName, strings.TrimSpace(out.Output))
	}
	status := "succeeded"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "run %s %s in %.1fs\n", res.RunID, status, res.ExecutionTime)
	for _, f := range res.GeneratedFiles {
		fmt.Fprintf(w, "generated %s\n", f)
	}
}
