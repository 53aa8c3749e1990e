// ABOUTME: Cosmetic progress ticker that reports estimated completion while the pipeline blocks.
// ABOUTME: Estimates ride in the event payload and never move the stream's progress value.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/2389-research/featurecrew/progress"
)

// estimateSteps are the estimates reported on successive ticks.
var estimateSteps = []int{5, 12, 25, 35, 50, 60, 75, 85, 95}

// tick emits one estimate per TickInterval until ctx ends or the steps run out.
func (e *Executor) tick(ctx, emitCtx context.Context) {
	if e.cfg.TickInterval <= 0 {
		return
	}
	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()

	for _, est := range estimateSteps {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if ctx.Err() != nil {
			return
		}
		e.logger.AgentThinking(emitCtx, progress.PipelineAgent, fmt.Sprintf("Execution in progress... (%d%% estimated)", est))
		e.logger.TaskEstimate(emitCtx, progress.PipelineAgent, est)
	}
}
