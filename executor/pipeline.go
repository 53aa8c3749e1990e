// ABOUTME: The pipeline boundary the executor drives: anything that turns inputs into a result.
// ABOUTME: PipelineFunc adapts plain functions, including ones returning concrete result pointers.
package executor

import (
	"context"

	"github.com/2389-research/featurecrew/extract"
)

// Pipeline runs the multi-agent crew once. Implementations should honour ctx
// cancellation; one that ignores it keeps the execution slot until it returns.
type Pipeline interface {
	Kickoff(ctx context.Context, inputs map[string]string) (extract.Result, error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, inputs map[string]string) (extract.Result, error)

// Kickoff calls f.
func (f PipelineFunc) Kickoff(ctx context.Context, inputs map[string]string) (extract.Result, error) {
	return f(ctx, inputs)
}

// FeatureRequestInput is the input key carrying the user's feature request.
const FeatureRequestInput = "feature_request"
