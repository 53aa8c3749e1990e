// ABOUTME: Execution orchestrator that owns the single execution slot and drives one crew run.
// ABOUTME: Runs the pipeline on a worker goroutine, narrates results as progress events and records the outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389-research/featurecrew/extract"
	"github.com/2389-research/featurecrew/progress"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrAlreadyRunning is returned when an execution is already in progress.
	ErrAlreadyRunning = errors.New("crew is already running")
	// ErrNotRunning is returned by Stop when no execution is in progress.
	ErrNotRunning = errors.New("no crew is currently running")
	// ErrEmptyRequest is returned when the feature request is blank.
	ErrEmptyRequest = errors.New("feature request must not be empty")
)

// errStopped is the failure reported for executions ended by Stop.
var errStopped = errors.New("execution stopped")

// FrontendFile is the generated page the frontend task writes.
const FrontendFile = "frontend_code.html"

// Config controls pacing and file locations. Zero delays disable the
// corresponding pause; a zero TickInterval disables the estimate ticker.
type Config struct {
	OutputDir    string
	StepDelay    time.Duration
	ThinkDelay   time.Duration
	TaskGap      time.Duration
	TickInterval time.Duration
}

// DefaultConfig returns the pacing used by the web service.
func DefaultConfig() Config {
	return Config{
		OutputDir:    ".",
		StepDelay:    500 * time.Millisecond,
		ThinkDelay:   time.Second,
		TaskGap:      1500 * time.Millisecond,
		TickInterval: 10 * time.Second,
	}
}

// Status is a point-in-time view of the executor.
type Status struct {
	IsRunning    bool       `json:"is_running"`
	RunID        string     `json:"run_id,omitempty"`
	CurrentTask  string     `json:"current_task"`
	CurrentAgent string     `json:"current_agent"`
	Progress     int        `json:"progress"`
	TotalTasks   int        `json:"total_tasks"`
	StartTime    *time.Time `json:"start_time"`
	OutputsCount int        `json:"outputs_count"`
}

// Executor runs at most one pipeline execution at a time.
type Executor struct {
	pipeline Pipeline
	logger   *progress.Logger
	cfg      Config
	tasks    []progress.TaskDescriptor
	tracer   trace.Tracer

	running atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc
	stopped   bool
	runID     string
	startTime time.Time
	emitCtx   context.Context
	last      *Result
}

// New creates an Executor that reports through logger.
func New(pipeline Pipeline, logger *progress.Logger, cfg Config) *Executor {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &Executor{
		pipeline: pipeline,
		logger:   logger,
		cfg:      cfg,
		tasks:    progress.Tasks,
		tracer:   otel.Tracer("featurecrew/executor"),
	}
}

// Logger returns the event logger the executor emits through.
func (e *Executor) Logger() *progress.Logger { return e.logger }

// Run executes the pipeline synchronously and returns its Result. A failed
// pipeline is reported in the Result, not as an error.
func (e *Executor) Run(ctx context.Context, featureRequest string) (*Result, error) {
	if strings.TrimSpace(featureRequest) == "" {
		return nil, ErrEmptyRequest
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	return e.execute(e.begin(ctx), featureRequest), nil
}

// Start acquires the execution slot and runs the pipeline in the background.
func (e *Executor) Start(featureRequest string) error {
	if strings.TrimSpace(featureRequest) == "" {
		return ErrEmptyRequest
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	r := e.begin(context.Background())
	go e.execute(r, featureRequest)
	return nil
}

// Stop cancels the running execution. The pipeline observes the cancellation
// at its next context check; the slot is released once it returns.
func (e *Executor) Stop() error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return ErrNotRunning
	}
	e.stopped = true
	e.cancel()
	log.Printf("component=executor action=stop run=%s", e.runID)
	return nil
}

// IsRunning reports whether an execution holds the slot.
func (e *Executor) IsRunning() bool { return e.running.Load() }

// Status returns the running flag together with the logger's pointers.
func (e *Executor) Status() Status {
	snap := e.logger.Current()
	st := Status{
		IsRunning:    e.running.Load(),
		CurrentTask:  snap.CurrentTask,
		CurrentAgent: snap.CurrentAgent,
		Progress:     snap.Progress,
		TotalTasks:   len(e.tasks),
		OutputsCount: snap.OutputsCount,
	}
	e.mu.Lock()
	if !e.startTime.IsZero() {
		start := e.startTime
		st.StartTime = &start
		st.RunID = e.runID
	}
	e.mu.Unlock()
	return st
}

// LastResult returns the most recent finished execution, or nil.
func (e *Executor) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// TaskDone reports that the pipeline finished the task at index. Pipelines
// with per-task callbacks call it during the blocking run; it is ignored when
// nothing is running.
func (e *Executor) TaskDone(index int, task string) {
	e.mu.Lock()
	ctx := e.emitCtx
	e.mu.Unlock()
	if ctx == nil || !e.running.Load() {
		return
	}

	agent := task
	if td, ok := progress.LookupTask(task); ok {
		agent = td.Agent
	}
	e.logger.AgentThinking(ctx, progress.PipelineAgent,
		fmt.Sprintf("%s finished %s (%d/%d)", agent, task, index+1, len(e.tasks)))
}

// run is the per-execution state created when the slot is acquired.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	emitCtx context.Context
	id      string
	start   time.Time
}

// begin publishes a new run's cancel func before the caller returns, so Stop
// can cancel any execution that holds the slot. The caller must hold the slot.
func (e *Executor) begin(parent context.Context) *run {
	runCtx, cancel := context.WithCancel(parent)
	// Emission must outlive cancellation so failure events still reach clients.
	r := &run{
		ctx:     runCtx,
		cancel:  cancel,
		emitCtx: context.WithoutCancel(runCtx),
		id:      ulid.Make().String(),
		start:   time.Now(),
	}

	e.mu.Lock()
	e.cancel = cancel
	e.stopped = false
	e.runID = r.id
	e.startTime = r.start
	e.emitCtx = r.emitCtx
	e.mu.Unlock()
	return r
}

// execute runs one execution begun by begin.
func (e *Executor) execute(r *run, featureRequest string) *Result {
	runCtx, cancel, emitCtx := r.ctx, r.cancel, r.emitCtx
	runID, start := r.id, r.start

	var result *Result
	defer func() {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.emitCtx = nil
		e.last = result
		e.mu.Unlock()
		e.running.Store(false)
	}()

	ctx, span := e.tracer.Start(runCtx, "executor.run", trace.WithAttributes(
		attribute.String("crew.run_id", runID),
		attribute.Int("crew.feature_request_len", len(featureRequest)),
	))
	defer span.End()
	emitCtx = trace.ContextWithSpan(emitCtx, span)

	log.Printf("component=executor action=start run=%s feature_request=%q", runID, featureRequest)

	e.logger.ClearOutputs()
	e.logger.AgentStart(emitCtx, progress.PipelineAgent, progress.PipelineTask)
	e.logger.AgentThinking(emitCtx, progress.PipelineAgent, "Starting sequential task execution...")
	e.logger.TaskComplete(emitCtx, "crew_start", progress.PipelineAgent, 0)

	res, err := e.kickoff(ctx, emitCtx, featureRequest)
	if err == nil && e.wasStopped() {
		err = errStopped
	}
	if err != nil {
		result = e.fail(emitCtx, runID, start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("crew.success", false))
		return result
	}

	if !e.narrate(ctx, emitCtx, res) || e.wasStopped() {
		err := ctx.Err()
		if err == nil || e.wasStopped() {
			err = errStopped
		}
		result = e.fail(emitCtx, runID, start, err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("crew.success", false))
		return result
	}

	files := e.generatedFiles()
	final := ""
	if res != nil {
		final = res.String()
	}
	elapsed := time.Since(start)
	e.logger.CrewComplete(emitCtx, true, elapsed, final)

	result = &Result{
		RunID:          runID,
		Success:        true,
		Outputs:        flattenOutputs(e.logger.Outputs(), e.tasks),
		ExecutionTime:  elapsed.Seconds(),
		GeneratedFiles: files,
		FinalResult:    final,
	}
	span.SetAttributes(attribute.Bool("crew.success", true))
	log.Printf("component=executor action=complete run=%s success=true duration=%s", runID, elapsed.Round(time.Millisecond))
	return result
}

// kickoff runs the pipeline on a worker goroutine while the ticker emits
// estimates. It returns once the pipeline does, however long that takes.
func (e *Executor) kickoff(ctx, emitCtx context.Context, featureRequest string) (extract.Result, error) {
	ctx, span := e.tracer.Start(ctx, "executor.kickoff")
	defer span.End()

	type outcome struct {
		res extract.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("component=executor action=pipeline_panic recovered=%v", r)
				done <- outcome{err: fmt.Errorf("pipeline panic: %v", r)}
			}
		}()
		res, err := e.pipeline.Kickoff(ctx, map[string]string{FeatureRequestInput: featureRequest})
		done <- outcome{res: res, err: err}
	}()

	tickCtx, stopTicker := context.WithCancel(ctx)
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		e.tick(tickCtx, emitCtx)
	}()

	out := <-done
	stopTicker()
	<-tickerDone

	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
	}
	return out.res, out.err
}

func (e *Executor) fail(emitCtx context.Context, runID string, start time.Time, err error) *Result {
	msg := err.Error()
	if e.wasStopped() {
		msg = errStopped.Error()
	}
	elapsed := time.Since(start)

	e.logger.Error(emitCtx, "Crew execution failed: "+msg, "", "")
	e.logger.CrewComplete(emitCtx, false, elapsed, msg)
	log.Printf("component=executor action=complete run=%s success=false err=%q", runID, msg)

	return &Result{
		RunID:          runID,
		Success:        false,
		Outputs:        flattenOutputs(e.logger.Outputs(), e.tasks),
		ErrorMessage:   msg,
		ExecutionTime:  elapsed.Seconds(),
		GeneratedFiles: []string{},
	}
}

func (e *Executor) wasStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// generatedFiles repairs and lists the files the crew left in the output dir.
func (e *Executor) generatedFiles() []string {
	files := []string{}
	path := filepath.Join(e.cfg.OutputDir, FrontendFile)
	if _, err := os.Stat(path); err != nil {
		return files
	}
	if err := repairHTMLFile(path); err != nil {
		log.Printf("component=executor action=html_repair_failed path=%s err=%v", path, err)
	}
	return append(files, FrontendFile)
}
