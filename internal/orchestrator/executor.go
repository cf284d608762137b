package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/events"
	"github.com/fyrsmithlabs/courtside/internal/turn"
)

// StepStatus is the execution state of one workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepReport is the final state of one step after a run. On the failure
// path, every step after the failed one remains pending.
type StepReport struct {
	Agent    agent.ID
	Status   StepStatus
	Attempts int
	Err      error
}

// RetryConfig bounds retries of transient step failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier is the exponential growth factor.
	Multiplier float64
}

// ApplyDefaults sets defaults for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
}

// ExecutorConfig configures the workflow executor.
type ExecutorConfig struct {
	// StepTimeout bounds one invocation attempt.
	StepTimeout time.Duration
	// Retry bounds transient-failure retries per step.
	Retry RetryConfig
	// RetryDecodeErrors treats payload decode failures as transient.
	RetryDecodeErrors bool
}

// Executor runs a turn's workflow steps strictly in plan order. Steps are
// never parallelized: later steps may depend on the cumulative context
// earlier ones produced.
type Executor struct {
	registry  *agent.Registry
	cfg       ExecutorConfig
	logger    *zap.Logger
	metrics   *Metrics
	publisher events.Publisher
}

// NewExecutor creates a workflow executor.
func NewExecutor(registry *agent.Registry, cfg ExecutorConfig, logger *zap.Logger, publisher events.Publisher) *Executor {
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	cfg.Retry.ApplyDefaults()
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Executor{
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		metrics:   NewMetrics(logger),
		publisher: publisher,
	}
}

// Run executes every step of doc's plan in order, appending each result to
// the workflow history. The first terminal step failure halts the run: the
// error is returned, the failed step is reported as failed, and all
// subsequent steps stay pending. History gains exactly one entry per
// succeeded step, in execution order.
func (e *Executor) Run(ctx context.Context, doc *turn.Doc) ([]StepReport, error) {
	reports := make([]StepReport, len(doc.Plan.Workflow))
	for i, step := range doc.Plan.Workflow {
		reports[i] = StepReport{Agent: step.Agent, Status: StepPending}
	}

	for i, step := range doc.Plan.Workflow {
		if err := ctx.Err(); err != nil {
			reports[i].Status = StepFailed
			reports[i].Err = err
			return reports, &StepError{Step: i, Agent: step.Agent, Attempts: reports[i].Attempts, Err: err}
		}

		reports[i].Status = StepRunning
		e.publisher.Publish(events.Event{
			Type:       events.StepStarted,
			TurnID:     doc.ID,
			SessionKey: doc.SessionKey,
			Agent:      string(step.Agent),
			Step:       i,
		})

		output, attempts, err := e.runStep(ctx, doc, i)
		reports[i].Attempts = attempts
		if err != nil {
			reports[i].Status = StepFailed
			reports[i].Err = err
			e.metrics.RecordStep(ctx, string(step.Agent), string(StepFailed))
			e.publisher.Publish(events.Event{
				Type:       events.StepFailed,
				TurnID:     doc.ID,
				SessionKey: doc.SessionKey,
				Agent:      string(step.Agent),
				Step:       i,
				Error:      err.Error(),
			})
			e.logger.Error("workflow step failed",
				zap.Int("step", i),
				zap.String("agent", string(step.Agent)),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			return reports, &StepError{Step: i, Agent: step.Agent, Attempts: attempts, Err: err}
		}

		if err := doc.Append(turn.HistoryEntry{Agent: step.Agent, Output: output}); err != nil {
			reports[i].Status = StepFailed
			reports[i].Err = err
			return reports, &StepError{Step: i, Agent: step.Agent, Attempts: attempts, Err: err}
		}
		reports[i].Status = StepSucceeded
		e.metrics.RecordStep(ctx, string(step.Agent), string(StepSucceeded))
		e.publisher.Publish(events.Event{
			Type:       events.StepSucceeded,
			TurnID:     doc.ID,
			SessionKey: doc.SessionKey,
			Agent:      string(step.Agent),
			Step:       i,
		})
	}

	return reports, nil
}

// runStep executes one step with bounded retries for transient failures.
// Returns the output, the number of attempts made, and the terminal error
// if every permitted attempt failed.
func (e *Executor) runStep(ctx context.Context, doc *turn.Doc, idx int) (agent.Output, int, error) {
	step := doc.Plan.Workflow[idx]

	inv, ok := e.registry.Resolve(step.Agent)
	if !ok {
		// Plans are validated before execution; reaching this means the
		// registry changed mid-turn.
		return agent.Output{}, 0, &agent.ExecutionError{Agent: step.Agent, Err: fmt.Errorf("no invoker registered")}
	}

	slice := turn.BuildSlice(doc, step)

	var lastErr error
	backoff := e.cfg.Retry.InitialBackoff
	attempts := 0

	for attempt := 0; attempt <= e.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			e.metrics.RecordRetry(ctx, string(step.Agent))
			e.publisher.Publish(events.Event{
				Type:       events.StepRetried,
				TurnID:     doc.ID,
				SessionKey: doc.SessionKey,
				Agent:      string(step.Agent),
				Step:       idx,
				Error:      lastErr.Error(),
			})
			e.logger.Warn("retrying workflow step",
				zap.Int("step", idx),
				zap.String("agent", string(step.Agent)),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return agent.Output{}, attempts, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * e.cfg.Retry.Multiplier)
			if backoff > e.cfg.Retry.MaxBackoff {
				backoff = e.cfg.Retry.MaxBackoff
			}
		}

		attempts++
		stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
		output, err := inv.Invoke(stepCtx, step.Instruction, slice)
		cancel()
		if err == nil {
			return output, attempts, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			// Turn-level timeout or cancellation; never retry past it.
			return agent.Output{}, attempts, ctx.Err()
		}
		if !transient(err, e.cfg.RetryDecodeErrors) {
			return agent.Output{}, attempts, err
		}
	}

	return agent.Output{}, attempts, lastErr
}
