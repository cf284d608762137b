// Package orchestrator drives one conversational turn from plan validation
// through workflow execution to synthesis. A turn either produces a final
// answer, a degraded answer carrying an explicit failure marker, or a typed
// error; a failed step is never papered over with a default result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/classifier"
	"github.com/fyrsmithlabs/courtside/internal/events"
	"github.com/fyrsmithlabs/courtside/internal/logging"
	"github.com/fyrsmithlabs/courtside/internal/plan"
	"github.com/fyrsmithlabs/courtside/internal/synthesis"
	"github.com/fyrsmithlabs/courtside/internal/turn"
	"github.com/fyrsmithlabs/courtside/internal/turnstore"
)

// FailurePolicy decides what a terminal step failure produces.
type FailurePolicy string

const (
	// PolicySurface returns the step failure to the caller; synthesis is
	// not attempted.
	PolicySurface FailurePolicy = "surface"
	// PolicyDegrade synthesizes the partial history; the answer carries an
	// explicit failure marker.
	PolicyDegrade FailurePolicy = "degrade"
)

// Valid reports whether p is a recognized failure policy.
func (p FailurePolicy) Valid() bool {
	return p == PolicySurface || p == PolicyDegrade
}

// Config configures the turn orchestrator.
type Config struct {
	// TurnTimeout bounds a whole turn.
	TurnTimeout time.Duration
	// FailurePolicy applies on terminal step failure.
	FailurePolicy FailurePolicy
}

// TurnRequest is everything the orchestrator needs to run one turn.
type TurnRequest struct {
	// SessionKey addresses turn state; one live turn per key.
	SessionKey string
	// UserMessage is the user's question.
	UserMessage string
	// Game identifies the game the question is about.
	Game agent.GameMeta
	// Venue is optional venue metadata for steps that request it.
	Venue string
	// Plan is the planner's output for this message.
	Plan plan.TurnPlan
}

// Orchestrator coordinates turns end to end.
type Orchestrator struct {
	store     *turnstore.Store
	executor  *Executor
	registry  *agent.Registry
	estimator classifier.Estimator
	synth     synthesis.Synthesizer
	publisher events.Publisher
	cfg       Config
	logger    *zap.Logger
	metrics   *Metrics
}

// New creates a turn orchestrator.
func New(
	store *turnstore.Store,
	executor *Executor,
	registry *agent.Registry,
	estimator classifier.Estimator,
	synth synthesis.Synthesizer,
	publisher events.Publisher,
	cfg Config,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if store == nil || executor == nil || registry == nil || estimator == nil || synth == nil {
		return nil, fmt.Errorf("store, executor, registry, estimator, and synthesizer are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if !cfg.FailurePolicy.Valid() {
		return nil, fmt.Errorf("unknown failure policy %q", cfg.FailurePolicy)
	}
	if cfg.TurnTimeout == 0 {
		cfg.TurnTimeout = 3 * time.Minute
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{
		store:     store,
		executor:  executor,
		registry:  registry,
		estimator: estimator,
		synth:     synth,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		metrics:   NewMetrics(logger),
	}, nil
}

// RunTurn executes one turn.
//
// The plan is validated in full before anything else; an invalid plan fails
// with *plan.ValidationError and zero side effects. A valid plan creates a
// turn document in the state store (replacing or rejecting per the store's
// policy), runs every workflow step sequentially, and synthesizes the
// history into the final answer. Synthesis is attempted once; its failure is
// fatal for the turn.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (synthesis.FinalAnswer, error) {
	start := time.Now()

	if err := plan.Validate(req.Plan, o.registry.Has); err != nil {
		o.metrics.RecordTurn(ctx, "invalid_plan", time.Since(start))
		return synthesis.FinalAnswer{}, err
	}

	baseline, err := o.estimator.Estimate(ctx, req.Game.GameID)
	if err != nil {
		o.metrics.RecordTurn(ctx, "estimate_failed", time.Since(start))
		return synthesis.FinalAnswer{}, fmt.Errorf("baseline estimate for game %s: %w", req.Game.GameID, err)
	}

	doc := turn.NewDoc(req.SessionKey, req.UserMessage, req.Game, baseline, req.Plan)
	doc.Venue = req.Venue

	turnCtx, err := o.store.Begin(ctx, doc)
	if err != nil {
		o.metrics.RecordTurn(ctx, "rejected", time.Since(start))
		return synthesis.FinalAnswer{}, err
	}
	defer o.store.Finish(doc)

	turnCtx, cancel := context.WithTimeout(turnCtx, o.cfg.TurnTimeout)
	defer cancel()
	turnCtx = logging.WithTurnID(logging.WithSessionKey(turnCtx, req.SessionKey), doc.ID)

	logger := o.logger.With(logging.ContextFields(turnCtx)...)
	logger.Info("turn started",
		zap.String("game_id", req.Game.GameID),
		zap.Int("steps", len(req.Plan.Workflow)),
	)
	o.publisher.Publish(events.Event{
		Type:       events.TurnStarted,
		TurnID:     doc.ID,
		SessionKey: doc.SessionKey,
	})

	if _, err := o.executor.Run(turnCtx, doc); err != nil {
		return o.finishFailed(ctx, doc, logger, err, start)
	}

	answer, err := o.synth.Synthesize(turnCtx, doc.History(), doc.Plan.FinalSynthesisInstructions)
	if err != nil {
		o.metrics.RecordTurn(ctx, "synthesis_failed", time.Since(start))
		o.publisher.Publish(events.Event{
			Type:       events.TurnFailed,
			TurnID:     doc.ID,
			SessionKey: doc.SessionKey,
			Error:      err.Error(),
		})
		logger.Error("synthesis failed", zap.Error(err))
		return synthesis.FinalAnswer{}, err
	}
	answer.TurnID = doc.ID

	o.metrics.RecordTurn(ctx, "success", time.Since(start))
	o.publisher.Publish(events.Event{
		Type:       events.TurnCompleted,
		TurnID:     doc.ID,
		SessionKey: doc.SessionKey,
	})
	logger.Info("turn completed",
		zap.Int("history_entries", doc.HistoryLen()),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, nil
}

// finishFailed applies the failure policy after a terminal step failure or
// turn timeout.
func (o *Orchestrator) finishFailed(ctx context.Context, doc *turn.Doc, logger *zap.Logger, stepErr error, start time.Time) (synthesis.FinalAnswer, error) {
	o.publisher.Publish(events.Event{
		Type:       events.TurnFailed,
		TurnID:     doc.ID,
		SessionKey: doc.SessionKey,
		Error:      stepErr.Error(),
	})

	if o.cfg.FailurePolicy == PolicySurface {
		o.metrics.RecordTurn(ctx, "step_failed", time.Since(start))
		logger.Error("turn failed", zap.Error(stepErr))
		return synthesis.FinalAnswer{}, stepErr
	}

	// Degrade: synthesize whatever completed, marked as partial. The turn
	// context may already be dead, so synthesis gets its own bound.
	synthCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	answer, err := o.synth.Synthesize(synthCtx, doc.History(), doc.Plan.FinalSynthesisInstructions)
	if err != nil {
		o.metrics.RecordTurn(ctx, "synthesis_failed", time.Since(start))
		logger.Error("degraded synthesis failed", zap.Error(err))
		return synthesis.FinalAnswer{}, err
	}
	answer.TurnID = doc.ID
	answer.Degraded = true
	answer.FailureReason = stepErr.Error()

	o.metrics.RecordTurn(ctx, "degraded", time.Since(start))
	logger.Warn("turn degraded",
		zap.Int("history_entries", doc.HistoryLen()),
		zap.Error(stepErr),
	)
	return answer, nil
}
