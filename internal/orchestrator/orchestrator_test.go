package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/plan"
	"github.com/fyrsmithlabs/courtside/internal/synthesis"
	"github.com/fyrsmithlabs/courtside/internal/turn"
	"github.com/fyrsmithlabs/courtside/internal/turnstore"
)

// fakeEstimator counts calls and returns a fixed baseline.
type fakeEstimator struct {
	baseline float64
	err      error
	calls    int
}

func (f *fakeEstimator) Estimate(_ context.Context, _ string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.baseline, nil
}

// fakeSynth captures what the orchestrator hands to synthesis.
type fakeSynth struct {
	mu              sync.Mutex
	calls           int
	gotHistory      []turn.HistoryEntry
	gotInstructions string
	err             error
}

func (f *fakeSynth) Synthesize(_ context.Context, history []turn.HistoryEntry, instructions string) (synthesis.FinalAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotHistory = history
	f.gotInstructions = instructions
	if f.err != nil {
		return synthesis.FinalAnswer{}, f.err
	}
	parts := make([]string, 0, len(history))
	for _, e := range history {
		parts = append(parts, e.Output.Summary)
	}
	return synthesis.FinalAnswer{Text: strings.Join(parts, "; ")}, nil
}

type harness struct {
	orch      *Orchestrator
	store     *turnstore.Store
	registry  *agent.Registry
	estimator *fakeEstimator
	synth     *fakeSynth
}

func newHarness(t *testing.T, policy FailurePolicy, invokers map[agent.ID]agent.Invoker) *harness {
	t.Helper()

	store, err := turnstore.New(turnstore.PolicySupersede)
	require.NoError(t, err)

	reg := agent.NewRegistry()
	for id, inv := range invokers {
		reg.Register(id, inv)
	}

	exec := newTestExecutor(reg, ExecutorConfig{Retry: fastRetry()})
	est := &fakeEstimator{baseline: 0.58}
	syn := &fakeSynth{}

	orch, err := New(store, exec, reg, est, syn, nil, Config{
		TurnTimeout:   5 * time.Second,
		FailurePolicy: policy,
	}, zap.NewNop())
	require.NoError(t, err)

	return &harness{orch: orch, store: store, registry: reg, estimator: est, synth: syn}
}

func marketScheduleRequest() TurnRequest {
	return TurnRequest{
		SessionKey:  "session:nfl:401810173",
		UserMessage: "Who wins Eagles at Cowboys?",
		Game: agent.GameMeta{
			GameID:   "401810173",
			League:   "nfl",
			HomeTeam: "Cowboys",
			AwayTeam: "Eagles",
		},
		Plan: plan.TurnPlan{
			Narrative: "check the market, then the schedule angle",
			Workflow: []plan.WorkflowStep{
				{Agent: agent.MarketExpert, Instruction: "read the moneyline", Requires: []plan.ContextField{plan.FieldUserMessage}},
				{Agent: agent.ScheduleExpert, Instruction: "compare rest days", Requires: []plan.ContextField{plan.FieldPriorOutputs}},
			},
			FinalSynthesisInstructions: "one short paragraph with a lean",
		},
	}
}

func TestRunTurn_HappyPath(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("market leans home")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){succeeds("rest favors home")}},
	})

	answer, err := h.orch.RunTurn(context.Background(), marketScheduleRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, answer.TurnID)
	assert.False(t, answer.Degraded)
	assert.Empty(t, answer.FailureReason)
	assert.Equal(t, "market leans home; rest favors home", answer.Text)

	// Synthesis sees the full history in execution order and the plan's
	// instructions verbatim.
	assert.Equal(t, 1, h.synth.calls)
	require.Len(t, h.synth.gotHistory, 2)
	assert.Equal(t, agent.MarketExpert, h.synth.gotHistory[0].Agent)
	assert.Equal(t, agent.ScheduleExpert, h.synth.gotHistory[1].Agent)
	assert.Equal(t, "one short paragraph with a lean", h.synth.gotInstructions)

	// The turn is released from the store once it resolves.
	assert.Zero(t, h.store.Len())
}

func TestRunTurn_InvalidPlanHasNoSideEffects(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert: &fakeInvoker{results: []func() (agent.Output, error){succeeds("unused")}},
	})

	req := marketScheduleRequest()
	req.Plan.Workflow[1].Agent = "weather_expert"
	req.Plan.FinalSynthesisInstructions = ""

	_, err := h.orch.RunTurn(context.Background(), req)

	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	// Validation reports every problem, not just the first.
	assert.Len(t, verr.Problems, 2)

	assert.Zero(t, h.estimator.calls)
	assert.Zero(t, h.synth.calls)
	assert.Zero(t, h.store.Len())
}

func TestRunTurn_EstimatorFailureAbortsTurn(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("unused")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){succeeds("unused")}},
	})
	h.estimator.err = assert.AnError

	_, err := h.orch.RunTurn(context.Background(), marketScheduleRequest())
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, h.synth.calls)
	assert.Zero(t, h.store.Len())
}

func TestRunTurn_BaselineReachesSpecialists(t *testing.T) {
	var seen float64
	capture := &fakeInvoker{results: []func() (agent.Output, error){succeeds("ok")}}
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert: capturingInvoker(capture, func(slice agent.ContextSlice) { seen = slice.BaselineEstimate }),
	})

	req := marketScheduleRequest()
	req.Plan.Workflow = req.Plan.Workflow[:1]

	_, err := h.orch.RunTurn(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.58, seen, 1e-9)
}

// capturingInvoker wraps an invoker to observe the context slice it receives.
func capturingInvoker(inner agent.Invoker, observe func(agent.ContextSlice)) agent.Invoker {
	return invokerFunc(func(ctx context.Context, instruction string, slice agent.ContextSlice) (agent.Output, error) {
		observe(slice)
		return inner.Invoke(ctx, instruction, slice)
	})
}

type invokerFunc func(context.Context, string, agent.ContextSlice) (agent.Output, error)

func (f invokerFunc) Invoke(ctx context.Context, instruction string, slice agent.ContextSlice) (agent.Output, error) {
	return f(ctx, instruction, slice)
}

func TestRunTurn_SurfacePolicyReturnsStepError(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("market leans home")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){fails(assert.AnError)}},
	})

	_, err := h.orch.RunTurn(context.Background(), marketScheduleRequest())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, agent.ScheduleExpert, stepErr.Agent)
	assert.ErrorIs(t, err, assert.AnError)

	// Surfacing means no synthesis attempt, not even over the partial history.
	assert.Zero(t, h.synth.calls)
	assert.Zero(t, h.store.Len())
}

func TestRunTurn_DegradePolicySynthesizesPartialHistory(t *testing.T) {
	h := newHarness(t, PolicyDegrade, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("market leans home")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){fails(assert.AnError)}},
	})

	answer, err := h.orch.RunTurn(context.Background(), marketScheduleRequest())
	require.NoError(t, err)

	assert.True(t, answer.Degraded)
	assert.NotEmpty(t, answer.FailureReason)
	assert.Equal(t, "market leans home", answer.Text)

	require.Len(t, h.synth.gotHistory, 1)
	assert.Equal(t, agent.MarketExpert, h.synth.gotHistory[0].Agent)
}

func TestRunTurn_SynthesisFailureIsFatal(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("a")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){succeeds("b")}},
	})
	h.synth.err = assert.AnError

	_, err := h.orch.RunTurn(context.Background(), marketScheduleRequest())
	require.ErrorIs(t, err, assert.AnError)
	// One attempt, no retry.
	assert.Equal(t, 1, h.synth.calls)
	assert.Zero(t, h.store.Len())
}

func TestRunTurn_TurnTimeoutSurfaces(t *testing.T) {
	slow := invokerFunc(func(ctx context.Context, _ string, _ agent.ContextSlice) (agent.Output, error) {
		select {
		case <-ctx.Done():
			return agent.Output{}, ctx.Err()
		case <-time.After(time.Second):
			return agent.Output{Summary: "too late"}, nil
		}
	})

	store, err := turnstore.New(turnstore.PolicySupersede)
	require.NoError(t, err)
	reg := agent.NewRegistry()
	reg.Register(agent.MarketExpert, slow)
	reg.Register(agent.ScheduleExpert, slow)
	exec := newTestExecutor(reg, ExecutorConfig{Retry: fastRetry()})
	syn := &fakeSynth{}

	orch, err := New(store, exec, reg, &fakeEstimator{baseline: 0.5}, syn, nil, Config{
		TurnTimeout:   25 * time.Millisecond,
		FailurePolicy: PolicySurface,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = orch.RunTurn(context.Background(), marketScheduleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, syn.calls)
	assert.Zero(t, store.Len())
}

func TestRunTurn_ResubmissionSupersedesInFlightTurn(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	blocking := invokerFunc(func(ctx context.Context, _ string, _ agent.ContextSlice) (agent.Output, error) {
		once.Do(func() { close(firstStarted) })
		select {
		case <-ctx.Done():
			return agent.Output{}, ctx.Err()
		case <-release:
			return agent.Output{Summary: "done"}, nil
		}
	})

	store, err := turnstore.New(turnstore.PolicySupersede)
	require.NoError(t, err)
	reg := agent.NewRegistry()
	reg.Register(agent.MarketExpert, blocking)
	reg.Register(agent.ScheduleExpert, blocking)
	exec := newTestExecutor(reg, ExecutorConfig{Retry: fastRetry()})

	orch, err := New(store, exec, reg, &fakeEstimator{baseline: 0.5}, &fakeSynth{}, nil, Config{
		TurnTimeout:   5 * time.Second,
		FailurePolicy: PolicySurface,
	}, zap.NewNop())
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := orch.RunTurn(context.Background(), marketScheduleRequest())
		firstDone <- err
	}()

	<-firstStarted

	// Second turn on the same session key cancels the first.
	req := marketScheduleRequest()
	req.UserMessage = "Actually, what about the spread?"
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	answer, err := orch.RunTurn(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, answer.TurnID)

	firstErr := <-firstDone
	require.Error(t, firstErr)
	assert.ErrorIs(t, firstErr, context.Canceled)
	assert.Zero(t, store.Len())
}

func TestRunTurn_SessionKeysAreIsolated(t *testing.T) {
	h := newHarness(t, PolicySurface, map[agent.ID]agent.Invoker{
		agent.MarketExpert:   &fakeInvoker{results: []func() (agent.Output, error){succeeds("m1"), succeeds("m2")}},
		agent.ScheduleExpert: &fakeInvoker{results: []func() (agent.Output, error){succeeds("s1"), succeeds("s2")}},
	})

	reqA := marketScheduleRequest()
	reqA.SessionKey = "session:a"
	reqB := marketScheduleRequest()
	reqB.SessionKey = "session:b"

	answerA, err := h.orch.RunTurn(context.Background(), reqA)
	require.NoError(t, err)
	answerB, err := h.orch.RunTurn(context.Background(), reqB)
	require.NoError(t, err)

	assert.NotEqual(t, answerA.TurnID, answerB.TurnID)
	assert.Zero(t, h.store.Len())
}

func TestNew_RejectsMissingDependencies(t *testing.T) {
	store, err := turnstore.New(turnstore.PolicySupersede)
	require.NoError(t, err)
	reg := agent.NewRegistry()
	exec := newTestExecutor(reg, ExecutorConfig{})

	_, err = New(nil, exec, reg, &fakeEstimator{}, &fakeSynth{}, nil, Config{FailurePolicy: PolicySurface}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(store, exec, reg, &fakeEstimator{}, &fakeSynth{}, nil, Config{FailurePolicy: "retry_forever"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(store, exec, reg, &fakeEstimator{}, &fakeSynth{}, nil, Config{FailurePolicy: PolicySurface}, nil)
	assert.Error(t, err)
}
