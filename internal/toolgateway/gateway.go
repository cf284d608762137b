// Package toolgateway enforces the per-agent tool access contract. Every
// data retrieval a specialist performs goes through Gateway.Call, which
// checks the static capability table before anything else, validates the
// arguments against the tool's schema, fetches the compact payload from the
// upstream source, and decodes it into the tool's result type.
package toolgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/sportsdata"
)

// Call is one tool invocation request.
type Call struct {
	// Tool is the catalog name of the tool.
	Tool string `json:"tool"`
	// Args are the raw arguments, validated against the tool's schema.
	Args map[string]string `json:"args"`
}

// Result is a decoded tool payload.
type Result struct {
	// Tool is the catalog name that produced this result.
	Tool string
	// Payload is the tool-specific decoded structure (*MarketBook,
	// *GameSchedule, or *TeamStats).
	Payload any
}

// Gateway mediates all tool access for specialists.
type Gateway struct {
	source   sportsdata.Source
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *Metrics
}

// New creates a gateway over the given data source.
func New(source sportsdata.Source, logger *zap.Logger) (*Gateway, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Gateway{
		source:   source,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		metrics:  NewMetrics(logger),
	}, nil
}

// CallTool executes one tool call on behalf of a specialist.
//
// The capability check runs before argument validation and before any
// network access: an unauthorized call never reaches the upstream source.
// Every call, permitted or not, is logged with agent, tool, and arguments.
func (g *Gateway) CallTool(ctx context.Context, agentID agent.ID, call Call) (Result, error) {
	g.logger.Info("tool call",
		zap.String("agent", string(agentID)),
		zap.String("tool", call.Tool),
		zap.Any("args", call.Args),
	)

	spec, known := catalog[call.Tool]
	if !known || !Allowed(agentID, call.Tool) {
		g.metrics.RecordViolation(ctx, string(agentID), call.Tool)
		return Result{}, &CapabilityViolationError{Agent: string(agentID), Tool: call.Tool}
	}

	if err := g.validateArgs(spec, call); err != nil {
		return Result{}, err
	}

	start := time.Now()
	payload, err := g.source.Fetch(ctx, spec.endpoint, call.Args)
	if err != nil {
		g.metrics.RecordCall(ctx, string(agentID), call.Tool, time.Since(start), err)
		return Result{}, fmt.Errorf("tool %s: %w", call.Tool, err)
	}

	result := spec.newResult()
	if err := sportsdata.DecodePayload(payload, result); err != nil {
		derr := &DecodeError{Tool: call.Tool, Err: err}
		g.metrics.RecordCall(ctx, string(agentID), call.Tool, time.Since(start), derr)
		return Result{}, derr
	}

	g.metrics.RecordCall(ctx, string(agentID), call.Tool, time.Since(start), nil)
	return Result{Tool: call.Tool, Payload: result}, nil
}

// validateArgs binds the raw arguments to the tool's schema struct and runs
// the declared validation rules.
func (g *Gateway) validateArgs(spec toolSpec, call Call) error {
	raw, err := json.Marshal(call.Args)
	if err != nil {
		return &InvalidArgumentsError{Tool: call.Tool, Err: err}
	}
	args := spec.newArgs()
	if err := json.Unmarshal(raw, args); err != nil {
		return &InvalidArgumentsError{Tool: call.Tool, Err: err}
	}
	if err := g.validate.Struct(args); err != nil {
		return &InvalidArgumentsError{Tool: call.Tool, Err: err}
	}
	return nil
}
