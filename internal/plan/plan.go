// Package plan defines the turn plan shape produced by the upstream planner
// and its validation rules. A plan is immutable once built; validation runs
// in full before any workflow step executes, so an invalid plan has zero
// side effects.
package plan

import (
	"github.com/fyrsmithlabs/courtside/internal/agent"
)

// ContextField names an opt-in context field a workflow step may request in
// its slice. Fields outside this set are rejected at validation time.
type ContextField string

const (
	// FieldUserMessage exposes the raw user message to the step.
	FieldUserMessage ContextField = "user_message"
	// FieldPriorOutputs exposes the outputs of previously completed steps.
	// This is the only way a step may observe workflow history.
	FieldPriorOutputs ContextField = "prior_outputs"
	// FieldVenue exposes venue metadata when the turn carries it.
	FieldVenue ContextField = "venue"
)

// Valid reports whether f is a recognized opt-in field.
func (f ContextField) Valid() bool {
	switch f {
	case FieldUserMessage, FieldPriorOutputs, FieldVenue:
		return true
	}
	return false
}

// WorkflowStep is a request to run one specialist with one instruction.
type WorkflowStep struct {
	// Agent must resolve to a registered specialist before execution begins.
	Agent agent.ID `json:"agent"`
	// Instruction is passed verbatim to the specialist.
	Instruction string `json:"instruction"`
	// Requires lists the opt-in context fields this step's slice receives
	// beyond the always-shared game identity and baseline estimate.
	Requires []ContextField `json:"requires,omitempty"`
}

// TurnPlan is the ordered execution plan for one user turn. Order is
// significant; steps run sequentially in the order given.
type TurnPlan struct {
	// Narrative is the planner's free-text rationale. Diagnostic only,
	// never parsed.
	Narrative string `json:"narrative,omitempty"`
	// Workflow is the ordered list of specialist invocations.
	Workflow []WorkflowStep `json:"workflow"`
	// FinalSynthesisInstructions is consumed only by the synthesis stage.
	FinalSynthesisInstructions string `json:"final_synthesis_instructions"`
}
