// Package turn holds the turn-scoped aggregate: the document created for one
// user message, its append-only workflow history, and the builder that
// derives per-step context slices from it.
package turn

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/plan"
)

// HistoryEntry records one completed workflow step. Entries are appended in
// execution order and never reordered or deduplicated, even when the same
// specialist runs twice.
type HistoryEntry struct {
	Agent  agent.ID     `json:"agent"`
	Output agent.Output `json:"output"`
}

// Doc is the aggregate root for one turn. It is owned by a single
// orchestration flow; the only permitted mutation is appending to history.
type Doc struct {
	// ID uniquely identifies this turn across its lifetime.
	ID string
	// SessionKey addresses the turn in the state store.
	SessionKey string
	// UserMessage is the message that started the turn.
	UserMessage string
	// Game is the game this turn is about.
	Game agent.GameMeta
	// Baseline is the classifier's win-probability estimate for the home
	// team, shared with every specialist.
	Baseline float64
	// Venue is optional venue metadata, exposed only to steps that
	// request plan.FieldVenue.
	Venue string
	// Plan is the immutable execution plan for this turn.
	Plan plan.TurnPlan

	history []HistoryEntry
}

// NewDoc creates the turn document for a user message.
func NewDoc(sessionKey, userMessage string, game agent.GameMeta, baseline float64, p plan.TurnPlan) *Doc {
	return &Doc{
		ID:          uuid.NewString(),
		SessionKey:  sessionKey,
		UserMessage: userMessage,
		Game:        game,
		Baseline:    baseline,
		Plan:        p,
	}
}

// Append records a completed step. History length can never exceed the plan
// length; a violation indicates an executor bug and is rejected.
func (d *Doc) Append(e HistoryEntry) error {
	if len(d.history) >= len(d.Plan.Workflow) {
		return fmt.Errorf("history full: %d entries for %d planned steps", len(d.history), len(d.Plan.Workflow))
	}
	d.history = append(d.history, e)
	return nil
}

// History returns a copy of the workflow history in execution order.
func (d *Doc) History() []HistoryEntry {
	out := make([]HistoryEntry, len(d.history))
	copy(out, d.history)
	return out
}

// HistoryLen returns the number of completed steps.
func (d *Doc) HistoryLen() int {
	return len(d.history)
}
