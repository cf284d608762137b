// Package agent defines the specialist identities known to the orchestration
// engine, the context slice contract each specialist receives, and the
// Invoker abstraction over a specialist's implementation.
//
// The engine never depends on how a specialist produces its output. An
// Invoker may be backed by a language model, a rules engine, or a scripted
// test double; the orchestrator only sees (instruction, slice) in and
// (Output, error) out.
package agent

import (
	"context"
	"sync"
	"time"
)

// ID identifies a registered specialist. The set of valid IDs is closed;
// plans referencing anything else fail validation before execution.
type ID string

const (
	// MarketExpert analyzes betting markets and odds for a game.
	MarketExpert ID = "market_expert"
	// ScheduleExpert analyzes scheduling context: rest days, travel, timing.
	ScheduleExpert ID = "schedule_expert"
	// StatsExpert analyzes team statistical profiles.
	StatsExpert ID = "stats_expert"
)

// KnownIDs returns every valid specialist identity.
func KnownIDs() []ID {
	return []ID{MarketExpert, ScheduleExpert, StatsExpert}
}

// Valid reports whether id is a member of the closed specialist set.
func (id ID) Valid() bool {
	switch id {
	case MarketExpert, ScheduleExpert, StatsExpert:
		return true
	}
	return false
}

// GameMeta is the always-shared game identity carried by every context slice.
type GameMeta struct {
	GameID   string    `json:"game_id"`
	League   string    `json:"league"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Start    time.Time `json:"start"`
}

// FieldValue is one step-specific context field. Slices carry fields as a
// sorted list rather than a map so that identical inputs serialize to
// identical bytes.
type FieldValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ContextSlice is the narrowed, read-only view of turn state handed to one
// specialist for one workflow step. It carries the shared game identity, the
// classifier's baseline estimate, and only the fields the step explicitly
// declared. Workflow history is never present unless the step opted in.
type ContextSlice struct {
	Game             GameMeta     `json:"game"`
	BaselineEstimate float64      `json:"baseline_estimate"`
	Fields           []FieldValue `json:"fields,omitempty"`
}

// Field returns the value of a step-specific field, if present.
func (s ContextSlice) Field(key string) (string, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Output is the structured result of one specialist invocation.
type Output struct {
	// Summary is the specialist's finding in prose form.
	Summary string `json:"summary"`
	// Data carries structured key/value findings (e.g. "home_moneyline").
	Data map[string]string `json:"data,omitempty"`
}

// Invoker runs one specialist. Implementations classify their own failures:
// tool-layer errors propagate unchanged so the executor can apply its retry
// policy, internal failures are reported as *ExecutionError, and unparseable
// results as *MalformedOutputError.
type Invoker interface {
	Invoke(ctx context.Context, instruction string, slice ContextSlice) (Output, error)
}

// Registry maps specialist identities to their Invoker implementations.
// All workflow step agents must resolve here before a turn executes.
type Registry struct {
	mu       sync.RWMutex
	invokers map[ID]Invoker
}

// NewRegistry creates an empty specialist registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[ID]Invoker)}
}

// Register binds a specialist identity to an invoker. Invalid identities are
// ignored; the ID set is closed.
func (r *Registry) Register(id ID, inv Invoker) {
	if !id.Valid() || inv == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[id] = inv
}

// Resolve returns the invoker registered for id.
func (r *Registry) Resolve(id ID) (Invoker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invokers[id]
	return inv, ok
}

// Has reports whether id has a registered invoker.
func (r *Registry) Has(id ID) bool {
	_, ok := r.Resolve(id)
	return ok
}

// IDs returns the identities currently registered.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.invokers))
	for id := range r.invokers {
		ids = append(ids, id)
	}
	return ids
}
