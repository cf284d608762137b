// Package synthesis defines the terminal stage of a turn: composing the
// completed workflow history into the user-facing answer. The composition
// capability is opaque to the orchestrator; it gets the history in execution
// order and the plan's synthesis instructions verbatim, and it is attempted
// exactly once per turn.
package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/courtside/internal/turn"
)

// FinalAnswer is the turn's user-facing result.
type FinalAnswer struct {
	// TurnID identifies the turn that produced this answer.
	TurnID string `json:"turn_id"`
	// Text is the composed answer.
	Text string `json:"text"`
	// Degraded is true when the answer was synthesized from a partial
	// history after a step failure. Degraded answers always carry a
	// FailureReason; a normal success never does.
	Degraded bool `json:"degraded,omitempty"`
	// FailureReason describes the failure that truncated the workflow.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Error reports a synthesis failure. Fatal for the turn; the orchestrator
// does not retry synthesis.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Synthesizer composes the final answer from the workflow history.
type Synthesizer interface {
	Synthesize(ctx context.Context, history []turn.HistoryEntry, instructions string) (FinalAnswer, error)
}

// Template is a rules-based synthesizer that renders specialist findings as
// a structured digest. It keeps the engine runnable end to end without a
// language model; deployments swap in a generation-backed Synthesizer.
type Template struct{}

// Synthesize renders the history into a digest, one section per completed
// step, in execution order.
func (Template) Synthesize(_ context.Context, history []turn.HistoryEntry, instructions string) (FinalAnswer, error) {
	if strings.TrimSpace(instructions) == "" {
		return FinalAnswer{}, &Error{Err: fmt.Errorf("synthesis instructions are empty")}
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n")
	for _, e := range history {
		b.WriteString(fmt.Sprintf("\n[%s] %s", e.Agent, e.Output.Summary))
		keys := make([]string, 0, len(e.Output.Data))
		for k := range e.Output.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %s", k, e.Output.Data[k]))
		}
	}
	if len(history) == 0 {
		b.WriteString("\nNo analysis steps completed.")
	}

	return FinalAnswer{Text: b.String()}, nil
}
