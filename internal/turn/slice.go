package turn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/plan"
)

// BuildSlice derives the context slice for one workflow step. It is a pure
// function of the document snapshot and the step's declared requirements:
// the same inputs always produce an identical slice, with fields in sorted
// key order so serialized forms are byte-identical.
//
// Workflow history is consulted only when the step requires
// plan.FieldPriorOutputs; there is no default visibility into prior steps.
func BuildSlice(doc *Doc, step plan.WorkflowStep) agent.ContextSlice {
	slice := agent.ContextSlice{
		Game:             doc.Game,
		BaselineEstimate: doc.Baseline,
	}

	seen := make(map[plan.ContextField]bool, len(step.Requires))
	for _, f := range step.Requires {
		if seen[f] {
			continue
		}
		seen[f] = true
		switch f {
		case plan.FieldUserMessage:
			slice.Fields = append(slice.Fields, agent.FieldValue{
				Key:   string(plan.FieldUserMessage),
				Value: doc.UserMessage,
			})
		case plan.FieldVenue:
			slice.Fields = append(slice.Fields, agent.FieldValue{
				Key:   string(plan.FieldVenue),
				Value: doc.Venue,
			})
		case plan.FieldPriorOutputs:
			slice.Fields = append(slice.Fields, agent.FieldValue{
				Key:   string(plan.FieldPriorOutputs),
				Value: renderPriorOutputs(doc.history),
			})
		}
	}

	sort.Slice(slice.Fields, func(i, j int) bool {
		return slice.Fields[i].Key < slice.Fields[j].Key
	})
	return slice
}

// renderPriorOutputs flattens completed-step outputs into a compact,
// order-preserving text form.
func renderPriorOutputs(history []HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, e := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Agent, e.Output.Summary))
	}
	return strings.Join(lines, "\n")
}
