package plan

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/courtside/internal/agent"
)

// ValidationError reports a malformed or unresolvable plan. It is raised
// before any step executes; a turn that fails validation performs no tool
// calls and appends nothing to history.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid turn plan: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the structural and referential integrity of a plan.
// resolve reports whether a specialist identity is registered; every step's
// agent must resolve. Returns *ValidationError listing every problem found.
func Validate(p TurnPlan, resolve func(agent.ID) bool) error {
	var problems []string

	if len(p.Workflow) == 0 {
		problems = append(problems, "workflow is empty")
	}
	if strings.TrimSpace(p.FinalSynthesisInstructions) == "" {
		problems = append(problems, "final_synthesis_instructions is missing")
	}

	for i, step := range p.Workflow {
		if !step.Agent.Valid() {
			problems = append(problems, fmt.Sprintf("step %d: unknown agent %q", i, step.Agent))
		} else if resolve != nil && !resolve(step.Agent) {
			problems = append(problems, fmt.Sprintf("step %d: agent %q is not registered", i, step.Agent))
		}
		if strings.TrimSpace(step.Instruction) == "" {
			problems = append(problems, fmt.Sprintf("step %d: instruction is empty", i))
		}
		for _, f := range step.Requires {
			if !f.Valid() {
				problems = append(problems, fmt.Sprintf("step %d: unknown context field %q", i, f))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
