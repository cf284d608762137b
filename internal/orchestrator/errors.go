package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/toolgateway"
)

// StepError reports the terminal failure of one workflow step. Steps after
// the failed one never run; the workflow history contains exactly the steps
// that completed before it.
type StepError struct {
	// Step is the zero-based index of the failed step.
	Step int
	// Agent is the specialist the step was dispatched to.
	Agent agent.ID
	// Attempts is how many times the step ran before being declared
	// terminal.
	Attempts int
	// Err is the underlying failure from the last attempt.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed after %d attempt(s): %v", e.Step, e.Agent, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// transient reports whether a step failure may be retried. Timeouts are
// transient. Decode errors are transient only when the deployment says the
// upstream source is flaky. Capability violations, invalid arguments,
// malformed output, agent execution failures, and cancellation are all
// terminal.
func transient(err error, retryDecodeErrors bool) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var decodeErr *toolgateway.DecodeError
	if retryDecodeErrors && errors.As(err, &decodeErr) {
		return true
	}
	return false
}
