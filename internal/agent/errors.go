package agent

import (
	"encoding/json"
	"fmt"
)

// ExecutionError reports a failure internal to a specialist's own
// processing, as opposed to a tool-layer failure.
type ExecutionError struct {
	Agent ID
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s execution failed: %v", e.Agent, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// MalformedOutputError reports that a specialist's raw result could not be
// parsed into the expected Output shape.
type MalformedOutputError struct {
	Agent ID
	Err   error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("agent %s returned malformed output: %v", e.Agent, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// ParseOutput decodes a specialist's raw JSON result into an Output.
// Implementations backed by free-text generators use this to enforce the
// structured-output contract; failures are typed, never coerced.
func ParseOutput(id ID, raw []byte) (Output, error) {
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return Output{}, &MalformedOutputError{Agent: id, Err: err}
	}
	if out.Summary == "" {
		return Output{}, &MalformedOutputError{Agent: id, Err: fmt.Errorf("missing summary")}
	}
	return out, nil
}
