package toolgateway

import "fmt"

// CapabilityViolationError reports a tool call outside the calling agent's
// registered capability set. It is raised before any data access and is
// never retried.
type CapabilityViolationError struct {
	Agent string
	Tool  string
}

func (e *CapabilityViolationError) Error() string {
	return fmt.Sprintf("agent %s is not permitted to call tool %s", e.Agent, e.Tool)
}

// InvalidArgumentsError reports tool arguments that fail the tool's declared
// schema.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }

// DecodeError reports a compact payload that could not be expanded into the
// tool's result shape. The payload is never coerced into a partial or empty
// result; the error propagates to the calling agent.
type DecodeError struct {
	Tool string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable payload from tool %s: %v", e.Tool, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
