package reagent

import "fmt"

// ParseError reports model output that matched neither the Final Answer nor
// the Action grammar. Raw carries the full completion text.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model output: %q", clip(e.Raw, 256))
}

// UnknownToolError reports an Invoke action naming a tool outside the run's
// allowed set. The transcript is left untouched.
type UnknownToolError struct {
	Tool string
	Step int
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q at step %d", e.Tool, e.Step)
}

// MaxStepsError reports a run that hit its step bound before reaching a
// final answer. LastRaw carries the most recent completion, empty when the
// bound was hit before the first model call.
type MaxStepsError struct {
	MaxSteps int
	LastRaw  string
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("no final answer after %d step(s)", e.MaxSteps)
}

// ToolError reports a failed tool invocation when the loop is configured to
// abort instead of feeding the failure back to the model as an observation.
type ToolError struct {
	Tool string
	Step int
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed at step %d: %v", e.Tool, e.Step, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ModelError reports a transport-level failure of the completion call.
type ModelError struct {
	Step int
	Err  error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed at step %d: %v", e.Step, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
