package retrieval

import "fmt"

// Error reports a failed embedding or store operation. Callers that must
// distinguish capability failures from validation errors can errors.As for
// it; Unwrap exposes the provider's underlying error.
type Error struct {
	Op  string // "build" or "query"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func buildError(format string, args ...any) error {
	return &Error{Op: "build", Err: fmt.Errorf(format, args...)}
}

func queryError(format string, args ...any) error {
	return &Error{Op: "query", Err: fmt.Errorf(format, args...)}
}
