package booking

import "fmt"

// FlowError is a typed flow-layer failure: a short machine code plus a
// human-readable message, matched by handlers to pick a status code.
type FlowError struct {
	Code    string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewFlowError(code, msg string) error {
	return &FlowError{Code: code, Message: msg}
}

// ErrSessionNotFound is returned when a flow session id is unknown or its
// TTL elapsed.
var ErrSessionNotFound = &FlowError{
	Code:    "sessionNotFound",
	Message: "booking flow session not found or expired",
}
