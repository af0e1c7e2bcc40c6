package models

import "fmt"

// ValidationError reports a malformed atom or gap field. Unlike transient
// collaborator failures, validation errors indicate a data-integrity bug
// upstream and are surfaced to the caller rather than absorbed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
