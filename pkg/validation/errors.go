package validation

import "fmt"

// ValidationError is a field-level contract failure. The row is skipped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field '%s': %s", e.Field, e.Reason)
}

// ReferenceResolutionError means a referenced parent row could neither be
// found nor created, usually because its id cannot be parsed.
type ReferenceResolutionError struct {
	Field string
	Table string
	Id    string
	Err   error
}

func (e *ReferenceResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve reference '%s' -> %s(%s): %v", e.Field, e.Table, e.Id, e.Err)
}

func (e *ReferenceResolutionError) Unwrap() error {
	return e.Err
}
