package reconstructor

import "fmt"

// FetchError means the event source could not serve one kind for one
// operator. The kind is abandoned for this pass; other kinds and operators
// continue.
type FetchError struct {
	OperatorId string
	Kind       string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s for operator %s: %v", e.Kind, e.OperatorId, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
