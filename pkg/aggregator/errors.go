package aggregator

import "fmt"

// AggregationError means the fold failed for one operator after its kinds
// were reconstructed. It never blocks the checkpoint.
type AggregationError struct {
	OperatorId string
	Err        error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to aggregate operator %s: %v", e.OperatorId, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
