package reconstructor

import (
	"errors"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
)

type Outcome string

const (
	Outcome_Written          Outcome = "written"
	Outcome_ValidationFailed Outcome = "validation"
	Outcome_ReferenceFailed  Outcome = "reference"
	Outcome_StoreFailed      Outcome = "store"
)

// RowResult is the outcome of writing a single row.
type RowResult struct {
	Row      storage.Row
	Key      string
	Outcome  Outcome
	Affected int64
	Err      error
}

func classify(err error) Outcome {
	var refErr *validation.ReferenceResolutionError
	if errors.As(err, &refErr) {
		return Outcome_ReferenceFailed
	}
	return Outcome_ValidationFailed
}

// Result folds the row results of one kind for one operator.
type Result struct {
	Kind               string
	OperatorId         string
	IsSnapshot         bool
	EventsFetched      int
	MaxBlock           uint64
	RowsFetched        int
	RowsWritten        int
	RowsAffected       int64
	ValidationFailures int
	ReferenceFailures  int
	StoreFailures      int

	// WrittenRows holds the normalized rows that reached the store.
	WrittenRows []storage.Row
}

func (r *Result) Add(rr *RowResult) {
	switch rr.Outcome {
	case Outcome_Written:
		r.RowsWritten++
		r.RowsAffected += rr.Affected
		r.WrittenRows = append(r.WrittenRows, rr.Row)
	case Outcome_ValidationFailed:
		r.ValidationFailures++
	case Outcome_ReferenceFailed:
		r.ReferenceFailures++
	case Outcome_StoreFailed:
		r.StoreFailures++
	}
}

func (r *Result) Skipped() int {
	return r.ValidationFailures + r.ReferenceFailures + r.StoreFailures
}

// OperatorResult collects every kind run for one operator.
type OperatorResult struct {
	OperatorId  string
	Kinds       []*Result
	FetchErrors []*FetchError
}

func (o *OperatorResult) EventsFetched() int {
	total := 0
	for _, r := range o.Kinds {
		total += r.EventsFetched
	}
	return total
}

func (o *OperatorResult) MaxBlock() uint64 {
	max := uint64(0)
	for _, r := range o.Kinds {
		if r.MaxBlock > max {
			max = r.MaxBlock
		}
	}
	return max
}

func (o *OperatorResult) RowsWritten() int {
	total := 0
	for _, r := range o.Kinds {
		total += r.RowsWritten
	}
	return total
}

func (o *OperatorResult) RowsSkipped() int {
	total := 0
	for _, r := range o.Kinds {
		total += r.Skipped()
	}
	return total
}
