package snapshot

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
)

type Status string

const (
	// Status_Written means the snapshot block exists and the kind was
	// materialized, possibly with zero rows for this operator.
	Status_Written Status = "written"
	// Status_Skipped means no signal table has a block on or before the date.
	Status_Skipped Status = "skipped"
)

type SnapshotResult struct {
	OperatorId    string
	Kind          string
	SnapshotDate  time.Time
	SnapshotBlock uint64
	Status        Status
	Result        *reconstructor.Result
	Root          []byte
}

func (s *SnapshotResult) RowsWritten() int {
	if s.Result == nil {
		return 0
	}
	return s.Result.RowsWritten
}

// NormalizeDate truncates t to midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
