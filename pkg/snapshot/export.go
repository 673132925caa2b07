package snapshot

import (
	"io"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/gocarina/gocsv"
)

type OperatorDailySnapshotRecord struct {
	OperatorId             string `csv:"operator_id"`
	SnapshotDate           string `csv:"snapshot_date"`
	SnapshotBlock          uint64 `csv:"snapshot_block"`
	DelegatorCount         uint64 `csv:"delegator_count"`
	ActiveAvsCount         uint64 `csv:"active_avs_count"`
	ActiveOperatorSetCount uint64 `csv:"active_operator_set_count"`
	PiSplitBips            string `csv:"pi_split_bips"`
	SlashEventCountToDate  uint64 `csv:"slash_event_count_to_date"`
	OperationalDays        uint64 `csv:"operational_days"`
	IsRegistered           bool   `csv:"is_registered"`
}

func recordFromRow(row storage.Row) *OperatorDailySnapshotRecord {
	rec := &OperatorDailySnapshotRecord{}
	rec.OperatorId, _ = row.String("operator_id")
	if d, ok := row.Time("snapshot_date"); ok {
		rec.SnapshotDate = d.Format(time.DateOnly)
	}
	rec.SnapshotBlock, _ = row.Uint64("snapshot_block")
	rec.DelegatorCount, _ = row.Uint64("delegator_count")
	rec.ActiveAvsCount, _ = row.Uint64("active_avs_count")
	rec.ActiveOperatorSetCount, _ = row.Uint64("active_operator_set_count")
	rec.PiSplitBips, _ = row.String("pi_split_bips")
	rec.SlashEventCountToDate, _ = row.Uint64("slash_event_count_to_date")
	rec.OperationalDays, _ = row.Uint64("operational_days")
	rec.IsRegistered, _ = row.Bool("is_registered")
	return rec
}

// ExportOperatorDailySnapshots writes daily snapshot rows as CSV with a
// header line. A missing PI split is an empty cell.
func ExportOperatorDailySnapshots(w io.Writer, rows []storage.Row) error {
	records := make([]*OperatorDailySnapshotRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return gocsv.Marshal(records, w)
}
