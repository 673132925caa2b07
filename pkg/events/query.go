package events

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// EventQuery is a fetch of one event table for one operator, optionally bounded
// by an inclusive upper block. It is the only way the reconstruction engine
// reads events, so the bound is applied to every table a kind touches.
type EventQuery struct {
	Table      string
	OperatorId string
	UpToBlock  *uint64
}

func NewEventQuery(table string, operatorId string, upToBlock *uint64) *EventQuery {
	return &EventQuery{
		Table:      table,
		OperatorId: operatorId,
		UpToBlock:  upToBlock,
	}
}

const eventQueryTemplate = `
	select
		e.operator_id,
		e.block_number,
		e.log_index,
		e.block_timestamp,
		e.transaction_hash,
		to_jsonb(e)::text as payload
	from %s as e
	where e.operator_id = @operatorId
	%s
	order by e.block_number asc, e.log_index asc
`

// Build renders the query and its named parameters.
func (q *EventQuery) Build() (string, []interface{}, error) {
	if !IsKnownTable(q.Table) {
		return "", nil, xerrors.Errorf("unknown event table '%s'", q.Table)
	}
	params := []interface{}{
		sql.Named("operatorId", q.OperatorId),
	}
	blockFilter := ""
	if q.UpToBlock != nil {
		blockFilter = "and e.block_number <= @upToBlock"
		params = append(params, sql.Named("upToBlock", *q.UpToBlock))
	}
	return fmt.Sprintf(eventQueryTemplate, q.Table, blockFilter), params, nil
}

// Matches reports whether e satisfies the query's operator and block bound.
func (q *EventQuery) Matches(e *Event) bool {
	if e.OperatorId != q.OperatorId {
		return false
	}
	if q.UpToBlock != nil && e.BlockNumber > *q.UpToBlock {
		return false
	}
	return true
}

func validateTables(tables []string) error {
	if len(tables) == 0 {
		return xerrors.New("at least one event table is required")
	}
	for _, t := range tables {
		if !IsKnownTable(t) {
			return xerrors.Errorf("unknown event table '%s'", t)
		}
	}
	return nil
}

// BuildChangedOperatorsQuery unions the distinct operator ids with rows
// ingested after cursor across tables.
func BuildChangedOperatorsQuery(tables []string, cursor time.Time) (string, []interface{}, error) {
	if err := validateTables(tables); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, fmt.Sprintf("select distinct operator_id from %s where created_at > @cursor", t))
	}
	query := fmt.Sprintf("select operator_id from (\n%s\n) as changed group by operator_id order by operator_id", strings.Join(parts, "\nunion\n"))
	return query, []interface{}{sql.Named("cursor", cursor)}, nil
}

// BuildSnapshotBlockQuery returns the highest block across tables whose block
// timestamp falls on or before snapshotDate (UTC calendar day).
func BuildSnapshotBlockQuery(tables []string, snapshotDate time.Time) (string, []interface{}, error) {
	if err := validateTables(tables); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, fmt.Sprintf("select max(block_number) as block_number from %s where block_timestamp < @dayEnd", t))
	}
	query := fmt.Sprintf("select max(block_number) as block_number from (\n%s\n) as signal", strings.Join(parts, "\nunion all\n"))
	return query, []interface{}{sql.Named("dayEnd", DayEnd(snapshotDate).Unix())}, nil
}

// BuildActiveOperatorsQuery lists operators with any event at or before block.
func BuildActiveOperatorsQuery(tables []string, block uint64) (string, []interface{}, error) {
	if err := validateTables(tables); err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, fmt.Sprintf("select distinct operator_id from %s where block_number <= @block", t))
	}
	query := fmt.Sprintf("select operator_id from (\n%s\n) as active group by operator_id order by operator_id", strings.Join(parts, "\nunion\n"))
	return query, []interface{}{sql.Named("block", block)}, nil
}

// DayEnd returns the first instant after the UTC calendar day containing t.
func DayEnd(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
