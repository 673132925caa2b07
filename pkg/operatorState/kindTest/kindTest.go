// Package kindTest holds fixtures shared by the derived-state kind tests.
package kindTest

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/events/memorySource"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
)

const Operator = "0x00000000000000000000000000000000000000aa"

var Genesis = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// Fixture appends events with sequential transaction hashes.
type Fixture struct {
	Source *memorySource.MemorySource
	seq    int
}

func NewFixture() *Fixture {
	return &Fixture{Source: memorySource.NewMemorySource()}
}

// At returns the unix timestamp for hours after Genesis.
func At(hours int) int64 {
	return Genesis.Add(time.Duration(hours) * time.Hour).Unix()
}

func (f *Fixture) Add(table string, block uint64, logIndex uint64, ts int64, payload interface{}) {
	f.AddFor(Operator, table, block, logIndex, ts, payload)
}

func (f *Fixture) AddFor(operatorId string, table string, block uint64, logIndex uint64, ts int64, payload interface{}) {
	f.seq++
	err := f.Source.Append(&memorySource.EventInput{
		Table:           table,
		OperatorId:      operatorId,
		BlockNumber:     block,
		LogIndex:        logIndex,
		BlockTimestamp:  ts,
		TransactionHash: fmt.Sprintf("0xtx%04d", f.seq),
		CreatedAt:       time.Unix(ts, 0).UTC(),
		Payload:         payload,
	})
	if err != nil {
		panic(err)
	}
}

// Resolve runs the kind's fetch and resolve steps against the fixture.
func (f *Fixture) Resolve(kind types.IStateKind, upToBlock *uint64, asOf time.Time) ([]storage.Row, error) {
	queries, err := kind.BuildFetch(Operator, upToBlock)
	if err != nil {
		return nil, err
	}
	set := events.NewEventSet()
	for _, q := range queries {
		evs, err := f.Source.FetchEvents(context.Background(), q)
		if err != nil {
			return nil, err
		}
		set.Add(q.Table, evs)
	}
	return kind.Resolve(&types.ResolveContext{
		OperatorId: Operator,
		UpToBlock:  upToBlock,
		AsOf:       asOf,
	}, set)
}

// FindRow returns the first row whose columns equal match.
func FindRow(rows []storage.Row, match map[string]string) storage.Row {
	for _, r := range rows {
		ok := true
		for col, want := range match {
			got, present := r.String(col)
			if !present || got != want {
				ok = false
				break
			}
		}
		if ok {
			return r
		}
	}
	return nil
}

func Block(b uint64) *uint64 {
	return &b
}
