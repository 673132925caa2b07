package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/pkg/aggregator"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/dailySnapshot"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/snapshot"
	"github.com/Layr-Labs/operator-state/pkg/storage/memoryStore"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	avs      = "0x00000000000000000000000000000000000000a1"
	approver = "0x00000000000000000000000000000000000000c1"
)

func operatorAddress(i int) string {
	return fmt.Sprintf("0x%040x", 0xe0+i)
}

func seedOperator(f *kindTest.Fixture, i int) {
	op := operatorAddress(i)
	b := uint64(10 + 10*i)
	f.AddFor(op, events.Table_OperatorRegisteredEvents, b, 0, kindTest.At(1), map[string]interface{}{
		"operator_address":    op,
		"delegation_approver": approver,
	})
	f.AddFor(op, events.Table_StakerDelegationEvents, b+1, 0, kindTest.At(2), map[string]interface{}{
		"staker_id":       fmt.Sprintf("0x%040x", 0xb0+i),
		"delegation_type": "DELEGATED",
	})
	f.AddFor(op, events.Table_OperatorAvsRegistrationStatusEvents, b+2, 0, kindTest.At(3), map[string]interface{}{
		"avs_id": avs,
		"status": "REGISTERED",
	})
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func setup(t *testing.T, f *kindTest.Fixture, store *memoryStore.MemoryStore, workers int) (*Pipeline, *testClock, *kindManager.KindManager) {
	l := zap.NewNop()
	ms := metrics.NewNoopMetricsSink()
	clock := &testClock{now: kindTest.Genesis.AddDate(0, 0, 10)}

	km := kindManager.NewKindManager(l)
	assert.Nil(t, operatorState.LoadStateKinds(km, l))

	rc := reconstructor.NewReconstructor(f.Source, store, validation.NewReferenceResolver(store, l), ms, l)
	rc.Now = clock.Now
	m := snapshot.NewMaterializer(f.Source, rc, km.EventTables(), ms, l)
	agg := aggregator.NewAggregator(store, l)
	agg.Now = clock.Now

	cfg := &config.Config{
		PipelineConfig: config.PipelineConfig{
			Name:    "test_pipeline",
			Workers: workers,
		},
	}
	p := NewPipeline(f.Source, store, km, rc, m, agg, ms, l, cfg)
	p.Now = clock.Now
	return p, clock, km
}

func Test_Pipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("Should process changed operators and advance the checkpoint", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		seedOperator(f, 1)
		store := memoryStore.NewMemoryStore()
		p, clock, _ := setup(t, f, store, 1)
		firstRunAt := clock.now

		res, err := p.Run(ctx)
		assert.Nil(t, err)
		assert.Equal(t, []string{operatorAddress(0), operatorAddress(1)}, res.ChangedOperators)
		assert.Equal(t, uint64(2), res.Checkpoint.OperatorsProcessedCount)
		assert.Greater(t, res.Checkpoint.TotalEventsProcessed, uint64(6))
		assert.Equal(t, uint64(22), res.Checkpoint.LastProcessedBlock)
		assert.Equal(t, firstRunAt, res.Checkpoint.LastProcessedAt)
		assert.Equal(t, uint64(0), res.Summary.FetchErrors)

		for i := 0; i < 2; i++ {
			state := store.OperatorState(operatorAddress(i))
			assert.NotNil(t, state)
			assert.Equal(t, uint64(10+10*i), *state.RegistrationBlock)
			assert.Equal(t, uint64(1), state.ActiveDelegators)
			assert.True(t, state.IsActive)
		}

		clock.now = clock.now.Add(time.Hour)
		res, err = p.Run(ctx)
		assert.Nil(t, err)
		assert.Len(t, res.ChangedOperators, 0)
		assert.Equal(t, clock.now, res.Checkpoint.LastProcessedAt)
		assert.Equal(t, uint64(22), res.Checkpoint.LastProcessedBlock)
		assert.Equal(t, firstRunAt, res.Checkpoint.CreatedAt)
	})

	t.Run("Should only pick up operators with events ingested after the cursor", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		seedOperator(f, 1)
		store := memoryStore.NewMemoryStore()
		p, clock, _ := setup(t, f, store, 1)

		_, err := p.Run(ctx)
		assert.Nil(t, err)

		f.AddFor(operatorAddress(1), events.Table_OperatorMetadataUpdateEvents, 30, 0, kindTest.At(24*11), map[string]interface{}{
			"metadata_uri": "https://late",
		})
		clock.now = kindTest.Genesis.AddDate(0, 0, 12)

		res, err := p.Run(ctx)
		assert.Nil(t, err)
		assert.Equal(t, []string{operatorAddress(1)}, res.ChangedOperators)
		assert.Equal(t, uint64(30), res.Checkpoint.LastProcessedBlock)
		assert.Equal(t, "https://late", *store.OperatorState(operatorAddress(1)).CurrentMetadataUri)
	})

	t.Run("Should produce the same state with a worker pool as sequentially", func(t *testing.T) {
		sequential := memoryStore.NewMemoryStore()
		parallel := memoryStore.NewMemoryStore()

		fs := kindTest.NewFixture()
		fp := kindTest.NewFixture()
		for i := 0; i < 6; i++ {
			seedOperator(fs, i)
			seedOperator(fp, i)
		}

		ps, _, _ := setup(t, fs, sequential, 1)
		pp, _, _ := setup(t, fp, parallel, 4)

		rs, err := ps.Run(ctx)
		assert.Nil(t, err)
		rp, err := pp.Run(ctx)
		assert.Nil(t, err)

		assert.Equal(t, rs.Checkpoint.OperatorsProcessedCount, rp.Checkpoint.OperatorsProcessedCount)
		assert.Equal(t, rs.Checkpoint.LastProcessedBlock, rp.Checkpoint.LastProcessedBlock)
		assert.Equal(t, rs.Summary.KindRows.Len(), rp.Summary.KindRows.Len())
		for i := 0; i < 6; i++ {
			assert.Equal(t, sequential.OperatorState(operatorAddress(i)), parallel.OperatorState(operatorAddress(i)))
		}
	})

	t.Run("Should keep going when one operator fails to fetch", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		seedOperator(f, 1)
		f.Source.FailFor[operatorAddress(0)] = errors.New("connection reset")
		store := memoryStore.NewMemoryStore()
		p, _, km := setup(t, f, store, 1)

		res, err := p.Run(ctx)
		assert.Nil(t, err)
		assert.Equal(t, uint64(len(km.CurrentKinds())), res.Summary.FetchErrors)
		assert.Equal(t, uint64(2), res.Checkpoint.OperatorsProcessedCount)
		assert.Contains(t, res.Checkpoint.RunMetadata, "fetch_errors")

		state := store.OperatorState(operatorAddress(1))
		assert.NotNil(t, state)
		assert.Equal(t, uint64(20), *state.RegistrationBlock)
	})

	t.Run("Should not advance the checkpoint when the run is cancelled", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		store := memoryStore.NewMemoryStore()
		p, _, _ := setup(t, f, store, 1)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := p.Run(cancelled)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, context.Canceled))

		cp, err := store.GetCheckpoint(ctx, "test_pipeline")
		assert.Nil(t, err)
		assert.Nil(t, cp)
	})

	t.Run("Should call the hook once per operator", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		seedOperator(f, 1)
		store := memoryStore.NewMemoryStore()
		p, _, _ := setup(t, f, store, 1)

		seen := make([]*OperatorProcessed, 0)
		p.OnOperatorProcessed = func(op *OperatorProcessed) {
			seen = append(seen, op)
		}

		_, err := p.Run(ctx)
		assert.Nil(t, err)
		assert.Len(t, seen, 2)
		assert.Equal(t, operatorAddress(0), seen[0].OperatorId)
		assert.Equal(t, uint64(2), seen[1].Processed)
		assert.Equal(t, uint64(2), seen[1].Total)
		assert.Nil(t, seen[1].Err)
		assert.NotNil(t, seen[1].State)
	})
}

func Test_RunSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("Should materialize every snapshot kind for each active operator", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		seedOperator(f, 1)
		store := memoryStore.NewMemoryStore()
		p, _, km := setup(t, f, store, 2)

		run, err := p.RunSnapshots(ctx, kindTest.Genesis)
		assert.Nil(t, err)
		assert.True(t, run.Found)
		assert.Equal(t, uint64(22), run.Block)
		assert.Equal(t, []string{operatorAddress(0), operatorAddress(1)}, run.Operators)
		assert.Len(t, run.Errors, 0)
		assert.Len(t, run.Results, 2*len(km.SnapshotKinds()))
		assert.Equal(t, operatorAddress(0), run.Results[0].OperatorId)

		rows := run.RowsForKind(dailySnapshot.KindName)
		assert.Len(t, rows, 2)
		assert.Equal(t, uint64(1), rows[0]["delegator_count"])
		assert.Equal(t, uint64(22), rows[1]["snapshot_block"])
	})

	t.Run("Should skip a date with no activity", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedOperator(f, 0)
		store := memoryStore.NewMemoryStore()
		p, _, _ := setup(t, f, store, 1)

		run, err := p.RunSnapshots(ctx, kindTest.Genesis.AddDate(0, 0, -1))
		assert.Nil(t, err)
		assert.False(t, run.Found)
		assert.Len(t, run.Results, 0)
	})
}
