package aggregator

import (
	"context"
	"strings"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Aggregator folds the reconstructed derived tables of one operator into
// its operator_state row.
type Aggregator struct {
	store  storage.StateStore
	logger *zap.Logger

	Now func() time.Time
}

func NewAggregator(store storage.StateStore, l *zap.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: l,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// derivedTables lists every table the fold reads.
var derivedTables = []string{
	types.Table_OperatorRegistration,
	types.Table_OperatorMetadata,
	types.Table_OperatorAvsRelationships,
	types.Table_OperatorCommissionRates,
	types.Table_OperatorDelegators,
	types.Table_OperatorSlashingIncidents,
	types.Table_OperatorSetMemberships,
	types.Table_OperatorAllocations,
	types.Table_OperatorAvsRegistrationHistory,
	types.Table_OperatorDelegatorHistory,
	types.Table_OperatorMetadataHistory,
	types.Table_OperatorCommissionHistory,
	types.Table_OperatorDelegationApproverHistory,
}

func (a *Aggregator) loadTables(ctx context.Context, operatorId string) (map[string][]storage.Row, error) {
	tables := make(map[string][]storage.Row, len(derivedTables))
	for _, table := range derivedTables {
		rows, err := a.store.ListRows(ctx, table, operatorId)
		if err != nil {
			return nil, xerrors.Errorf("failed to list %s: %w", table, err)
		}
		tables[table] = rows
	}
	return tables, nil
}

// Fold builds the operator_state row from already-loaded derived rows.
func Fold(operatorId string, tables map[string][]storage.Row, now time.Time) *storage.OperatorState {
	state := &storage.OperatorState{
		OperatorId:      operatorId,
		OperatorAddress: operatorId,
		UpdatedAt:       now,
	}

	if rows := tables[types.Table_OperatorRegistration]; len(rows) > 0 {
		reg := rows[0]
		if addr, ok := reg.String("operator_address"); ok {
			state.OperatorAddress = addr
		}
		state.RegisteredAt = timePtr(reg, "registered_at")
		state.RegistrationBlock = uint64Ptr(reg, "registration_block")
	}

	if rows := tables[types.Table_OperatorMetadata]; len(rows) > 0 {
		state.CurrentMetadataUri = stringPtr(rows[0], "metadata_uri")
		state.LastMetadataUpdateAt = timePtr(rows[0], "last_updated_at")
	}

	foldApprover(state, tables[types.Table_OperatorDelegationApproverHistory])

	for _, row := range tables[types.Table_OperatorCommissionRates] {
		if t, _ := row.String("commission_type"); t != types.CommissionType_PI {
			continue
		}
		state.CurrentPiSplitBips = uint64Ptr(row, "current_bips")
		state.PiSplitActivatedAt = timePtr(row, "current_activated_at")
	}

	for _, row := range tables[types.Table_OperatorAvsRelationships] {
		state.RegisteredAvsCount++
		if s, _ := row.String("current_status"); s == events.RegistrationStatus_Registered {
			state.ActiveAvsCount++
		}
	}

	for _, row := range tables[types.Table_OperatorSetMemberships] {
		if member, _ := row.Bool("is_member"); member {
			state.ActiveOperatorSetCount++
		}
	}

	for _, row := range tables[types.Table_OperatorAllocations] {
		if m, ok := row.Decimal("magnitude"); ok && m.IsPositive() {
			state.ActiveAllocationCount++
		}
		state.LastAllocationAt = laterOf(state.LastAllocationAt, timePtr(row, "allocated_at"))
	}

	for _, row := range tables[types.Table_OperatorDelegators] {
		state.TotalDelegators++
		if delegated, _ := row.Bool("is_delegated"); delegated {
			state.ActiveDelegators++
		}
	}
	for _, row := range tables[types.Table_OperatorDelegatorHistory] {
		if t, _ := row.String("delegation_type"); t == events.DelegationType_ForceUndelegated {
			state.ForceUndelegationCount++
		}
	}

	for _, row := range tables[types.Table_OperatorSlashingIncidents] {
		state.TotalSlashEvents++
		state.LastSlashedAt = laterOf(state.LastSlashedAt, timePtr(row, "slashed_at"))
	}

	for _, row := range tables[types.Table_OperatorCommissionHistory] {
		state.LastCommissionChangeAt = laterOf(state.LastCommissionChangeAt, timePtr(row, "changed_at"))
	}

	activities := make([]*Activity, 0)
	for _, src := range activitySources {
		activities = append(activities, activitiesFromRows(src, tables[src.Table])...)
	}
	if first := ResolveFirstActivity(activities); first != nil {
		at, block, kind := first.At, first.Block, first.Type
		state.FirstActivityAt = &at
		state.FirstActivityBlock = &block
		state.FirstActivityType = &kind
		if now.After(at) {
			state.OperationalDays = uint64(now.Sub(at) / (24 * time.Hour))
		}
	}
	if last := ResolveLastActivity(activities); last != nil {
		at := last.At
		state.LastActivityAt = &at
	}

	state.IsActive = state.RegisteredAt != nil && state.ActiveAvsCount > 0
	return state
}

// foldApprover takes the latest approver change in chain order.
func foldApprover(state *storage.OperatorState, rows []storage.Row) {
	var latest storage.Row
	var latestBlock, latestLog uint64
	for _, row := range rows {
		block, _ := row.Uint64("changed_block")
		logIndex, _ := row.Uint64("log_index")
		if latest == nil || block > latestBlock || (block == latestBlock && logIndex > latestLog) {
			latest, latestBlock, latestLog = row, block, logIndex
		}
	}
	if latest == nil {
		return
	}
	state.CurrentDelegationApprover = stringPtr(latest, "new_delegation_approver")
	state.DelegationApproverUpdatedAt = timePtr(latest, "changed_at")
	if approver := state.CurrentDelegationApprover; approver != nil {
		state.IsPermissioned = *approver != "" && !strings.EqualFold(*approver, zeroAddress)
	}
}

// Aggregate folds and saves one operator. Failures are *AggregationError.
func (a *Aggregator) Aggregate(ctx context.Context, operatorId string) (*storage.OperatorState, error) {
	tables, err := a.loadTables(ctx, operatorId)
	if err != nil {
		return nil, &AggregationError{OperatorId: operatorId, Err: err}
	}
	state := Fold(operatorId, tables, a.Now())
	if err := a.store.SaveOperatorState(ctx, state); err != nil {
		return nil, &AggregationError{OperatorId: operatorId, Err: xerrors.Errorf("failed to save operator state: %w", err)}
	}
	return state, nil
}

func timePtr(row storage.Row, col string) *time.Time {
	t, ok := row.Time(col)
	if !ok {
		return nil
	}
	return &t
}

func uint64Ptr(row storage.Row, col string) *uint64 {
	v, ok := row.Uint64(col)
	if !ok {
		return nil
	}
	return &v
}

func stringPtr(row storage.Row, col string) *string {
	v, ok := row.String(col)
	if !ok {
		return nil
	}
	return &v
}

func laterOf(current *time.Time, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.After(*current) {
		return candidate
	}
	return current
}
