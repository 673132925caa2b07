package operatorState

import (
	"github.com/Layr-Labs/operator-state/pkg/operatorState/allocations"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/avsAllocationSummary"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/avsRegistrationHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/avsRelationships"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/commissionHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/commissionRates"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/dailySnapshot"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegationApproverHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegatorHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegatorShares"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegators"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/metadata"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/metadataHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/operatorSets"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/registration"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/slashingAmounts"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/slashingIncidents"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/strategyState"
	"go.uber.org/zap"
)

// LoadStateKinds registers the closed set of derived-state kinds.
func LoadStateKinds(km *kindManager.KindManager, l *zap.Logger) error {
	if _, err := strategyState.NewStrategyStateKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create StrategyStateKind", zap.Error(err))
		return err
	}
	if _, err := allocations.NewAllocationsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create AllocationsKind", zap.Error(err))
		return err
	}
	if _, err := avsRelationships.NewAvsRelationshipsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create AvsRelationshipsKind", zap.Error(err))
		return err
	}
	if _, err := commissionRates.NewCommissionRatesKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create CommissionRatesKind", zap.Error(err))
		return err
	}
	if _, err := delegators.NewDelegatorsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create DelegatorsKind", zap.Error(err))
		return err
	}
	if _, err := delegatorShares.NewDelegatorSharesKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create DelegatorSharesKind", zap.Error(err))
		return err
	}
	if _, err := slashingIncidents.NewSlashingIncidentsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create SlashingIncidentsKind", zap.Error(err))
		return err
	}
	if _, err := slashingAmounts.NewSlashingAmountsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create SlashingAmountsKind", zap.Error(err))
		return err
	}
	if _, err := registration.NewRegistrationKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create RegistrationKind", zap.Error(err))
		return err
	}
	if _, err := metadata.NewMetadataKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create MetadataKind", zap.Error(err))
		return err
	}
	if _, err := operatorSets.NewOperatorSetsKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create OperatorSetsKind", zap.Error(err))
		return err
	}
	if _, err := avsAllocationSummary.NewAvsAllocationSummaryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create AvsAllocationSummaryKind", zap.Error(err))
		return err
	}
	if _, err := avsRegistrationHistory.NewAvsRegistrationHistoryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create AvsRegistrationHistoryKind", zap.Error(err))
		return err
	}
	if _, err := delegatorHistory.NewDelegatorHistoryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create DelegatorHistoryKind", zap.Error(err))
		return err
	}
	if _, err := metadataHistory.NewMetadataHistoryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create MetadataHistoryKind", zap.Error(err))
		return err
	}
	if _, err := commissionHistory.NewCommissionHistoryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create CommissionHistoryKind", zap.Error(err))
		return err
	}
	if _, err := delegationApproverHistory.NewDelegationApproverHistoryKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create DelegationApproverHistoryKind", zap.Error(err))
		return err
	}
	if _, err := dailySnapshot.NewDailySnapshotKind(km, l); err != nil {
		l.Sugar().Errorw("Failed to create DailySnapshotKind", zap.Error(err))
		return err
	}
	return nil
}
