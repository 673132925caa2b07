package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/logger"
	"github.com/Layr-Labs/operator-state/pkg/scoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild and fold the state of a single operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.RebuildConfig.Operator == "" {
			return errors.New("--rebuild.operator is required")
		}

		e, err := newEngine(cfg, l)
		if err != nil {
			return err
		}
		defer e.close()

		var upToBlock *uint64
		if cfg.RebuildConfig.UpToBlock > 0 {
			upToBlock = &cfg.RebuildConfig.UpToBlock
		}

		ctx := context.Background()
		res, state, err := e.pipeline.RebuildOperator(ctx, cfg.RebuildConfig.Operator, upToBlock)
		for _, fe := range res.FetchErrors {
			l.Sugar().Errorw("Kind failed to rebuild", zap.Error(fe))
		}
		if err != nil {
			return err
		}

		score, err := scoring.NewScorer(e.store, l).ScoreOperator(ctx, state)
		if err != nil {
			return err
		}

		l.Sugar().Infow("Rebuilt operator",
			zap.String("operatorId", state.OperatorId),
			zap.Int("eventsFetched", res.EventsFetched()),
			zap.Int("rowsWritten", res.RowsWritten()),
			zap.Int("rowsSkipped", res.RowsSkipped()),
			zap.Int("fetchErrors", len(res.FetchErrors)),
			zap.Bool("isActive", state.IsActive),
			zap.Float64("riskScore", score.Value),
			zap.String("riskLevel", string(score.Level)),
			zap.Float64("confidence", score.Confidence),
		)
		return nil
	},
}
