package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/logger"
	"github.com/spf13/cobra"
)

var changedCmd = &cobra.Command{
	Use:   "changed",
	Short: "List operators with events ingested since the last checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		e, err := newEngine(cfg, l)
		if err != nil {
			return err
		}
		defer e.close()

		ops, cursor, err := e.pipeline.ChangedOperators(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Cursor: %s\nChanged operators: %d\n", cursor.Format(time.RFC3339), len(ops))
		for _, op := range ops {
			fmt.Println(op)
		}
		return nil
	},
}
