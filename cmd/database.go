package cmd

import (
	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/logger"
	"github.com/Layr-Labs/operator-state/pkg/postgres"
	"github.com/Layr-Labs/operator-state/pkg/postgres/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Create the database if needed and apply all migrations",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pgConfig.CreateDbIfNotExists = true

		pg, err := postgres.NewPostgres(pgConfig)
		if err != nil {
			l.Fatal("Failed to setup postgres connection", zap.Error(err))
		}
		defer pg.Db.Close()

		grm, err := postgres.NewGormFromPostgresConnection(pg.Db, l)
		if err != nil {
			l.Fatal("Failed to create gorm instance", zap.Error(err))
		}

		migrator := migrations.NewMigrator(pg.Db, grm, l, cfg)
		if err = migrator.MigrateAll(); err != nil {
			l.Fatal("Failed to migrate", zap.Error(err))
		}

		l.Sugar().Info("Database migrations applied")
	},
}
