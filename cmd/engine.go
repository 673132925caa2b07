package cmd

import (
	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/pkg/aggregator"
	"github.com/Layr-Labs/operator-state/pkg/events/postgresSource"
	"github.com/Layr-Labs/operator-state/pkg/operatorState"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/pipeline"
	"github.com/Layr-Labs/operator-state/pkg/postgres"
	"github.com/Layr-Labs/operator-state/pkg/postgres/migrations"
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/snapshot"
	"github.com/Layr-Labs/operator-state/pkg/storage/postgresStore"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"gorm.io/gorm"
)

type engine struct {
	grm         *gorm.DB
	store       *postgresStore.PostgresStore
	kindManager *kindManager.KindManager
	pipeline    *pipeline.Pipeline
}

// newEngine connects to postgres, applies migrations and wires every stage of
// the pipeline against the postgres event source and state store.
func newEngine(cfg *config.Config, l *zap.Logger) (*engine, error) {
	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		return nil, xerrors.Errorf("failed to setup metrics clients: %w", err)
	}
	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
	if err != nil {
		return nil, xerrors.Errorf("failed to setup metrics sink: %w", err)
	}

	pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
	pgConfig.CreateDbIfNotExists = true

	pg, err := postgres.NewPostgres(pgConfig)
	if err != nil {
		return nil, xerrors.Errorf("failed to setup postgres connection: %w", err)
	}

	grm, err := postgres.NewGormFromPostgresConnection(pg.Db, l)
	if err != nil {
		return nil, xerrors.Errorf("failed to create gorm instance: %w", err)
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, cfg)
	if err = migrator.MigrateAll(); err != nil {
		return nil, xerrors.Errorf("failed to migrate: %w", err)
	}

	km := kindManager.NewKindManager(l)
	if err := operatorState.LoadStateKinds(km, l); err != nil {
		return nil, err
	}

	source := postgresSource.NewPostgresSource(grm, l)
	store := postgresStore.NewPostgresStore(grm, l, cfg)
	resolver := validation.NewReferenceResolver(store, l)

	rc := reconstructor.NewReconstructor(source, store, resolver, sink, l)
	m := snapshot.NewMaterializer(source, rc, km.EventTables(), sink, l)
	agg := aggregator.NewAggregator(store, l)

	return &engine{
		grm:         grm,
		store:       store,
		kindManager: km,
		pipeline:    pipeline.NewPipeline(source, store, km, rc, m, agg, sink, l, cfg),
	}, nil
}

func (e *engine) close() {
	if db, err := e.grm.DB(); err == nil {
		_ = db.Close()
	}
}
