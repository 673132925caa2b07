package migrations

import (
	"database/sql"
	"time"

	"github.com/Layr-Labs/operator-state/internal/config"
	_202503010900_referenceTables "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010900_referenceTables"
	_202503010910_eventTables "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010910_eventTables"
	_202503010920_derivedStateTables "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010920_derivedStateTables"
	_202503010930_historyTables "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010930_historyTables"
	_202503010940_snapshotTables "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010940_snapshotTables"
	_202503010950_operatorStateAndCheckpoints "github.com/Layr-Labs/operator-state/pkg/postgres/migrations/202503010950_operatorStateAndCheckpoints"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
	}
}

func (m *Migrator) MigrateAll() error {
	if err := m.GDb.AutoMigrate(&Migrations{}); err != nil {
		m.Logger.Sugar().Errorw("Failed to create migrations table", zap.Error(err))
		return err
	}

	migrations := []Migration{
		&_202503010900_referenceTables.Migration{},
		&_202503010910_eventTables.Migration{},
		&_202503010920_derivedStateTables.Migration{},
		&_202503010930_historyTables.Migration{},
		&_202503010940_snapshotTables.Migration{},
		&_202503010950_operatorStateAndCheckpoints.Migration{},
	}

	for _, migration := range migrations {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var migrationRecord Migrations
	result := m.GDb.Where("name = ?", name).Limit(1).Find(&migrationRecord)
	if result.Error != nil {
		m.Logger.Sugar().Errorw("Failed to find migration", zap.String("name", name), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		m.Logger.Sugar().Debugw("Migration already run", zap.String("name", name))
		return nil
	}

	m.Logger.Sugar().Infow("Running migration", zap.String("name", name))
	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration", zap.String("name", name), zap.Error(err))
		return err
	}

	migrationRecord = Migrations{
		Name: name,
	}
	if res := m.GDb.Create(&migrationRecord); res.Error != nil {
		m.Logger.Sugar().Errorw("Failed to record migration", zap.String("name", name), zap.Error(res.Error))
		return res.Error
	}
	return nil
}

type Migrations struct {
	Name      string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"default:current_timestamp;type:timestamp with time zone"`
	UpdatedAt time.Time `gorm:"default:null;type:timestamp with time zone"`
}
