package storage

import (
	"time"

	"golang.org/x/xerrors"
)

// UpsertSpec describes how a row is written. Rows that collide on
// ConflictColumns either overwrite UpdateColumns or, when DoNothing is set,
// are left untouched.
type UpsertSpec struct {
	Table           string
	ConflictColumns []string
	UpdateColumns   []string
	DoNothing       bool
}

// Validate checks that an upsert never rewrites its own conflict columns.
func (s *UpsertSpec) Validate() error {
	if s.Table == "" {
		return xerrors.New("upsert spec requires a table")
	}
	if len(s.ConflictColumns) == 0 {
		return xerrors.Errorf("upsert spec for %s requires conflict columns", s.Table)
	}
	if s.DoNothing {
		return nil
	}
	if len(s.UpdateColumns) == 0 {
		return xerrors.Errorf("upsert spec for %s requires update columns", s.Table)
	}
	keys := make(map[string]struct{}, len(s.ConflictColumns))
	for _, c := range s.ConflictColumns {
		keys[c] = struct{}{}
	}
	for _, c := range s.UpdateColumns {
		if _, ok := keys[c]; ok {
			return xerrors.Errorf("upsert spec for %s updates key column %s", s.Table, c)
		}
	}
	return nil
}

const (
	ReferenceTable_Operators    = "operators"
	ReferenceTable_Avs          = "avs"
	ReferenceTable_Stakers      = "stakers"
	ReferenceTable_Strategies   = "strategies"
	ReferenceTable_OperatorSets = "operator_sets"
)

// ReferenceEntity is a lightweight parent row created on first reference.
// Operator sets carry their AVS as ParentId and their numeric index.
type ReferenceEntity struct {
	Table    string
	Id       string
	Address  string
	ParentId string
	Index    *uint64
}

type Checkpoint struct {
	PipelineName            string `gorm:"primaryKey"`
	LastProcessedAt         time.Time
	LastProcessedBlock      uint64
	OperatorsProcessedCount uint64
	TotalEventsProcessed    uint64
	RunDurationSeconds      float64
	RunMetadata             string `gorm:"type:jsonb"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (Checkpoint) TableName() string {
	return "pipeline_checkpoints"
}

// OperatorState is the folded current-state record for one operator.
type OperatorState struct {
	OperatorId                  string `gorm:"primaryKey"`
	OperatorAddress             string
	CurrentMetadataUri          *string
	LastMetadataUpdateAt        *time.Time
	RegisteredAt                *time.Time
	RegistrationBlock           *uint64
	FirstActivityAt             *time.Time
	FirstActivityBlock          *uint64
	FirstActivityType           *string
	CurrentDelegationApprover   *string
	IsPermissioned              bool
	DelegationApproverUpdatedAt *time.Time
	CurrentPiSplitBips          *uint64
	PiSplitActivatedAt          *time.Time
	ActiveAvsCount              uint64
	RegisteredAvsCount          uint64
	ActiveOperatorSetCount      uint64
	ActiveAllocationCount       uint64
	TotalDelegators             uint64
	ActiveDelegators            uint64
	ForceUndelegationCount      uint64
	TotalSlashEvents            uint64
	LastSlashedAt               *time.Time
	LastAllocationAt            *time.Time
	LastCommissionChangeAt      *time.Time
	LastActivityAt              *time.Time
	OperationalDays             uint64
	IsActive                    bool
	UpdatedAt                   time.Time
}

func (OperatorState) TableName() string {
	return "operator_state"
}
