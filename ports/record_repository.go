package ports

import (
	"context"
	"time"

	"promptlab/domain/core"
	"promptlab/domain/design"
)

// RunMeta is the persisted header of one experiment run.
type RunMeta struct {
	ID          core.RunID    `json:"id"`
	Policy      design.Policy `json:"policy"`
	Fingerprint core.Hash     `json:"fingerprint"`
	Seed        int64         `json:"seed"`
	Columns     []string      `json:"columns"`
	Conditions  int           `json:"conditions"`
	Failed      int           `json:"failed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RecordRepository persists experiment runs and their flattened records.
type RecordRepository interface {
	CreateRun(ctx context.Context, meta RunMeta) error
	AppendRecords(ctx context.Context, runID core.RunID, records []design.Record) error
	GetRun(ctx context.Context, runID core.RunID) (*RunMeta, error)
	GetRecords(ctx context.Context, runID core.RunID) ([]design.Record, error)
	ListRuns(ctx context.Context, limit, offset int) ([]RunMeta, error)
}
