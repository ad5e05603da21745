package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"promptlab/domain/core"
	"promptlab/domain/design"
	"promptlab/ports"

	"github.com/jmoiron/sqlx"
)

// recordRepository implements the RecordRepository interface
type recordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sqlx.DB) ports.RecordRepository {
	return &recordRepository{db: db}
}

// Migrate creates the run and record tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS experiment_runs (
			id TEXT PRIMARY KEY,
			policy TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			seed BIGINT NOT NULL,
			columns JSONB NOT NULL,
			conditions INT NOT NULL,
			failed INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS experiment_records (
			run_id TEXT NOT NULL REFERENCES experiment_runs(id) ON DELETE CASCADE,
			idx INT NOT NULL,
			record JSONB NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateRun inserts a run header
func (r *recordRepository) CreateRun(ctx context.Context, meta ports.RunMeta) error {
	columnsJSON, err := json.Marshal(meta.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	query := `INSERT INTO experiment_runs (
		id, policy, fingerprint, seed, columns, conditions, failed, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, query,
		meta.ID, meta.Policy, meta.Fingerprint, meta.Seed, columnsJSON,
		meta.Conditions, meta.Failed, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// AppendRecords inserts the flattened records for a run
func (r *recordRepository) AppendRecords(ctx context.Context, runID core.RunID, records []design.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO experiment_records (run_id, idx, record) VALUES ($1, $2, $3)`
	for i, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, query, runID, i, recordJSON); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetRun retrieves a run header by ID
func (r *recordRepository) GetRun(ctx context.Context, runID core.RunID) (*ports.RunMeta, error) {
	query := `SELECT id, policy, fingerprint, seed, columns, conditions, failed, created_at
		FROM experiment_runs WHERE id = $1`

	var row struct {
		ID          string    `db:"id"`
		Policy      string    `db:"policy"`
		Fingerprint string    `db:"fingerprint"`
		Seed        int64     `db:"seed"`
		Columns     []byte    `db:"columns"`
		Conditions  int       `db:"conditions"`
		Failed      int       `db:"failed"`
		CreatedAt   time.Time `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var columns []string
	if err := json.Unmarshal(row.Columns, &columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	return &ports.RunMeta{
		ID:          core.RunID(row.ID),
		Policy:      design.Policy(row.Policy),
		Fingerprint: core.Hash(row.Fingerprint),
		Seed:        row.Seed,
		Columns:     columns,
		Conditions:  row.Conditions,
		Failed:      row.Failed,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// GetRecords retrieves a run's records in condition order
func (r *recordRepository) GetRecords(ctx context.Context, runID core.RunID) ([]design.Record, error) {
	query := `SELECT record FROM experiment_records WHERE run_id = $1 ORDER BY idx`

	var raws [][]byte
	if err := r.db.SelectContext(ctx, &raws, query, runID); err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	records := make([]design.Record, 0, len(raws))
	for i, raw := range raws {
		var rec design.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListRuns retrieves run headers newest first
func (r *recordRepository) ListRuns(ctx context.Context, limit, offset int) ([]ports.RunMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, policy, fingerprint, seed, columns, conditions, failed, created_at
		FROM experiment_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var metas []ports.RunMeta
	for rows.Next() {
		var row struct {
			ID          string    `db:"id"`
			Policy      string    `db:"policy"`
			Fingerprint string    `db:"fingerprint"`
			Seed        int64     `db:"seed"`
			Columns     []byte    `db:"columns"`
			Conditions  int       `db:"conditions"`
			Failed      int       `db:"failed"`
			CreatedAt   time.Time `db:"created_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var columns []string
		if err := json.Unmarshal(row.Columns, &columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
		metas = append(metas, ports.RunMeta{
			ID:          core.RunID(row.ID),
			Policy:      design.Policy(row.Policy),
			Fingerprint: core.Hash(row.Fingerprint),
			Seed:        row.Seed,
			Columns:     columns,
			Conditions:  row.Conditions,
			Failed:      row.Failed,
			CreatedAt:   row.CreatedAt,
		})
	}
	return metas, rows.Err()
}
