package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// OpenDB opens a pgx-backed database/sql pool.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS solver_results (
	id              BIGSERIAL PRIMARY KEY,
	file            TEXT NOT NULL,
	chosen          TEXT NOT NULL,
	mode            TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	robust_confidence DOUBLE PRECISION,
	has_quote       BOOLEAN NOT NULL,
	law_id          TEXT,
	source_type     TEXT NOT NULL,
	record          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS solver_results_file_idx ON solver_results (file);
CREATE INDEX IF NOT EXISTS solver_results_law_idx ON solver_results (law_id);
`

// ResultsRepository persists emitted result records for later inspection.
// It implements ports.ResultStore.
type ResultsRepository struct {
	db *sql.DB
}

func NewResultsRepository(db *sql.DB) *ResultsRepository {
	return &ResultsRepository{db: db}
}

// EnsureSchema creates the results table. The advisory lock serializes
// concurrent starters against each other.
func (r *ResultsRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(0x1e8a6)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}

const insertResultSQL = `
INSERT INTO solver_results (file, chosen, mode, confidence, robust_confidence, has_quote, law_id, source_type, record)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *ResultsRepository) SaveResult(ctx context.Context, rec *domain.ResultRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result record: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertResultSQL,
		rec.File,
		rec.Chosen,
		string(rec.Mode),
		rec.Confidence,
		rec.RobustConfidence,
		rec.HasQuote,
		nullIfEmpty(rec.LawID),
		string(rec.Source.Type),
		raw,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
