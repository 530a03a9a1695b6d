package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS metric_results (
	id         TEXT PRIMARY KEY,
	slug       TEXT NOT NULL,
	input      TEXT NOT NULL,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_metric_results_slug ON metric_results(slug);
CREATE INDEX IF NOT EXISTS idx_metric_results_created_at ON metric_results(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save serializes the record to JSON and inserts it under a fresh id.
func (s *SQLiteStore) Save(ctx context.Context, slug, input string, record any) (*Result, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metric_results (id, slug, input, record, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, slug, input, string(recordJSON), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert result for %s", slug)
	}

	return &Result{
		ID:        id,
		Slug:      slug,
		Input:     input,
		Record:    string(recordJSON),
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, input, record, created_at FROM metric_results WHERE id = ?`,
		id,
	)

	var r Result
	err := row.Scan(&r.ID, &r.Slug, &r.Input, &r.Record, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: result not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan result")
	}
	return &r, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Result, error) {
	query := `SELECT id, slug, input, record, created_at FROM metric_results WHERE 1=1`
	var args []any

	if filter.Slug != "" {
		query += ` AND slug = ?`
		args = append(args, filter.Slug)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Slug, &r.Input, &r.Record, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}
