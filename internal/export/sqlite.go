// internal/export/sqlite.go
package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores samples in a "samples" table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database and its schema.
// Use ":memory:" for an in-memory database.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("export sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteSink{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("export sqlite: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_ms INTEGER NOT NULL,
		device TEXT NOT NULL,
		ref TEXT NOT NULL,
		value TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_device_ref ON samples(device, ref);
	CREATE INDEX IF NOT EXISTS idx_samples_timestamp ON samples(timestamp_ms);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Write inserts all samples in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO samples (timestamp_ms, device, ref, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("export sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		if _, err := stmt.ExecContext(ctx,
			smp.Timestamp.UnixMilli(), smp.Device, smp.Ref, formatValue(smp.Value),
		); err != nil {
			return fmt.Errorf("export sqlite: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
