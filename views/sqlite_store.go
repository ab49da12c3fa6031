package views

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecordStore appends records as rows of an insert-only table.
type SQLiteRecordStore struct {
	db     *sql.DB
	runID  string
	rows   uint64
	closed atomic.Bool
}

// OpenSQLiteRecordStore opens (or creates) the database at path and tags
// every appended row with runID.
func OpenSQLiteRecordStore(path, runID string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteRecordStore{db: db, runID: runID}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLiteRecordStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		line       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// AppendRecord inserts rec as one row; a failed insert leaves no row.
func (s *SQLiteRecordStore) AppendRecord(ctx context.Context, rec []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (run_id, line, created_at) VALUES (?, ?, ?)`,
		s.runID, string(rec), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	atomic.AddUint64(&s.rows, 1)
	return nil
}

// Lines returns the records of runID in insertion order.
func (s *SQLiteRecordStore) Lines(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Rows returns the number of records appended through this store.
func (s *SQLiteRecordStore) Rows() uint64 {
	return atomic.LoadUint64(&s.rows)
}

func (s *SQLiteRecordStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
