package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// OpenSQL opens or creates a SQLite journal at path and runs migrations.
// Creates the parent directory (e.g. .stcgate) if it does not exist.
func OpenSQL(path string) (*SqlStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; concurrent requests queue here instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create v1 schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersionV1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch v {
	case schemaVersionV1:
		return nil
	default:
		return fmt.Errorf("unknown schema version %d", v)
	}
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

func (s *SqlStore) Record(e *Entry) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO compilations(request_id, filename, started_at, duration_ns, outcome, exit_code, token_count, diagnostic_count)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Filename, e.StartedAt.UTC().Format(time.RFC3339Nano), int64(e.Duration),
		e.Outcome, e.ExitCode, e.TokenCount, e.DiagnosticCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert compilation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *SqlStore) Recent(limit int) ([]*Entry, error) {
	rows, err := s.db.Query(
		`SELECT id, request_id, filename, started_at, duration_ns, outcome, exit_code, token_count, diagnostic_count
		 FROM compilations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var started string
		var dur int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Filename, &started, &dur,
			&e.Outcome, &e.ExitCode, &e.TokenCount, &e.DiagnosticCount); err != nil {
			return nil, fmt.Errorf("scan compilation: %w", err)
		}
		e.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		e.Duration = time.Duration(dur)
		out = append(out, &e)
	}
	return out, rows.Err()
}
