// Package journal keeps a history of finished compilations.
package journal

import "time"

// DefaultDBPath is the default relative path for the SQLite journal.
const DefaultDBPath = ".stcgate/journal.db"

// Entry is one finished compilation request.
type Entry struct {
	ID              int64         `json:"id"`
	RequestID       string        `json:"request_id"`
	Filename        string        `json:"filename"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration_ns"`
	Outcome         string        `json:"outcome"`
	ExitCode        int           `json:"exit_code"`
	TokenCount      int           `json:"tokens"`
	DiagnosticCount int           `json:"diagnostics"`
}

// Store is the journal facade; implementation is SQLite or in-memory.
type Store interface {
	Record(e *Entry) (id int64, err error)
	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]*Entry, error)
	Close() error
}

// Open returns a SqlStore at path, or a MemStore when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemStore(), nil
	}
	return OpenSQL(path)
}
