package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleEntries() []*Entry {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*Entry{
		{RequestID: "a", Filename: "ok.stc", StartedAt: t0, Duration: 120 * time.Millisecond, Outcome: "ok", TokenCount: 12},
		{RequestID: "b", Filename: "mal.stc", StartedAt: t0.Add(time.Second), Duration: 90 * time.Millisecond, Outcome: "diagnostics", TokenCount: 4, DiagnosticCount: 1},
		{RequestID: "c", Filename: "lento.stc", StartedAt: t0.Add(2 * time.Second), Duration: 30 * time.Second, Outcome: "timeout", ExitCode: -1},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	entries := sampleEntries()
	var lastID int64
	for _, e := range entries {
		id, err := s.Record(e)
		if err != nil {
			t.Fatalf("Record(%s): %v", e.RequestID, err)
		}
		if id <= lastID {
			t.Fatalf("ids not increasing: %d after %d", id, lastID)
		}
		lastID = id
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []*Entry{entries[2], entries[1]}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Entry{}, "ID")); diff != "" {
		t.Errorf("Recent(2) mismatch (-want +got):\n%s", diff)
	}

	all, err := s.Recent(50)
	if err != nil || len(all) != 3 {
		t.Fatalf("Recent(50): got %d err %v", len(all), err)
	}
	if all[0].ID != lastID {
		t.Errorf("newest first: got id %d want %d", all[0].ID, lastID)
	}
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestSqlStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	s, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSqlStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	if _, err := s.Record(sampleEntries()[0]); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Recent(10)
	if err != nil || len(got) != 1 || got[0].RequestID != "a" {
		t.Fatalf("after reopen: got %+v err %v", got, err)
	}
}

func TestSqlStore_DuplicateRequestID(t *testing.T) {
	s, err := OpenSQL(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer s.Close()
	e := sampleEntries()[0]
	if _, err := s.Record(e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record(e); err == nil {
		t.Fatal("expected unique violation on repeated request id")
	}
}

func TestOpen_EmptyPathIsMemory(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*MemStore); !ok {
		t.Fatalf("Open(\"\") = %T, want *MemStore", s)
	}
}
