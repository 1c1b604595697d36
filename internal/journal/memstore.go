package journal

import "sync"

// MemStore is an in-memory Store for tests and journal-less deployments.
type MemStore struct {
	mu      sync.Mutex
	entries []*Entry
	nextID  int64
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (s *MemStore) Record(e *Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	cp.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, &cp)
	return cp.ID, nil
}

func (s *MemStore) Recent(limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }
