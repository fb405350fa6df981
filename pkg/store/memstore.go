package store

import (
	"sync"

	"github.com/kasuganosora/historystore/pkg/archiverow"
)

// MemoryStore is the in-memory Store variant. It never touches disk; rows are
// held in a slice in the order the writer wrote them.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     []*archiverow.Row
	metadata *Metadata
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) OpenWriter() (RowWriter, error) {
	return &memWriter{store: s}, nil
}

func (s *MemoryStore) OpenReader() (RowReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]*archiverow.Row, len(s.rows))
	copy(snapshot, s.rows)
	return &memReader{rows: snapshot}, nil
}

func (s *MemoryStore) LoadMetadata() (*Metadata, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metadata == nil {
		return nil, false, nil
	}
	return s.metadata, true, nil
}

func (s *MemoryStore) SaveMetadata(m *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = m
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// memWriter stages rows in a private slice and swaps it into the store only
// on a successful Close, giving the same atomic-commit semantics as the
// persistent variant's staged key range swapped in by one transaction
// (spec §5).
type memWriter struct {
	store  *MemoryStore
	staged []*archiverow.Row
	closed bool
}

func (w *memWriter) Write(row *archiverow.Row) error {
	w.staged = append(w.staged, row)
	return nil
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.rows = w.staged
	return nil
}

type memReader struct {
	rows []*archiverow.Row
	pos  int
}

func (r *memReader) Next() (*archiverow.Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

func (r *memReader) Close() error { return nil }
