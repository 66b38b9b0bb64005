// Package memstore implements an in-process storage.Provider backed by a
// plain map. It has no durability across restarts and exists for demos,
// tests, and actor types that deliberately opt out of persistence.
package memstore

import (
	"context"
	"sync"

	"github.com/silocore/vactor/internal/storage"
)

// Store is a mutex-guarded map-backed storage.Provider.
type Store struct {
	mu      sync.Mutex
	records map[string]storage.Record
}

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[string]storage.Record)}
}

var _ storage.Provider = (*Store)(nil)

func key(stateType, k string) string { return stateType + "/" + k }

// SaveWithVersion implements storage.Provider.
func (s *Store) SaveWithVersion(_ context.Context, stateType, k string, data []byte, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordKey := key(stateType, k)
	cur, ok := s.records[recordKey]
	if ok && cur.Version != expectedVersion {
		return 0, storage.ErrVersionConflict
	}
	if !ok && expectedVersion != 0 {
		return 0, storage.ErrVersionConflict
	}

	next := cur.Version + 1
	s.records[recordKey] = storage.Record{Data: data, Version: next}
	return next, nil
}

// LoadWithVersion implements storage.Provider.
func (s *Store) LoadWithVersion(_ context.Context, stateType, k string) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key(stateType, k)]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

// Delete implements storage.Provider.
func (s *Store) Delete(_ context.Context, stateType, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key(stateType, k))
	return nil
}

// Close implements storage.Provider.
func (s *Store) Close() error { return nil }
