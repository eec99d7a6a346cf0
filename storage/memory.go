package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CreativeUnicorns/cinehub"
)

// MemoryStorage implements the Storage interface using in-memory maps.
// This is useful for testing or simple deployments where persistence is not required.
type MemoryStorage struct {
	mu    sync.RWMutex
	types map[string]*cinehub.PreferenceType
	prefs map[int64]map[cinehub.Key]*cinehub.Preference // ownerID -> key -> row
}

// NewMemoryStorage creates a new instance of MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		types: make(map[string]*cinehub.PreferenceType),
		prefs: make(map[int64]map[cinehub.Key]*cinehub.Preference),
	}
}

// GetType returns cinehub.ErrNotFound if no type is registered under name.
func (s *MemoryStorage) GetType(_ context.Context, name string) (*cinehub.PreferenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pt, ok := s.types[name]
	if !ok {
		return nil, cinehub.ErrNotFound
	}
	ptCopy := *pt
	return &ptCopy, nil
}

// CreateType stores pt unless its name is taken.
func (s *MemoryStorage) CreateType(_ context.Context, pt *cinehub.PreferenceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.types[pt.Name]; ok {
		return fmt.Errorf("%w: %s", cinehub.ErrTypeConflict, pt.Name)
	}
	ptCopy := *pt
	if ptCopy.CreatedAt.IsZero() {
		ptCopy.CreatedAt = time.Now().UTC()
	}
	s.types[pt.Name] = &ptCopy
	return nil
}

// ListTypes returns copies of every registered type.
func (s *MemoryStorage) ListTypes(_ context.Context) ([]*cinehub.PreferenceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]*cinehub.PreferenceType, 0, len(s.types))
	for _, pt := range s.types {
		ptCopy := *pt
		types = append(types, &ptCopy)
	}
	return types, nil
}

// Find returns copies of the owner's rows matching keys.
func (s *MemoryStorage) Find(_ context.Context, ownerID int64, keys []cinehub.Key) ([]*cinehub.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.prefs[ownerID]
	found := make([]*cinehub.Preference, 0, len(keys))
	for _, k := range keys {
		if p, ok := rows[k]; ok {
			pCopy := *p
			found = append(found, &pCopy)
		}
	}
	return found, nil
}

// Insert stores all rows under a single lock. Existing keys are overwritten.
func (s *MemoryStorage) Insert(_ context.Context, prefs []*cinehub.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range prefs {
		rows, ok := s.prefs[p.OwnerID]
		if !ok {
			rows = make(map[cinehub.Key]*cinehub.Preference)
			s.prefs[p.OwnerID] = rows
		}
		pCopy := *p
		rows[p.Key()] = &pCopy
	}
	return nil
}

// Update overwrites the value of an existing row.
func (s *MemoryStorage) Update(_ context.Context, pref *cinehub.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.prefs[pref.OwnerID][pref.Key()]
	if !ok {
		return cinehub.ErrNotFound
	}
	row.Value = pref.Value
	row.UpdatedAt = pref.UpdatedAt
	return nil
}

// GetAll returns copies of every row of ownerID.
func (s *MemoryStorage) GetAll(_ context.Context, ownerID int64) ([]*cinehub.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.prefs[ownerID]
	all := make([]*cinehub.Preference, 0, len(rows))
	for _, p := range rows {
		pCopy := *p
		all = append(all, &pCopy)
	}
	return all, nil
}

// Close is a no-op for MemoryStorage as there are no external resources to release.
func (s *MemoryStorage) Close() error {
	return nil
}
