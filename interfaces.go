// Package cinehub defines interfaces for storage and caching used in preference management.
package cinehub

import (
	"context"
	"time"
)

// Storage defines the methods required for a storage backend.
type Storage interface {
	// GetType returns ErrNotFound when no type is registered under name.
	GetType(ctx context.Context, name string) (*PreferenceType, error)
	// CreateType returns ErrTypeConflict when name is already registered.
	CreateType(ctx context.Context, pt *PreferenceType) error
	ListTypes(ctx context.Context) ([]*PreferenceType, error)

	// Find returns the owner's rows matching keys. Missing keys are simply absent.
	Find(ctx context.Context, ownerID int64, keys []Key) ([]*Preference, error)
	// Insert writes all rows atomically. A row whose key already exists has its value replaced.
	Insert(ctx context.Context, prefs []*Preference) error
	// Update sets the value of an existing row. Returns ErrNotFound if the row is gone.
	Update(ctx context.Context, pref *Preference) error
	GetAll(ctx context.Context, ownerID int64) ([]*Preference, error)
	Close() error
}

// Cache defines the methods required for a caching backend.
// Get returns ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
