// Package cinehub defines the core types used by the preference subsystem.
package cinehub

import (
	"time"
)

// PreferenceType is a registered kind of preference. Entries are validated against it by name.
type PreferenceType struct {
	// Name is the unique identifier of the preference (e.g. "theme").
	Name string `json:"prefName"`
	// DataType is the kind of value the preference accepts.
	DataType DataType `json:"dataType"`
	// CreatedAt is set by the storage backend when the type is registered.
	CreatedAt time.Time `json:"createdAt"`
}

// Entry is a candidate preference submitted by a caller, not yet validated or serialized.
type Entry struct {
	Name        string `json:"name"`
	Value       Value  `json:"value"`
	ProfileName string `json:"profileName"`
}

// Key returns the (name, profile) pair identifying e within a batch.
func (e Entry) Key() Key {
	return Key{Name: e.Name, ProfileName: e.ProfileName}
}

// Key identifies a preference within one owner's data.
type Key struct {
	Name        string `json:"name"`
	ProfileName string `json:"profileName"`
}

// Preference is one stored preference row. Value holds the canonical string form; its semantic
// type comes from the PreferenceType registered under Name.
// (OwnerID, Name, ProfileName) is unique.
type Preference struct {
	OwnerID     int64     `json:"userId"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	ProfileName string    `json:"profileName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Key returns the (name, profile) pair of p.
func (p *Preference) Key() Key {
	return Key{Name: p.Name, ProfileName: p.ProfileName}
}

// TypedPreference is a stored preference whose value has been decoded to its declared type.
type TypedPreference struct {
	Name        string `json:"name"`
	ProfileName string `json:"profileName"`
	Value       Value  `json:"value"`
}

// Profiles maps profile name -> preference name -> typed value.
type Profiles map[string]map[string]Value

// Validation is the outcome of validating a batch of entries.
type Validation struct {
	// Valid lists the keys that passed every check, in submission order.
	Valid []Key `json:"valid"`
	// Errors holds one message per rejected entry (one per duplicated key).
	Errors []string `json:"errors"`
}

// UpsertResult is returned by Manager.Upsert.
type UpsertResult struct {
	// Persisted holds the rows written by this call.
	Persisted []*Preference `json:"-"`
	// Profiles is Persisted decoded and grouped by profile.
	Profiles Profiles `json:"prefs"`
	// Errors accumulates validation and persistence messages.
	Errors []string `json:"errors"`
}

// Config holds the internal configuration for a Manager instance.
// It is populated by applying functional Options when a new Manager is created with New().
type Config struct {
	storage  Storage
	cache    Cache
	logger   Logger
	enums    map[string][]string
	cacheTTL time.Duration
}

// Option defines the signature for a functional option that configures a Manager instance.
type Option func(*Config)

// WithStorage sets the Storage implementation used for preference types and rows.
// This is a mandatory option for a functional Manager.
func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithCache sets an optional Cache used for type lookups and per-owner reads.
func WithCache(cache Cache) Option {
	return func(c *Config) {
		c.cache = cache
	}
}

// WithLogger sets the Logger used by the Manager. Defaults to NewDefaultLogger().
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithEnums sets the allowed-value table for enum preferences, keyed by preference name.
// The map is copied.
func WithEnums(enums map[string][]string) Option {
	return func(c *Config) {
		c.enums = make(map[string][]string, len(enums))
		for name, values := range enums {
			c.enums[name] = append([]string(nil), values...)
		}
	}
}

// WithCacheTTL sets how long cached entries live. Zero keeps the default of 24 hours.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}
