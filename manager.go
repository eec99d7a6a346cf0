// manager.go
package cinehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Manager is the preference store: it validates submitted batches against the Registry, merges
// them into the owner's stored rows and serves typed reads.
//
// Manager performs no locking of its own. Two concurrent Upserts touching the same key race and
// the last write to reach storage wins.
type Manager struct {
	config    *Config
	registry  *Registry
	validator *Validator
}

// New creates a Manager. WithStorage is required.
func New(opts ...Option) *Manager {
	cfg := newConfig(opts...)
	registry := newRegistry(cfg)

	return &Manager{
		config:    cfg,
		registry:  registry,
		validator: NewValidator(registry),
	}
}

// Registry returns the preference type registry used by m.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// AddPrefType registers a new preference type. See Registry.Register for the failure modes.
func (m *Manager) AddPrefType(ctx context.Context, name string, dataType DataType) (*PreferenceType, error) {
	return m.registry.Register(ctx, name, dataType)
}

// PrefTypes lists every registered preference type.
func (m *Manager) PrefTypes(ctx context.Context) ([]*PreferenceType, error) {
	return m.registry.List(ctx)
}

// Validate runs the validator over entries without persisting anything.
func (m *Manager) Validate(ctx context.Context, entries []Entry) (*Validation, error) {
	return m.validator.Validate(ctx, entries)
}

// Upsert validates entries and stores the valid ones for ownerID, overwriting the value of rows
// that already exist for the same (name, profile). Validation messages and per-entry storage
// failures are both returned in UpsertResult.Errors; the error return is reserved for invalid
// input and system failures.
func (m *Manager) Upsert(ctx context.Context, ownerID int64, entries []Entry) (*UpsertResult, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner id must be positive", ErrInvalidInput)
	}

	validation, err := m.validator.Validate(ctx, entries)
	if err != nil {
		return nil, err
	}

	result := &UpsertResult{
		Persisted: []*Preference{},
		Profiles:  Profiles{},
		Errors:    validation.Errors,
	}
	if len(validation.Valid) == 0 {
		return result, nil
	}

	values := make(map[Key]Value, len(entries))
	for _, e := range entries {
		values[e.Key()] = e.Value
	}

	existing, err := m.config.storage.Find(ctx, ownerID, validation.Valid)
	if err != nil {
		m.config.logger.Error("Failed to load existing preferences", "owner_id", ownerID, "error", err)
		for _, k := range validation.Valid {
			result.Errors = append(result.Errors, saveFailed(k))
		}
		return result, nil
	}
	current := make(map[Key]*Preference, len(existing))
	for _, p := range existing {
		current[p.Key()] = p
	}

	now := time.Now().UTC()
	var inserts, updates []*Preference
	for _, k := range validation.Valid {
		value := values[k].String()
		if row, ok := current[k]; ok {
			row.Value = value
			row.UpdatedAt = now
			updates = append(updates, row)
			continue
		}
		inserts = append(inserts, &Preference{
			OwnerID:     ownerID,
			Name:        k.Name,
			Value:       value,
			ProfileName: k.ProfileName,
			UpdatedAt:   now,
		})
	}

	if len(inserts) > 0 {
		if err := m.config.storage.Insert(ctx, inserts); err != nil {
			m.config.logger.Error("Failed to insert preferences", "owner_id", ownerID, "count", len(inserts), "error", err)
			for _, p := range inserts {
				result.Errors = append(result.Errors, saveFailed(p.Key()))
			}
		} else {
			result.Persisted = append(result.Persisted, inserts...)
		}
	}

	for _, p := range updates {
		err := m.config.storage.Update(ctx, p)
		if errors.Is(err, ErrNotFound) {
			// Deleted since Find; write it back as a new row.
			err = m.config.storage.Insert(ctx, []*Preference{p})
		}
		if err != nil {
			m.config.logger.Error("Failed to update preference", "owner_id", ownerID, "name", p.Name, "profile", p.ProfileName, "error", err)
			result.Errors = append(result.Errors, saveFailed(p.Key()))
			continue
		}
		result.Persisted = append(result.Persisted, p)
	}

	if m.config.cache != nil {
		m.deleteFromCache(ctx, ownerID)
	}

	typed, err := m.registry.Cast(ctx, result.Persisted)
	if err != nil {
		return nil, err
	}
	result.Profiles = GroupByProfile(typed)

	m.config.logger.Debug("Upserted preferences", "owner_id", ownerID, "persisted", len(result.Persisted), "errors", len(result.Errors))
	return result, nil
}

// Profiles returns every stored preference of ownerID decoded and grouped by profile.
func (m *Manager) Profiles(ctx context.Context, ownerID int64) (Profiles, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner id must be positive", ErrInvalidInput)
	}

	if m.config.cache != nil {
		if profiles, err := m.getFromCache(ctx, ownerID); err == nil {
			return profiles, nil
		}
	}

	rows, err := m.config.storage.GetAll(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for owner %d: %w", ownerID, err)
	}

	typed, err := m.registry.Cast(ctx, rows)
	if err != nil {
		return nil, err
	}
	profiles := GroupByProfile(typed)

	if m.config.cache != nil {
		m.setToCache(ctx, ownerID, profiles)
	}
	return profiles, nil
}

func saveFailed(k Key) string {
	return fmt.Sprintf("Preference %s for profile %s could not be saved.", k.Name, k.ProfileName)
}

func profilesCacheKey(ownerID int64) string {
	return fmt.Sprintf("prefs:%d", ownerID)
}

func (m *Manager) getFromCache(ctx context.Context, ownerID int64) (Profiles, error) {
	data, err := m.config.cache.Get(ctx, profilesCacheKey(ownerID))
	if err != nil {
		return nil, err
	}

	var profiles Profiles
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (m *Manager) setToCache(ctx context.Context, ownerID int64, profiles Profiles) {
	data, err := json.Marshal(profiles)
	if err != nil {
		m.config.logger.Error("Failed to marshal preferences for cache", "error", err)
		return
	}

	if err := m.config.cache.Set(ctx, profilesCacheKey(ownerID), data, m.config.cacheTTL); err != nil {
		m.config.logger.Error("Failed to cache preferences", "owner_id", ownerID, "error", err)
	}
}

func (m *Manager) deleteFromCache(ctx context.Context, ownerID int64) {
	if err := m.config.cache.Delete(ctx, profilesCacheKey(ownerID)); err != nil {
		m.config.logger.Error("Failed to delete preferences from cache", "owner_id", ownerID, "error", err)
	}
}
