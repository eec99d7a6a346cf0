package cinehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

const defaultCacheTTL = 24 * time.Hour

// Registry stores the allowed preference names and their data kinds.
// Registered types are never mutated, so cached lookups need no invalidation.
type Registry struct {
	storage Storage
	cache   Cache
	logger  Logger
	enums   map[string][]string
	ttl     time.Duration
}

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		logger:   NewDefaultLogger(),
		enums:    DefaultEnums(),
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewRegistry creates a Registry from the same options accepted by New.
// WithStorage is required.
func NewRegistry(opts ...Option) *Registry {
	return newRegistry(newConfig(opts...))
}

func newRegistry(cfg *Config) *Registry {
	return &Registry{
		storage: cfg.storage,
		cache:   cfg.cache,
		logger:  cfg.logger,
		enums:   cfg.enums,
		ttl:     cfg.cacheTTL,
	}
}

// Find returns the type registered under name, or an error wrapping ErrTypeNotFound.
func (r *Registry) Find(ctx context.Context, name string) (*PreferenceType, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrTypeNotFound)
	}

	if r.cache != nil {
		if pt, err := r.typeFromCache(ctx, name); err == nil {
			return pt, nil
		}
	}

	pt, err := r.storage.GetType(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preference type %q: %w", name, err)
	}

	if r.cache != nil {
		r.typeToCache(ctx, pt)
	}
	return pt, nil
}

// Register adds a new preference type. It fails with ErrInvalidDataType when dataType is not one
// of the four kinds, ErrEnumNotConfigured for an enum without an allowed-value set and
// ErrTypeConflict when name is taken.
func (r *Registry) Register(ctx context.Context, name string, dataType DataType) (*PreferenceType, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: preference name is required", ErrInvalidInput)
	}
	if !dataType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDataType, dataType)
	}
	if dataType == TypeEnum {
		if _, err := r.AllowedValues(name); err != nil {
			return nil, err
		}
	}

	pt := &PreferenceType{
		Name:      name,
		DataType:  dataType,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.storage.CreateType(ctx, pt); err != nil {
		return nil, err
	}

	r.logger.Info("Registered preference type", "name", name, "data_type", dataType)
	return pt, nil
}

// List returns every registered type ordered by name.
func (r *Registry) List(ctx context.Context) ([]*PreferenceType, error) {
	types, err := r.storage.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preference types: %w", err)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

// AllowedValues returns the configured values of the enum preference name.
func (r *Registry) AllowedValues(name string) ([]string, error) {
	values, ok := r.enums[name]
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEnumNotConfigured, name)
	}
	return values, nil
}

// Cast decodes stored rows to their declared types. Rows whose type is no longer registered keep
// their string value.
func (r *Registry) Cast(ctx context.Context, prefs []*Preference) ([]TypedPreference, error) {
	kinds := make(map[string]DataType)
	typed := make([]TypedPreference, 0, len(prefs))

	for _, p := range prefs {
		dt, ok := kinds[p.Name]
		if !ok {
			pt, err := r.Find(ctx, p.Name)
			switch {
			case errors.Is(err, ErrTypeNotFound):
				dt = TypeString
			case err != nil:
				return nil, err
			default:
				dt = pt.DataType
			}
			kinds[p.Name] = dt
		}

		v, err := Decode(p.Value, dt)
		if err != nil {
			r.logger.Warn("Stored preference does not match its type", "name", p.Name, "profile", p.ProfileName, "error", err)
		}
		typed = append(typed, TypedPreference{Name: p.Name, ProfileName: p.ProfileName, Value: v})
	}
	return typed, nil
}

func typeCacheKey(name string) string {
	return "preftype:" + name
}

func (r *Registry) typeFromCache(ctx context.Context, name string) (*PreferenceType, error) {
	data, err := r.cache.Get(ctx, typeCacheKey(name))
	if err != nil {
		return nil, err
	}

	var pt PreferenceType
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, err
	}
	return &pt, nil
}

func (r *Registry) typeToCache(ctx context.Context, pt *PreferenceType) {
	data, err := json.Marshal(pt)
	if err != nil {
		r.logger.Error("Failed to marshal preference type for cache", "error", err)
		return
	}
	if err := r.cache.Set(ctx, typeCacheKey(pt.Name), data, r.ttl); err != nil {
		r.logger.Error("Failed to cache preference type", "name", pt.Name, "error", err)
	}
}
