package cinehub

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStorage implements the Storage interface for testing. The *Err fields
// force the matching method to fail.
type MockStorage struct {
	mu     sync.RWMutex
	types  map[string]*PreferenceType
	rows   map[int64]map[Key]*Preference
	closed bool

	getTypeErr error
	findErr    error
	insertErr  error
	updateErr  error
	getAllErr  error

	// beforeWrite, when set, runs before Insert and Update take the lock.
	beforeWrite func(op string, prefs []*Preference)

	insertCalls int
	updateCalls int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		types: make(map[string]*PreferenceType),
		rows:  make(map[int64]map[Key]*Preference),
	}
}

func (m *MockStorage) GetType(_ context.Context, name string) (*PreferenceType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if m.getTypeErr != nil {
		return nil, m.getTypeErr
	}
	pt, ok := m.types[name]
	if !ok {
		return nil, ErrNotFound
	}
	ptCopy := *pt
	return &ptCopy, nil
}

func (m *MockStorage) CreateType(_ context.Context, pt *PreferenceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageUnavailable
	}
	if _, ok := m.types[pt.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTypeConflict, pt.Name)
	}
	ptCopy := *pt
	m.types[pt.Name] = &ptCopy
	return nil
}

func (m *MockStorage) ListTypes(_ context.Context) ([]*PreferenceType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	out := make([]*PreferenceType, 0, len(m.types))
	for _, pt := range m.types {
		ptCopy := *pt
		out = append(out, &ptCopy)
	}
	return out, nil
}

func (m *MockStorage) Find(_ context.Context, ownerID int64, keys []Key) ([]*Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*Preference
	for _, k := range keys {
		if p, ok := m.rows[ownerID][k]; ok {
			pCopy := *p
			out = append(out, &pCopy)
		}
	}
	return out, nil
}

func (m *MockStorage) Insert(_ context.Context, prefs []*Preference) error {
	if m.beforeWrite != nil {
		m.beforeWrite("insert", prefs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if m.closed {
		return ErrStorageUnavailable
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, p := range prefs {
		if m.rows[p.OwnerID] == nil {
			m.rows[p.OwnerID] = make(map[Key]*Preference)
		}
		pCopy := *p
		m.rows[p.OwnerID][p.Key()] = &pCopy
	}
	return nil
}

func (m *MockStorage) Update(_ context.Context, pref *Preference) error {
	if m.beforeWrite != nil {
		m.beforeWrite("update", []*Preference{pref})
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.closed {
		return ErrStorageUnavailable
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	row, ok := m.rows[pref.OwnerID][pref.Key()]
	if !ok {
		return ErrNotFound
	}
	row.Value = pref.Value
	row.UpdatedAt = pref.UpdatedAt
	return nil
}

func (m *MockStorage) GetAll(_ context.Context, ownerID int64) ([]*Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStorageUnavailable
	}
	if m.getAllErr != nil {
		return nil, m.getAllErr
	}
	out := make([]*Preference, 0, len(m.rows[ownerID]))
	for _, p := range m.rows[ownerID] {
		pCopy := *p
		out = append(out, &pCopy)
	}
	return out, nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// row returns the stored row for key, or nil.
func (m *MockStorage) row(ownerID int64, k Key) *Preference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.rows[ownerID][k]; ok {
		pCopy := *p
		return &pCopy
	}
	return nil
}

// MockCache implements the Cache interface for testing
type MockCache struct {
	mu     sync.RWMutex
	items  map[string][]byte
	getErr error
	setErr error
	delErr error

	gets, sets, deletes int
}

// NewMockCache creates a new MockCache for testing.
func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes++
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.items, key)
	return nil
}

func (m *MockCache) Close() error {
	return nil
}

func (m *MockCache) has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok
}

// logEntry is one call recorded by MockLogger.
type logEntry struct {
	level LogLevel
	msg   string
	args  []any
}

// MockLogger records every log call.
type MockLogger struct {
	mu      sync.Mutex
	entries []logEntry
	level   LogLevel
}

func (l *MockLogger) log(level LogLevel, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *MockLogger) Debug(msg string, args ...any) { l.log(LogLevelDebug, msg, args) }
func (l *MockLogger) Info(msg string, args ...any)  { l.log(LogLevelInfo, msg, args) }
func (l *MockLogger) Warn(msg string, args ...any)  { l.log(LogLevelWarn, msg, args) }
func (l *MockLogger) Error(msg string, args ...any) { l.log(LogLevelError, msg, args) }

func (l *MockLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// messages returns the recorded messages at level.
func (l *MockLogger) messages(level LogLevel) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}
