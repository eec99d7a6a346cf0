// Package storage provides a PostgreSQL-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver and array helpers

	"github.com/CreativeUnicorns/cinehub"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS pref_types (
			name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_prefs (
			owner_id BIGINT NOT NULL,
			name TEXT NOT NULL REFERENCES pref_types (name),
			profile_name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner_id, name, profile_name)
		);
	`

	insertTypeSQL = `
		INSERT INTO pref_types (name, data_type, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`

	selectTypeSQL = `
		SELECT name, data_type, created_at
		FROM pref_types
		WHERE name = $1
	`

	selectTypesSQL = `
		SELECT name, data_type, created_at
		FROM pref_types
	`

	insertPrefSQL = `
		INSERT INTO user_prefs (owner_id, name, profile_name, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, name, profile_name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	updatePrefSQL = `
		UPDATE user_prefs
		SET value = $1, updated_at = $2
		WHERE owner_id = $3 AND name = $4 AND profile_name = $5
	`

	selectPrefsByNameSQL = `
		SELECT owner_id, name, profile_name, value, updated_at
		FROM user_prefs
		WHERE owner_id = $1 AND name = ANY($2)
	`

	selectAllPrefsSQL = `
		SELECT owner_id, name, profile_name, value, updated_at
		FROM user_prefs
		WHERE owner_id = $1
	`
)

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects to PostgreSQL using connString and runs migrations.
func NewPostgresStorage(connString string) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *PostgresStorage) migrate() error {
	_, err := s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute create table statement: %w", err)
	}
	return nil
}

// GetType returns cinehub.ErrNotFound if no type is registered under name.
func (s *PostgresStorage) GetType(ctx context.Context, name string) (*cinehub.PreferenceType, error) {
	var pt cinehub.PreferenceType
	err := s.db.QueryRowContext(ctx, selectTypeSQL, name).Scan(&pt.Name, &pt.DataType, &pt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cinehub.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan preference type '%s': %w", name, err)
	}
	return &pt, nil
}

// CreateType stores pt, returning cinehub.ErrTypeConflict when the name is taken.
func (s *PostgresStorage) CreateType(ctx context.Context, pt *cinehub.PreferenceType) error {
	result, err := s.db.ExecContext(ctx, insertTypeSQL, pt.Name, string(pt.DataType), pt.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert preference type '%s': %w", pt.Name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get affected rows for preference type '%s': %w", pt.Name, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", cinehub.ErrTypeConflict, pt.Name)
	}
	return nil
}

// ListTypes returns every registered type.
func (s *PostgresStorage) ListTypes(ctx context.Context) ([]*cinehub.PreferenceType, error) {
	rows, err := s.db.QueryContext(ctx, selectTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query preference types: %w", err)
	}
	defer rows.Close()

	var types []*cinehub.PreferenceType
	for rows.Next() {
		var pt cinehub.PreferenceType
		if err := rows.Scan(&pt.Name, &pt.DataType, &pt.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan preference type row: %w", err)
		}
		types = append(types, &pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating preference type rows: %w", err)
	}
	return types, nil
}

// Find returns the owner's rows matching keys.
func (s *PostgresStorage) Find(ctx context.Context, ownerID int64, keys []cinehub.Key) ([]*cinehub.Preference, error) {
	if len(keys) == 0 {
		return []*cinehub.Preference{}, nil
	}

	names, set := keyNames(keys)
	rows, err := s.db.QueryContext(ctx, selectPrefsByNameSQL, ownerID, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query preferences for owner %d: %w", ownerID, err)
	}

	prefs, err := scanPreferences(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	found := prefs[:0]
	for _, p := range prefs {
		if set[p.Key()] {
			found = append(found, p)
		}
	}
	return found, nil
}

// Insert writes all rows in one transaction.
func (s *PostgresStorage) Insert(ctx context.Context, prefs []*cinehub.Preference) error {
	return insertInTx(ctx, s.db, insertPrefSQL, prefs, "postgres")
}

// Update overwrites the value of an existing row.
func (s *PostgresStorage) Update(ctx context.Context, pref *cinehub.Preference) error {
	result, err := s.db.ExecContext(ctx, updatePrefSQL, pref.Value, pref.UpdatedAt, pref.OwnerID, pref.Name, pref.ProfileName)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute update for owner %d, name '%s': %w", pref.OwnerID, pref.Name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get affected rows for owner %d, name '%s': %w", pref.OwnerID, pref.Name, err)
	}
	if rowsAffected == 0 {
		return cinehub.ErrNotFound
	}
	return nil
}

// GetAll retrieves every row of ownerID.
func (s *PostgresStorage) GetAll(ctx context.Context, ownerID int64) ([]*cinehub.Preference, error) {
	rows, err := s.db.QueryContext(ctx, selectAllPrefsSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query all preferences for owner %d: %w", ownerID, err)
	}

	prefs, err := scanPreferences(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return prefs, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
