// Package storage provides a SQLite-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/CreativeUnicorns/cinehub"
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS pref_types (
			name TEXT NOT NULL PRIMARY KEY,
			data_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS user_prefs (
			owner_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			profile_name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_id, name, profile_name)
		);
	`

	sqliteInsertTypeSQL = `
		INSERT INTO pref_types (name, data_type, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`

	sqliteSelectTypeSQL = `
		SELECT name, data_type, created_at
		FROM pref_types
		WHERE name = ?
	`

	sqliteSelectTypesSQL = `
		SELECT name, data_type, created_at
		FROM pref_types
	`

	sqliteInsertPrefSQL = `
		INSERT INTO user_prefs (owner_id, name, profile_name, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, name, profile_name)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	sqliteUpdatePrefSQL = `
		UPDATE user_prefs
		SET value = ?, updated_at = ?
		WHERE owner_id = ? AND name = ? AND profile_name = ?
	`

	// %s is replaced by one placeholder per name.
	sqliteSelectPrefsByNameSQL = `
		SELECT owner_id, name, profile_name, value, updated_at
		FROM user_prefs
		WHERE owner_id = ? AND name IN (%s)
	`

	sqliteSelectAllPrefsSQL = `
		SELECT owner_id, name, profile_name, value, updated_at
		FROM user_prefs
		WHERE owner_id = ?
	`
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage connects to the SQLite database at dbPath and runs migrations.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(sqliteCreateTableSQL)
	return err
}

// GetType returns cinehub.ErrNotFound if no type is registered under name.
func (s *SQLiteStorage) GetType(ctx context.Context, name string) (*cinehub.PreferenceType, error) {
	var pt cinehub.PreferenceType
	err := s.db.QueryRowContext(ctx, sqliteSelectTypeSQL, name).Scan(&pt.Name, &pt.DataType, &pt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cinehub.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get preference type '%s': %w", name, err)
	}
	return &pt, nil
}

// CreateType stores pt, returning cinehub.ErrTypeConflict when the name is taken.
func (s *SQLiteStorage) CreateType(ctx context.Context, pt *cinehub.PreferenceType) error {
	result, err := s.db.ExecContext(ctx, sqliteInsertTypeSQL, pt.Name, string(pt.DataType), pt.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert preference type '%s': %w", pt.Name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", cinehub.ErrTypeConflict, pt.Name)
	}
	return nil
}

// ListTypes returns every registered type.
func (s *SQLiteStorage) ListTypes(ctx context.Context) ([]*cinehub.PreferenceType, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectTypesSQL)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query preference types: %w", err)
	}
	defer rows.Close()

	var types []*cinehub.PreferenceType
	for rows.Next() {
		var pt cinehub.PreferenceType
		if err := rows.Scan(&pt.Name, &pt.DataType, &pt.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan preference type: %w", err)
		}
		types = append(types, &pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating preference types: %w", err)
	}
	return types, nil
}

// Find returns the owner's rows matching keys.
func (s *SQLiteStorage) Find(ctx context.Context, ownerID int64, keys []cinehub.Key) ([]*cinehub.Preference, error) {
	if len(keys) == 0 {
		return []*cinehub.Preference{}, nil
	}

	names, set := keyNames(keys)
	args := make([]any, 0, len(names)+1)
	args = append(args, ownerID)
	for _, n := range names {
		args = append(args, n)
	}
	query := fmt.Sprintf(sqliteSelectPrefsByNameSQL, strings.TrimSuffix(strings.Repeat("?,", len(names)), ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query preferences for owner %d: %w", ownerID, err)
	}

	prefs, err := scanPreferences(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
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
func (s *SQLiteStorage) Insert(ctx context.Context, prefs []*cinehub.Preference) error {
	return insertInTx(ctx, s.db, sqliteInsertPrefSQL, prefs, "sqlite")
}

// Update overwrites the value of an existing row.
func (s *SQLiteStorage) Update(ctx context.Context, pref *cinehub.Preference) error {
	result, err := s.db.ExecContext(ctx, sqliteUpdatePrefSQL, pref.Value, pref.UpdatedAt, pref.OwnerID, pref.Name, pref.ProfileName)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update preference '%s' for owner %d: %w", pref.Name, pref.OwnerID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return cinehub.ErrNotFound
	}
	return nil
}

// GetAll retrieves every row of ownerID.
func (s *SQLiteStorage) GetAll(ctx context.Context, ownerID int64) ([]*cinehub.Preference, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAllPrefsSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query preferences for owner %d: %w", ownerID, err)
	}

	prefs, err := scanPreferences(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return prefs, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanPreferences reads every row and closes rows.
func scanPreferences(rows *sql.Rows) ([]*cinehub.Preference, error) {
	defer rows.Close()

	prefs := []*cinehub.Preference{}
	for rows.Next() {
		var p cinehub.Preference
		if err := rows.Scan(&p.OwnerID, &p.Name, &p.ProfileName, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs = append(prefs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preference rows: %w", err)
	}
	return prefs, nil
}

// insertInTx runs insertSQL once per row inside a single transaction.
func insertInTx(ctx context.Context, db *sql.DB, insertSQL string, prefs []*cinehub.Preference, backend string) (err error) {
	if len(prefs) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", backend, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare insert: %w", backend, err)
	}
	defer stmt.Close()

	for _, p := range prefs {
		if _, err = stmt.ExecContext(ctx, p.OwnerID, p.Name, p.ProfileName, p.Value, p.UpdatedAt); err != nil {
			return fmt.Errorf("%s: failed to insert preference '%s' for owner %d: %w", backend, p.Name, p.OwnerID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit preferences: %w", backend, err)
	}
	return nil
}
