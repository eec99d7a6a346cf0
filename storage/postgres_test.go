package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/cinehub"
)

var prefColumns = []string{"owner_id", "name", "profile_name", "value", "updated_at"}

// withMockOpen points sqlOpenFunc at db for the duration of the test.
func withMockOpen(t *testing.T, db *sql.DB, openErr error) {
	t.Helper()
	originalSqlOpen := sqlOpenFunc
	sqlOpenFunc = func(driverName, dataSourceName string) (*sql.DB, error) {
		return db, openErr
	}
	t.Cleanup(func() { sqlOpenFunc = originalSqlOpen })
}

// setupPostgresMock returns a PostgresStorage wired to sqlmock.
func setupPostgresMock(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStorage{db: db}, mock
}

// TestNewPostgresStorage tests the NewPostgresStorage constructor.
func TestNewPostgresStorage(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectExec(regexp.QuoteMeta(createTableSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
		withMockOpen(t, db, nil)

		storage, err := NewPostgresStorage("dummy_conn_string")
		assert.NoError(t, err)
		assert.NotNil(t, storage)
		assert.NoError(t, mock.ExpectationsWereMet(), "sqlmock expectations not met")
	})

	t.Run("sql open error", func(t *testing.T) {
		expectedErr := errors.New("failed to open database")
		withMockOpen(t, nil, expectedErr)

		_, err := NewPostgresStorage("dummy_conn_string")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, expectedErr), "Expected sql open error")
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()
		withMockOpen(t, db, nil)

		_, err = NewPostgresStorage("dummy_conn_string")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "postgres: failed to ping database")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("migrate error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectExec(regexp.QuoteMeta(createTableSQL)).WillReturnError(errors.New("migrate failed"))
		mock.ExpectClose()
		withMockOpen(t, db, nil)

		_, err = NewPostgresStorage("dummy_conn_string")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to run migrations")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStorage_GetType(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectTypeSQL)).
			WithArgs("theme").
			WillReturnRows(sqlmock.NewRows([]string{"name", "data_type", "created_at"}).AddRow("theme", "enum", createdAt))

		pt, err := storage.GetType(ctx, "theme")
		require.NoError(t, err)
		assert.Equal(t, cinehub.TypeEnum, pt.DataType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectTypeSQL)).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := storage.GetType(ctx, "missing")
		assert.ErrorIs(t, err, cinehub.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectTypeSQL)).
			WithArgs("theme").
			WillReturnError(errors.New("connection reset"))

		_, err := storage.GetType(ctx, "theme")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres: failed to scan preference type 'theme'")
	})
}

func TestPostgresStorage_CreateType(t *testing.T) {
	ctx := context.Background()
	pt := &cinehub.PreferenceType{Name: "audio", DataType: cinehub.TypeBoolean, CreatedAt: time.Now().UTC()}

	t.Run("inserted", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(insertTypeSQL)).
			WithArgs("audio", "boolean", pt.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, storage.CreateType(ctx, pt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(insertTypeSQL)).
			WithArgs("audio", "boolean", pt.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := storage.CreateType(ctx, pt)
		assert.ErrorIs(t, err, cinehub.ErrTypeConflict)
	})
}

func TestPostgresStorage_ListTypes(t *testing.T) {
	storage, mock := setupPostgresMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectTypesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "data_type", "created_at"}).
			AddRow("theme", "enum", now).
			AddRow("helpLevel", "number", now))

	types, err := storage.ListTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, cinehub.TypeNumber, types[1].DataType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Find(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("filters rows to requested keys", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectPrefsByNameSQL)).
			WithArgs(int64(1), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(prefColumns).
				AddRow(int64(1), "theme", "default", "soft", now).
				AddRow(int64(1), "theme", "kids", "largeText", now))

		found, err := storage.Find(ctx, 1, []cinehub.Key{{Name: "theme", ProfileName: "kids"}})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "largeText", found[0].Value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no keys skips the query", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		found, err := storage.Find(ctx, 1, nil)
		require.NoError(t, err)
		assert.Empty(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scan error", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectPrefsByNameSQL)).
			WithArgs(int64(1), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(prefColumns).AddRow("not-a-number", "theme", "default", "soft", now))

		_, err := storage.Find(ctx, 1, []cinehub.Key{{Name: "theme", ProfileName: "default"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to scan preference row")
	})
}

func TestPostgresStorage_Insert(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	prefs := []*cinehub.Preference{
		{OwnerID: 1, Name: "theme", ProfileName: "default", Value: "soft", UpdatedAt: now},
		{OwnerID: 1, Name: "audio", ProfileName: "default", Value: "true", UpdatedAt: now},
	}

	t.Run("commits all rows", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(insertPrefSQL))
		prep.ExpectExec().WithArgs(int64(1), "theme", "default", "soft", now).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs(int64(1), "audio", "default", "true", now).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, storage.Insert(ctx, prefs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(insertPrefSQL))
		prep.ExpectExec().WithArgs(int64(1), "theme", "default", "soft", now).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs(int64(1), "audio", "default", "true", now).WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		err := storage.Insert(ctx, prefs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres: failed to insert preference 'audio'")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		assert.NoError(t, storage.Insert(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStorage_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	pref := &cinehub.Preference{OwnerID: 3, Name: "theme", ProfileName: "kids", Value: "soft", UpdatedAt: now}

	t.Run("updated", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(updatePrefSQL)).
			WithArgs("soft", now, int64(3), "theme", "kids").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, storage.Update(ctx, pref))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row vanished", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(updatePrefSQL)).
			WithArgs("soft", now, int64(3), "theme", "kids").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, storage.Update(ctx, pref), cinehub.ErrNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		storage, mock := setupPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(updatePrefSQL)).
			WithArgs("soft", now, int64(3), "theme", "kids").
			WillReturnError(errors.New("deadlock detected"))

		err := storage.Update(ctx, pref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres: failed to execute update")
	})
}

func TestPostgresStorage_GetAll(t *testing.T) {
	storage, mock := setupPostgresMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectAllPrefsSQL)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(prefColumns).
			AddRow(int64(5), "theme", "default", "soft", now).
			AddRow(int64(5), "helpLevel", "default", "2", now))

	all, err := storage.GetAll(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Close(t *testing.T) {
	storage, mock := setupPostgresMock(t)
	mock.ExpectClose()
	assert.NoError(t, storage.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
