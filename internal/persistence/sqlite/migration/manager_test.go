package migration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerRunAppliesPendingOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"m/001_create.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY);")},
		"m/002_column.sql": {Data: []byte("ALTER TABLE notes ADD COLUMN body TEXT;")},
	}
	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), quietLogger())

	require.NoError(t, manager.Run(ctx))
	require.NoError(t, manager.Run(ctx))

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "002", status.CurrentVersion)
	assert.Empty(t, status.Pending)
	require.Len(t, status.Applied, 2)

	_, err = db.ExecContext(ctx, `INSERT INTO notes (id, body) VALUES ('n1', 'hello')`)
	require.NoError(t, err)
}

func TestManagerRunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"m/001_create.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE extra (id TEXT);\nALTER TABLE missing ADD COLUMN x TEXT;")},
	}
	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), quietLogger())

	err := manager.Run(ctx)
	var migrationErr *MigrationError
	require.ErrorAs(t, err, &migrationErr)
	assert.Equal(t, "002", migrationErr.Version)

	status, err := manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "001", status.CurrentVersion)
	require.Len(t, status.Pending, 1)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'extra'`).Scan(&count))
	assert.Zero(t, count)
}

func TestManagerStatusDetectsDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	original := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE notes (id TEXT);")}}
	require.NoError(t, NewManager(NewScanner(original, "m"), NewSQLiteExecutor(db), quietLogger()).Run(ctx))

	t.Run("edited file", func(t *testing.T) {
		edited := fstest.MapFS{"m/001_create.sql": {Data: []byte("CREATE TABLE notes (id TEXT, extra TEXT);")}}
		_, err := NewManager(NewScanner(edited, "m"), NewSQLiteExecutor(db), quietLogger()).Status(ctx)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("removed file", func(t *testing.T) {
		removed := fstest.MapFS{"m/002_other.sql": {Data: []byte("SELECT 1;")}}
		_, err := NewManager(NewScanner(removed, "m"), NewSQLiteExecutor(db), quietLogger()).Status(ctx)
		require.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("gap in sequence", func(t *testing.T) {
		gapped := fstest.MapFS{
			"m/001_create.sql": original["m/001_create.sql"],
			"m/003_later.sql":  {Data: []byte("SELECT 1;")},
		}
		_, err := NewManager(NewScanner(gapped, "m"), NewSQLiteExecutor(db), quietLogger()).Status(ctx)
		require.ErrorIs(t, err, ErrVersionConflict)
	})
}
