package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/feedback-analytics/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated session journal backed by a temporary file.
type SQLiteHarness struct {
	Pool    *sqlite.ConnectionPool
	Journal *sqlite.SessionJournal
}

// NewSQLiteHarness opens and migrates a fresh database under tb.TempDir. The
// pool is closed when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dsn := "file:" + filepath.Join(tb.TempDir(), "attendance.db") + "?_pragma=busy_timeout(5000)"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool, err := sqlite.Open(context.Background(), dsn, logger)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}

	return &SQLiteHarness{Pool: pool, Journal: sqlite.NewSessionJournal(pool)}
}
