package migration

import (
	"context"
	"database/sql"
	"time"
)

// SQLiteExecutor applies migrations through database/sql.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor constructs an executor for db.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return newDatabaseError("", "create schema_migrations", err)
	}
	return nil
}

// Apply runs every statement of migration and records its version in one
// transaction.
func (e *SQLiteExecutor) Apply(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	started := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newDatabaseError(migration.Version, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range SplitStatements(migration.SQL) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, newDatabaseError(migration.Version, "execute statement", err)
		}
	}

	elapsed = e.now().Sub(started)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version, e.now().UTC().Format(time.RFC3339), migration.Checksum, elapsed.Milliseconds(),
	); err != nil {
		return 0, newDatabaseError(migration.Version, "record version", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, newDatabaseError(migration.Version, "commit", err)
	}
	return elapsed, nil
}

// AppliedVersions lists recorded migrations in version order.
func (e *SQLiteExecutor) AppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, newDatabaseError("", "query applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record    AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &record.Checksum, &elapsedMS); err != nil {
			return nil, newDatabaseError("", "scan applied version", err)
		}
		record.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		record.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, newDatabaseError("", "iterate applied versions", err)
	}
	return applied, nil
}
