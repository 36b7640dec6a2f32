package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarizes the schema state.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Source lists the available migrations.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations to a database.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	Apply(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
