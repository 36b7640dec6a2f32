// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are read from an fs.FS (typically an embed.FS) and follow the
// naming convention {version}_{description}.sql, e.g. "001_attendance_sessions.sql".
// Applied versions are tracked in the schema_migrations table; each file runs in
// its own transaction together with its version record.
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
