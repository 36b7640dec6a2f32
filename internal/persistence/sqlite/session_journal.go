package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/feedback-analytics/internal/persistence"
)

// SessionJournal implements persistence.SessionJournal. Instants are stored as
// epoch milliseconds.
type SessionJournal struct {
	pool   *ConnectionPool
	mapper ErrorMapper
}

var _ persistence.SessionJournal = (*SessionJournal)(nil)

// NewSessionJournal constructs a journal over pool. The schema must already be
// migrated.
func NewSessionJournal(pool *ConnectionPool) *SessionJournal {
	return &SessionJournal{pool: pool}
}

// AppendSession records a newly opened session. A second open session for the
// same pair yields persistence.ErrConflict.
func (j *SessionJournal) AppendSession(ctx context.Context, session persistence.AttendanceSession) error {
	if strings.TrimSpace(session.ID) == "" || session.EventID == "" || session.UserID == "" {
		return errors.New("sqlite: session id, event id and user id are required")
	}

	var endedAt sql.NullInt64
	if session.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: session.EndedAt.UnixMilli(), Valid: true}
	}

	_, err := j.pool.db.ExecContext(ctx,
		`INSERT INTO attendance_sessions (id, event_id, user_id, started_at_ms, ended_at_ms) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.EventID, session.UserID, session.StartedAt.UnixMilli(), endedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append session %s: %w", session.ID, j.mapper.MapError(err))
	}
	return nil
}

// CloseSession stamps endedAt on an open session. Unknown or already closed
// sessions yield persistence.ErrNotFound.
func (j *SessionJournal) CloseSession(ctx context.Context, id string, endedAt time.Time) error {
	return j.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE attendance_sessions SET ended_at_ms = ? WHERE id = ? AND ended_at_ms IS NULL`,
			endedAt.UnixMilli(), id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: close session %s: %w", id, j.mapper.MapError(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: close session %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("sqlite: close session %s: %w", id, persistence.ErrNotFound)
		}
		return nil
	})
}

// ListSessions returns every journaled session ordered by start time.
func (j *SessionJournal) ListSessions(ctx context.Context) ([]persistence.AttendanceSession, error) {
	rows, err := j.pool.db.QueryContext(ctx,
		`SELECT id, event_id, user_id, started_at_ms, ended_at_ms
		   FROM attendance_sessions
		  ORDER BY started_at_ms ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []persistence.AttendanceSession
	for rows.Next() {
		var (
			session   persistence.AttendanceSession
			startedAt int64
			endedAt   sql.NullInt64
		)
		if err := rows.Scan(&session.ID, &session.EventID, &session.UserID, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		session.StartedAt = time.UnixMilli(startedAt).UTC()
		if endedAt.Valid {
			ended := time.UnixMilli(endedAt.Int64).UTC()
			session.EndedAt = &ended
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate sessions: %w", err)
	}
	return sessions, nil
}
