package attendance

import (
	"context"
	"time"

	"github.com/example/feedback-analytics/internal/persistence"
)

// PersistentJournal adapts a persistence.SessionJournal to the tracker's
// Journal port.
type PersistentJournal struct {
	store persistence.SessionJournal
}

// NewPersistentJournal wraps store.
func NewPersistentJournal(store persistence.SessionJournal) *PersistentJournal {
	return &PersistentJournal{store: store}
}

func (j *PersistentJournal) Append(ctx context.Context, session Session) error {
	return j.store.AppendSession(ctx, persistence.AttendanceSession{
		ID:        session.ID,
		EventID:   session.EventID,
		UserID:    session.UserID,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
	})
}

func (j *PersistentJournal) Close(ctx context.Context, id string, endedAt time.Time) error {
	return j.store.CloseSession(ctx, id, endedAt)
}

func (j *PersistentJournal) Load(ctx context.Context) ([]Session, error) {
	records, err := j.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, Session{
			ID:        record.ID,
			EventID:   record.EventID,
			UserID:    record.UserID,
			StartedAt: record.StartedAt,
			EndedAt:   record.EndedAt,
		})
	}
	return sessions, nil
}
