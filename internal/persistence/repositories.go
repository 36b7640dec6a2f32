package persistence

import (
	"context"
	"time"

	"github.com/example/feedback-analytics/internal/feedback"
)

// EventRepository exposes read access to the event catalog.
type EventRepository interface {
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
}

// UserRepository resolves attendees by id or RFID badge.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByRFID(ctx context.Context, rfidID string) (User, error)
	ListUsersByIDs(ctx context.Context, ids []string) ([]User, error)
}

// FormRepository exposes feedback form definitions.
type FormRepository interface {
	GetForm(ctx context.Context, id string) (feedback.Form, error)
}

// ResponseRepository stores submitted feedback responses.
type ResponseRepository interface {
	ListResponsesByForm(ctx context.Context, formID string) ([]feedback.Response, error)
	GetResponseByUser(ctx context.Context, formID, userID string) (feedback.Response, error)
	CreateResponse(ctx context.Context, response feedback.Response) error
}

// SessionJournal is the append-only store behind the attendance tracker.
type SessionJournal interface {
	AppendSession(ctx context.Context, session AttendanceSession) error
	CloseSession(ctx context.Context, id string, endedAt time.Time) error
	ListSessions(ctx context.Context) ([]AttendanceSession, error)
}
