package application

import (
	"context"
	"time"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/token"
)

// EventCatalog resolves events.
type EventCatalog interface {
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
}

// UserDirectory resolves attendees by id or badge.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByRFID(ctx context.Context, rfidID string) (persistence.User, error)
	ListUsersByIDs(ctx context.Context, ids []string) ([]persistence.User, error)
}

// FormCatalog resolves feedback forms.
type FormCatalog interface {
	GetForm(ctx context.Context, id string) (feedback.Form, error)
}

// ResponseStore reads and appends submitted responses.
type ResponseStore interface {
	ListResponsesByForm(ctx context.Context, formID string) ([]feedback.Response, error)
	GetResponseByUser(ctx context.Context, formID, userID string) (feedback.Response, error)
	CreateResponse(ctx context.Context, response feedback.Response) error
}

// AttendanceReader exposes read-only attendance aggregates.
type AttendanceReader interface {
	Summary(eventID, userID string) attendance.Summary
	EligibleCount(eventID string, minimumMinutes int) int
}

// AttendanceRecorder applies taps.
type AttendanceRecorder interface {
	AttendanceReader
	RecordTap(ctx context.Context, eventID, userID string, at time.Time) (attendance.TapResult, error)
}

// TokenVerifier checks feedback tokens.
type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// LinkBuilder mints feedback links.
type LinkBuilder interface {
	Build(variant links.Variant, eventID, userID, formID, slug string) (links.Link, error)
}

// FeedbackObserver receives query latency and token verification outcomes.
type FeedbackObserver interface {
	QueryObserved(outcome string, elapsed time.Duration)
	TokenVerified(outcome string)
}

type noopObserver struct{}

func (noopObserver) QueryObserved(string, time.Duration) {}
func (noopObserver) TokenVerified(string)                {}
