package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/persistence"
)

var (
	eventCounter    uint64
	userCounter     uint64
	responseCounter uint64
)

var referenceTime = time.Date(2024, time.May, 2, 17, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures. It
// doubles as the start of every generated event.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventOption configures a generated event.
type EventOption func(*persistence.Event)

// NewEvent returns a deterministic two hour event requiring 60 minutes of
// attendance and linked to form "form-standard".
func NewEvent(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := persistence.Event{
		ID:                       fmt.Sprintf("event-%03d", idx),
		Slug:                     fmt.Sprintf("meetup-%03d", idx),
		Title:                    fmt.Sprintf("Meetup %03d", idx),
		MinimumAttendanceMinutes: 60,
		FeedbackFormID:           StandardFormID,
		StartsAt:                 referenceTime,
		EndsAt:                   referenceTime.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event id.
func WithEventID(id string) EventOption {
	return func(e *persistence.Event) { e.ID = id }
}

// WithEventSlug overrides the generated slug.
func WithEventSlug(slug string) EventOption {
	return func(e *persistence.Event) { e.Slug = slug }
}

// WithMinimumAttendance overrides the eligibility threshold.
func WithMinimumAttendance(minutes int) EventOption {
	return func(e *persistence.Event) { e.MinimumAttendanceMinutes = minutes }
}

// WithFeedbackForm links the event to formID. An empty id detaches the form.
func WithFeedbackForm(formID string) EventOption {
	return func(e *persistence.Event) { e.FeedbackFormID = formID }
}

// ----------------------------- User fixtures ------------------------------

// UserOption configures a generated user.
type UserOption func(*persistence.User)

// NewUser returns a deterministic attendee with a unique RFID badge.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	user := persistence.User{
		ID:        id,
		Username:  id,
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		RFIDID:    fmt.Sprintf("rfid-%03d", idx),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user id.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserName sets the username and display names.
func WithUserName(username, first, last string) UserOption {
	return func(u *persistence.User) {
		u.Username = username
		u.FirstName = first
		u.LastName = last
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithRFID overrides the generated badge id.
func WithRFID(rfidID string) UserOption {
	return func(u *persistence.User) { u.RFIDID = rfidID }
}

// ----------------------------- Form fixtures ------------------------------

// StandardFormID identifies the form returned by StandardForm.
const StandardFormID = "form-standard"

// StandardForm returns a form exercising every field type.
func StandardForm() feedback.Form {
	return feedback.Form{
		ID:    StandardFormID,
		Title: "Event feedback",
		Fields: []feedback.FormField{
			{ID: "overall", Type: feedback.FieldRating, Label: "Overall rating", Required: true, MaxRating: 5},
			{ID: "venue", Type: feedback.FieldRadio, Label: "Venue", Options: []string{"Great", "Fine", "Poor"}},
			{ID: "topics", Type: feedback.FieldCheckbox, Label: "Topics", Options: []string{"AI", "ML", "Web"}},
			{ID: "comments", Type: feedback.FieldTextarea, Label: "Comments"},
		},
	}
}

// --------------------------- Response fixtures ----------------------------

// ResponseOption configures a generated response.
type ResponseOption func(*feedback.Response)

// NewResponse returns a response to the standard form submitted one minute
// after the previous generated response.
func NewResponse(eventID, userID string, opts ...ResponseOption) feedback.Response {
	idx := atomic.AddUint64(&responseCounter, 1)
	response := feedback.Response{
		ID:          fmt.Sprintf("response-%03d", idx),
		FormID:      StandardFormID,
		EventID:     eventID,
		SubmittedBy: userID,
		SubmittedAt: referenceTime.Add(3*time.Hour + time.Duration(idx)*time.Minute),
		Answers:     map[string]any{"overall": "5"},
	}
	for _, opt := range opts {
		opt(&response)
	}
	return response
}

// WithResponseID overrides the generated response id.
func WithResponseID(id string) ResponseOption {
	return func(r *feedback.Response) { r.ID = id }
}

// WithResponseForm overrides the form id.
func WithResponseForm(formID string) ResponseOption {
	return func(r *feedback.Response) { r.FormID = formID }
}

// WithSubmittedAt overrides the submission time.
func WithSubmittedAt(at time.Time) ResponseOption {
	return func(r *feedback.Response) { r.SubmittedAt = at }
}

// WithAnswers replaces the answer map.
func WithAnswers(answers map[string]any) ResponseOption {
	return func(r *feedback.Response) { r.Answers = answers }
}

// WithAnswer sets a single answer.
func WithAnswer(fieldID string, value any) ResponseOption {
	return func(r *feedback.Response) {
		if r.Answers == nil {
			r.Answers = make(map[string]any)
		}
		r.Answers[fieldID] = value
	}
}
