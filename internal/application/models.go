package application

import (
	"time"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/statistics"
	"github.com/example/feedback-analytics/internal/token"
)

// SortField names the attribute feedback responses are ordered by.
type SortField string

const (
	SortBySubmittedAt SortField = "submittedAt"
	SortByUsername    SortField = "username"
	SortByFirstName   SortField = "firstName"
	SortByLastName    SortField = "lastName"
)

// SortOrder is the direction of the primary sort key.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Query defaults applied by ParseFeedbackQuery.
const (
	DefaultPage      = 1
	DefaultLimit     = 20
	MaxLimit         = 100
	MaxSearchLength  = 200
	DefaultSortBy    = SortBySubmittedAt
	DefaultSortOrder = SortDescending
)

// FeedbackQuery selects, orders and pages feedback responses.
type FeedbackQuery struct {
	Page      int       `query:"page" validate:"gte=1"`
	Limit     int       `query:"limit" validate:"gte=1,lte=100"`
	Search    string    `query:"search" validate:"max=200"`
	SortBy    SortField `query:"sortBy" validate:"oneof=submittedAt username firstName lastName"`
	SortOrder SortOrder `query:"sortOrder" validate:"oneof=asc desc"`
}

// RawFeedbackQuery carries unparsed request parameters.
type RawFeedbackQuery struct {
	Page      string
	Limit     string
	Search    string
	SortBy    string
	SortOrder string
}

// Respondent is the directory profile shown next to a response.
type Respondent struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	ImageURL  string
}

// AttendeeStatus is the attendance standing of a respondent.
type AttendeeStatus struct {
	TotalDuration        time.Duration
	TotalDurationMinutes int
	IsEligible           bool
}

// FeedbackResponse is one response enriched with its submitter and attendance.
// User is nil when the submitter is missing from the directory.
type FeedbackResponse struct {
	ID          string
	Answers     map[string]any
	SubmittedAt time.Time
	User        *Respondent
	Attendee    AttendeeStatus
}

// FeedbackStatistics aggregates every response to the form, regardless of paging or search.
type FeedbackStatistics struct {
	TotalResponses int
	TotalAttendees int
	ResponseRate   float64
	FieldStats     map[string]statistics.FieldStatistics
}

// PageMeta describes the page that was returned.
type PageMeta struct {
	Page        int
	Limit       int
	Total       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// FeedbackResponsesResult is the answer to a feedback responses query. Form is
// nil when the event has no feedback form configured.
type FeedbackResponsesResult struct {
	Responses  []FeedbackResponse
	Form       *feedback.Form
	Statistics FeedbackStatistics
	Meta       PageMeta
}

// TapInput is a badge scan reported by a reader. A nil TappedAt means now.
type TapInput struct {
	RFIDID   string
	EventID  string
	TappedAt *time.Time
}

// TapOutcome reports the transition a tap produced. FeedbackLink is set when
// the tap made the attendee eligible for the first time.
type TapOutcome struct {
	UserID       string
	Transition   attendance.Transition
	Session      attendance.Session
	Summary      AttendanceSummary
	FeedbackLink *links.Link
}

// AttendanceSummary is an attendee's accrued attendance measured against the event minimum.
type AttendanceSummary struct {
	attendance.Summary
	MinimumMinutes int
	IsEligible     bool
}

// IssueLinkInput requests a feedback link for an eligible attendee.
type IssueLinkInput struct {
	EventID string
	UserID  string
	Variant links.Variant
}

// FeedbackContext is everything a token-gated feedback page needs.
type FeedbackContext struct {
	Event  persistence.Event
	Form   feedback.Form
	Claims token.Claims
}

// SubmitFeedbackInput carries a token-gated submission.
type SubmitFeedbackInput struct {
	Token   string
	UserID  string
	Answers map[string]any
}
