package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/persistence"
)

// AttendanceService resolves badge scans to attendees and feeds the tracker.
type AttendanceService struct {
	events  EventCatalog
	users   UserDirectory
	tracker AttendanceRecorder
	links   LinkBuilder
	now     func() time.Time
	logger  *slog.Logger
}

// NewAttendanceService constructs an attendance service. A nil link builder
// disables minting links when attendees become eligible.
func NewAttendanceService(events EventCatalog, users UserDirectory, tracker AttendanceRecorder, linkBuilder LinkBuilder, now func() time.Time) *AttendanceService {
	return NewAttendanceServiceWithLogger(events, users, tracker, linkBuilder, now, nil)
}

// NewAttendanceServiceWithLogger constructs an attendance service with a specified logger.
func NewAttendanceServiceWithLogger(events EventCatalog, users UserDirectory, tracker AttendanceRecorder, linkBuilder LinkBuilder, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		events:  events,
		users:   users,
		tracker: tracker,
		links:   linkBuilder,
		now:     now,
		logger:  defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// RecordTap applies a badge scan. When the tap closes a session that brings the
// attendee over the event minimum for the first time and the event collects
// feedback, a feedback-and-rating link is minted and returned.
func (s *AttendanceService) RecordTap(ctx context.Context, input TapInput) (outcome TapOutcome, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecordTap",
		"event_id", input.EventID,
		"rfid_id", input.RFIDID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record tap", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", outcome.UserID).InfoContext(ctx, "tap recorded",
			"transition", string(outcome.Transition),
			"session_id", outcome.Session.ID,
			"total_duration_minutes", outcome.Summary.TotalDurationMinutes,
			"eligible", outcome.Summary.IsEligible,
			"link_issued", outcome.FeedbackLink != nil,
		)
	}()

	vErr := validateTapInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = checkContext(ctx); err != nil {
		return
	}

	event, err := s.events.GetEvent(ctx, strings.TrimSpace(input.EventID))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	user, err := s.users.GetUserByRFID(ctx, strings.TrimSpace(input.RFIDID))
	if err != nil {
		err = mapRepoError(err)
		return
	}

	at := s.now().UTC()
	if input.TappedAt != nil {
		at = input.TappedAt.UTC()
	}

	result, err := s.tracker.RecordTap(ctx, event.ID, user.ID, at)
	if err != nil {
		err = mapTapError(err)
		return
	}

	outcome = TapOutcome{
		UserID:     user.ID,
		Transition: result.Transition,
		Session:    result.Session,
		Summary:    summarize(result.Summary, event.MinimumAttendanceMinutes),
	}
	if result.Transition == attendance.TransitionClosed && becameEligible(result, event.MinimumAttendanceMinutes) {
		outcome.FeedbackLink = s.mintLink(ctx, logger, event, user)
	}
	return
}

// Summary returns the accrued attendance of userID at eventID.
func (s *AttendanceService) Summary(ctx context.Context, eventID, userID string) (summary AttendanceSummary, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Summary",
		"event_id", eventID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to summarize attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance summarized",
			"total_duration_minutes", summary.TotalDurationMinutes,
			"eligible", summary.IsEligible,
		)
	}()

	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	vErr := &ValidationError{}
	if eventID == "" {
		vErr.add("eventId", "is required")
	}
	if userID == "" {
		vErr.add("userId", "is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if _, err = s.users.GetUser(ctx, userID); err != nil {
		err = mapRepoError(err)
		return
	}

	summary = summarize(s.tracker.Summary(event.ID, userID), event.MinimumAttendanceMinutes)
	return
}

func (s *AttendanceService) mintLink(ctx context.Context, logger *slog.Logger, event persistence.Event, user persistence.User) *links.Link {
	if s.links == nil || event.FeedbackFormID == "" {
		return nil
	}
	link, err := s.links.Build(links.VariantFeedbackAndRating, event.ID, user.ID, event.FeedbackFormID, event.Slug)
	if err != nil {
		// The tap is already journaled; a missing link must not undo it.
		logger.WarnContext(ctx, "failed to mint feedback link", "error", err)
		return nil
	}
	return &link
}

func validateTapInput(input TapInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.RFIDID) == "" {
		vErr.add("rfidId", "is required")
	}
	if strings.TrimSpace(input.EventID) == "" {
		vErr.add("eventId", "is required")
	}
	if input.TappedAt != nil && input.TappedAt.IsZero() {
		vErr.add("tappedAt", "must be a valid timestamp")
	}
	return vErr
}

func mapTapError(err error) error {
	switch {
	case errors.Is(err, attendance.ErrInvalidTap):
		vErr := &ValidationError{}
		vErr.add("tap", "event, user and timestamp are required")
		return vErr
	case errors.Is(err, attendance.ErrInvalidTapOrdering):
		return err
	}
	return mapRepoError(err)
}

func summarize(summary attendance.Summary, minimumMinutes int) AttendanceSummary {
	return AttendanceSummary{
		Summary:        summary,
		MinimumMinutes: minimumMinutes,
		IsEligible:     summary.MeetsMinimum(minimumMinutes),
	}
}

// becameEligible reports whether the session just closed moved the pair across
// the minimum.
func becameEligible(result attendance.TapResult, minimumMinutes int) bool {
	if !result.Summary.MeetsMinimum(minimumMinutes) {
		return false
	}
	before := attendance.Summary{TotalDuration: result.Summary.TotalDuration - result.Session.Duration()}
	return !before.MeetsMinimum(minimumMinutes)
}
