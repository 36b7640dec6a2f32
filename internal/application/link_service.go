package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/feedback-analytics/internal/links"
)

// LinkService issues feedback links to attendees who met the attendance minimum.
type LinkService struct {
	events     EventCatalog
	users      UserDirectory
	attendance AttendanceReader
	links      LinkBuilder
	logger     *slog.Logger
}

// NewLinkService constructs a link service with the provided dependencies.
func NewLinkService(events EventCatalog, users UserDirectory, attendance AttendanceReader, linkBuilder LinkBuilder) *LinkService {
	return NewLinkServiceWithLogger(events, users, attendance, linkBuilder, nil)
}

// NewLinkServiceWithLogger constructs a link service with a specified logger.
func NewLinkServiceWithLogger(events EventCatalog, users UserDirectory, attendance AttendanceReader, linkBuilder LinkBuilder, logger *slog.Logger) *LinkService {
	return &LinkService{
		events:     events,
		users:      users,
		attendance: attendance,
		links:      linkBuilder,
		logger:     defaultLogger(logger),
	}
}

// IssueLink mints a link of the requested variant. An empty variant selects
// links.VariantFeedback.
func (s *LinkService) IssueLink(ctx context.Context, input IssueLinkInput) (link links.Link, err error) {
	if s == nil {
		err = fmt.Errorf("LinkService is nil")
		return
	}

	logger := s.loggerWith(ctx, "IssueLink",
		"event_id", input.EventID,
		"user_id", input.UserID,
		"variant", string(input.Variant),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to issue feedback link", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "feedback link issued", "expires_at", link.Claims.ExpiresAt)
	}()

	eventID := strings.TrimSpace(input.EventID)
	userID := strings.TrimSpace(input.UserID)
	variant := input.Variant
	if variant == "" {
		variant = links.VariantFeedback
	}

	vErr := &ValidationError{}
	if eventID == "" {
		vErr.add("eventId", "is required")
	}
	if userID == "" {
		vErr.add("userId", "is required")
	}
	if !variant.Valid() {
		vErr.add("variant", "must be one of feedback, feedback-and-rating")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = checkContext(ctx); err != nil {
		return
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if event.FeedbackFormID == "" {
		err = fmt.Errorf("%w: event %s has no feedback form", ErrNotFound, event.ID)
		return
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !s.attendance.Summary(event.ID, user.ID).MeetsMinimum(event.MinimumAttendanceMinutes) {
		err = ErrNotEligible
		return
	}

	link, err = s.links.Build(variant, event.ID, user.ID, event.FeedbackFormID, event.Slug)
	if errors.Is(err, links.ErrMissingSlug) {
		vErr.add("slug", "event has no slug")
		err = vErr
	}
	return
}

func (s *LinkService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LinkService", operation, attrs...)
}
