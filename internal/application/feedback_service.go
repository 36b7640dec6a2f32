package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/statistics"
)

// FeedbackDependencies are the collaborators of a FeedbackService. Observer,
// IDGenerator and Now are optional.
type FeedbackDependencies struct {
	Events      EventCatalog
	Users       UserDirectory
	Forms       FormCatalog
	Responses   ResponseStore
	Attendance  AttendanceReader
	Tokens      TokenVerifier
	Observer    FeedbackObserver
	IDGenerator func() string
	Now         func() time.Time
}

// FeedbackService answers feedback analytics queries and accepts token-gated submissions.
type FeedbackService struct {
	events      EventCatalog
	users       UserDirectory
	forms       FormCatalog
	responses   ResponseStore
	attendance  AttendanceReader
	tokens      TokenVerifier
	observer    FeedbackObserver
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewFeedbackService constructs a feedback service with the provided dependencies.
func NewFeedbackService(deps FeedbackDependencies) *FeedbackService {
	return NewFeedbackServiceWithLogger(deps, nil)
}

// NewFeedbackServiceWithLogger constructs a feedback service with a specified logger.
func NewFeedbackServiceWithLogger(deps FeedbackDependencies, logger *slog.Logger) *FeedbackService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	return &FeedbackService{
		events:      deps.Events,
		users:       deps.Users,
		forms:       deps.Forms,
		responses:   deps.Responses,
		attendance:  deps.Attendance,
		tokens:      deps.Tokens,
		observer:    deps.Observer,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(logger),
	}
}

func (s *FeedbackService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FeedbackService", operation, attrs...)
}

// GetFeedbackResponses returns one page of the responses submitted to formID
// for eventID, together with statistics over all of them.
func (s *FeedbackService) GetFeedbackResponses(ctx context.Context, eventID, formID string, query FeedbackQuery) (result FeedbackResponsesResult, err error) {
	if s == nil {
		err = fmt.Errorf("FeedbackService is nil")
		return
	}

	started := s.now()
	logger := s.loggerWith(ctx, "GetFeedbackResponses",
		"event_id", eventID,
		"form_id", formID,
	)
	defer func() {
		s.observeQuery(started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to list feedback responses", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "feedback responses listed",
			"total", result.Meta.Total,
			"page", result.Meta.Page,
		)
	}()

	eventID = strings.TrimSpace(eventID)
	formID = strings.TrimSpace(formID)
	vErr := validateQueryTarget(eventID, query)
	if formID == "" {
		vErr.add("formId", "is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return
	}
	form, err := s.forms.GetForm(ctx, formID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result, err = s.assemble(ctx, event, &form, query)
	return
}

// GetEventFeedbackResponses behaves like GetFeedbackResponses for the event's
// configured form. Events without a form yield an empty result with a nil Form.
func (s *FeedbackService) GetEventFeedbackResponses(ctx context.Context, eventID string, query FeedbackQuery) (result FeedbackResponsesResult, err error) {
	if s == nil {
		err = fmt.Errorf("FeedbackService is nil")
		return
	}

	started := s.now()
	logger := s.loggerWith(ctx, "GetEventFeedbackResponses", "event_id", eventID)
	defer func() {
		s.observeQuery(started, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to list event feedback responses", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event feedback responses listed",
			"total", result.Meta.Total,
			"has_form", result.Form != nil,
		)
	}()

	eventID = strings.TrimSpace(eventID)
	if vErr := validateQueryTarget(eventID, query); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return
	}

	var form *feedback.Form
	if event.FeedbackFormID != "" {
		loaded, getErr := s.forms.GetForm(ctx, event.FeedbackFormID)
		if getErr != nil {
			err = mapRepoError(getErr)
			return
		}
		form = &loaded
	}

	result, err = s.assemble(ctx, event, form, query)
	return
}

func validateQueryTarget(eventID string, query FeedbackQuery) *ValidationError {
	vErr := &ValidationError{}
	if eventID == "" {
		vErr.add("eventId", "is required")
	}
	if err := query.Validate(); err != nil {
		if qErr, ok := err.(*ValidationError); ok {
			vErr.merge(qErr)
		} else {
			vErr.add("query", err.Error())
		}
	}
	return vErr
}

func (s *FeedbackService) loadEvent(ctx context.Context, eventID string) (persistence.Event, error) {
	if err := checkContext(ctx); err != nil {
		return persistence.Event{}, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	return event, nil
}

func (s *FeedbackService) assemble(ctx context.Context, event persistence.Event, form *feedback.Form, query FeedbackQuery) (FeedbackResponsesResult, error) {
	var responses []feedback.Response
	fieldStats := map[string]statistics.FieldStatistics{}
	if form != nil {
		all, err := s.responses.ListResponsesByForm(ctx, form.ID)
		if err != nil {
			return FeedbackResponsesResult{}, mapRepoError(err)
		}
		responses = responsesForEvent(all, event.ID)
		if err := checkContext(ctx); err != nil {
			return FeedbackResponsesResult{}, err
		}
		fieldStats, err = statistics.ComputeAll(ctx, *form, responses)
		if err != nil {
			return FeedbackResponsesResult{}, mapRepoError(err)
		}
	}

	profiles, err := s.respondents(ctx, responses)
	if err != nil {
		return FeedbackResponsesResult{}, err
	}

	matched := filterResponses(responses, profiles, query.Search)
	sortResponses(matched, profiles, query.SortBy, query.SortOrder)
	pageItems, meta := paginate(matched, query.Page, query.Limit)

	views := make([]FeedbackResponse, 0, len(pageItems))
	for _, response := range pageItems {
		views = append(views, s.view(event, response, profiles))
	}
	if err := checkContext(ctx); err != nil {
		return FeedbackResponsesResult{}, err
	}

	totalAttendees := s.attendance.EligibleCount(event.ID, event.MinimumAttendanceMinutes)
	return FeedbackResponsesResult{
		Responses: views,
		Form:      form,
		Statistics: FeedbackStatistics{
			TotalResponses: len(responses),
			TotalAttendees: totalAttendees,
			ResponseRate:   statistics.Rate(len(responses), totalAttendees),
			FieldStats:     fieldStats,
		},
		Meta: meta,
	}, nil
}

func (s *FeedbackService) respondents(ctx context.Context, responses []feedback.Response) (map[string]Respondent, error) {
	profiles := make(map[string]Respondent)
	if len(responses) == 0 {
		return profiles, nil
	}
	seen := make(map[string]struct{}, len(responses))
	ids := make([]string, 0, len(responses))
	for _, response := range responses {
		if _, ok := seen[response.SubmittedBy]; ok {
			continue
		}
		seen[response.SubmittedBy] = struct{}{}
		ids = append(ids, response.SubmittedBy)
	}
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, user := range users {
		profiles[user.ID] = respondentFromUser(user)
	}
	return profiles, nil
}

func (s *FeedbackService) view(event persistence.Event, response feedback.Response, profiles map[string]Respondent) FeedbackResponse {
	summary := s.attendance.Summary(event.ID, response.SubmittedBy)
	view := FeedbackResponse{
		ID:          response.ID,
		Answers:     response.Clone().Answers,
		SubmittedAt: response.SubmittedAt,
		Attendee: AttendeeStatus{
			TotalDuration:        summary.TotalDuration,
			TotalDurationMinutes: summary.TotalDurationMinutes,
			IsEligible:           summary.MeetsMinimum(event.MinimumAttendanceMinutes),
		},
	}
	if profile, ok := profiles[response.SubmittedBy]; ok {
		view.User = &profile
	}
	return view
}

func (s *FeedbackService) observeQuery(started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
	}
	s.observer.QueryObserved(outcome, s.now().Sub(started))
}

func respondentFromUser(user persistence.User) Respondent {
	return Respondent{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		ImageURL:  user.ImageURL,
	}
}

// responsesForEvent keeps responses recorded for eventID. Responses without an
// event are attributed to every event sharing the form.
func responsesForEvent(responses []feedback.Response, eventID string) []feedback.Response {
	out := make([]feedback.Response, 0, len(responses))
	for _, response := range responses {
		if response.EventID == "" || response.EventID == eventID {
			out = append(out, response)
		}
	}
	return out
}

func filterResponses(responses []feedback.Response, profiles map[string]Respondent, search string) []feedback.Response {
	out := make([]feedback.Response, 0, len(responses))
	term := strings.ToLower(strings.TrimSpace(search))
	for _, response := range responses {
		if term == "" {
			out = append(out, response)
			continue
		}
		profile, ok := profiles[response.SubmittedBy]
		if !ok {
			continue
		}
		for _, candidate := range []string{profile.Username, profile.FirstName, profile.LastName, profile.Email} {
			if strings.Contains(strings.ToLower(candidate), term) {
				out = append(out, response)
				break
			}
		}
	}
	return out
}

func sortResponses(responses []feedback.Response, profiles map[string]Respondent, by SortField, order SortOrder) {
	key := func(r feedback.Response) string {
		profile := profiles[r.SubmittedBy]
		switch by {
		case SortByUsername:
			return strings.ToLower(profile.Username)
		case SortByFirstName:
			return strings.ToLower(profile.FirstName)
		case SortByLastName:
			return strings.ToLower(profile.LastName)
		}
		return ""
	}
	sort.SliceStable(responses, func(i, j int) bool {
		a, b := responses[i], responses[j]
		cmp := 0
		if by == SortBySubmittedAt || by == "" {
			cmp = a.SubmittedAt.Compare(b.SubmittedAt)
		} else {
			cmp = strings.Compare(key(a), key(b))
		}
		if order == SortDescending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
}

func paginate(responses []feedback.Response, page, limit int) ([]feedback.Response, PageMeta) {
	total := len(responses)
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	meta := PageMeta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && page <= totalPages,
	}
	start := (page - 1) * limit
	if page < 1 || limit < 1 || start >= total {
		return nil, meta
	}
	end := start + limit
	if end > total {
		end = total
	}
	return responses[start:end], meta
}
