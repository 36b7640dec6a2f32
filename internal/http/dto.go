package http

import (
	"time"

	"github.com/example/feedback-analytics/internal/application"
	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/statistics"
)

// ---------------------------------------------------------------------------
// Feedback responses
// ---------------------------------------------------------------------------

type feedbackResponsesResponse struct {
	Responses  []feedbackResponseDTO `json:"responses"`
	Form       *feedback.Form        `json:"form"`
	Statistics statisticsDTO         `json:"statistics"`
	Meta       pageMetaDTO           `json:"meta"`
}

type feedbackResponseDTO struct {
	ID          string         `json:"id"`
	Responses   map[string]any `json:"responses"`
	SubmittedAt time.Time      `json:"submittedAt"`
	User        *respondentDTO `json:"user"`
	Attendee    attendeeDTO    `json:"attendee"`
}

type respondentDTO struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	ImageURL  string `json:"imageUrl"`
}

// attendeeDTO reports totalDuration in whole minutes.
type attendeeDTO struct {
	TotalDuration int  `json:"totalDuration"`
	IsEligible    bool `json:"isEligible"`
}

type statisticsDTO struct {
	TotalResponses int                      `json:"totalResponses"`
	TotalAttendees int                      `json:"totalAttendees"`
	ResponseRate   float64                  `json:"responseRate"`
	FieldStats     map[string]fieldStatsDTO `json:"fieldStats"`
}

// fieldStatsDTO flattens the type specific section into the field record.
type fieldStatsDTO struct {
	FieldID      string  `json:"fieldId"`
	Type         string  `json:"type"`
	Label        string  `json:"label"`
	TotalAnswers int     `json:"totalAnswers"`
	ResponseRate float64 `json:"responseRate"`
	*choiceStatsDTO
	*ratingStatsDTO
	*textStatsDTO
}

type choiceStatsDTO struct {
	OptionCounts map[string]int  `json:"optionCounts"`
	MostPopular  *optionCountDTO `json:"mostPopular"`
}

type optionCountDTO struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type ratingStatsDTO struct {
	Average      float64     `json:"average"`
	Min          float64     `json:"min"`
	Max          float64     `json:"max"`
	Distribution map[int]int `json:"distribution"`
}

type textStatsDTO struct {
	AverageWordCount float64  `json:"averageWordCount"`
	TotalWords       int      `json:"totalWords"`
	SampleResponses  []string `json:"sampleResponses"`
}

type pageMetaDTO struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func toFeedbackResponsesResponse(result application.FeedbackResponsesResult) feedbackResponsesResponse {
	responses := make([]feedbackResponseDTO, 0, len(result.Responses))
	for _, response := range result.Responses {
		dto := feedbackResponseDTO{
			ID:          response.ID,
			Responses:   response.Answers,
			SubmittedAt: response.SubmittedAt,
			Attendee: attendeeDTO{
				TotalDuration: response.Attendee.TotalDurationMinutes,
				IsEligible:    response.Attendee.IsEligible,
			},
		}
		if dto.Responses == nil {
			dto.Responses = map[string]any{}
		}
		if user := response.User; user != nil {
			dto.User = &respondentDTO{
				Username:  user.Username,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Email:     user.Email,
				ImageURL:  user.ImageURL,
			}
		}
		responses = append(responses, dto)
	}

	fieldStats := make(map[string]fieldStatsDTO, len(result.Statistics.FieldStats))
	for id, stats := range result.Statistics.FieldStats {
		fieldStats[id] = toFieldStatsDTO(stats)
	}

	return feedbackResponsesResponse{
		Responses: responses,
		Form:      result.Form,
		Statistics: statisticsDTO{
			TotalResponses: result.Statistics.TotalResponses,
			TotalAttendees: result.Statistics.TotalAttendees,
			ResponseRate:   result.Statistics.ResponseRate,
			FieldStats:     fieldStats,
		},
		Meta: pageMetaDTO(result.Meta),
	}
}

func toFieldStatsDTO(stats statistics.FieldStatistics) fieldStatsDTO {
	dto := fieldStatsDTO{
		FieldID:      stats.FieldID,
		Type:         string(stats.Type),
		Label:        stats.Label,
		TotalAnswers: stats.TotalAnswers,
		ResponseRate: stats.ResponseRate,
	}
	if c := stats.Choice; c != nil {
		dto.choiceStatsDTO = &choiceStatsDTO{OptionCounts: c.OptionCounts}
		if c.MostPopular != nil {
			dto.choiceStatsDTO.MostPopular = &optionCountDTO{Option: c.MostPopular.Option, Count: c.MostPopular.Count}
		}
	}
	if r := stats.Rating; r != nil {
		dto.ratingStatsDTO = &ratingStatsDTO{Average: r.Average, Min: r.Min, Max: r.Max, Distribution: r.Distribution}
	}
	if t := stats.Text; t != nil {
		dto.textStatsDTO = &textStatsDTO{AverageWordCount: t.AverageWordCount, TotalWords: t.TotalWords, SampleResponses: t.SampleResponses}
	}
	return dto
}

// ---------------------------------------------------------------------------
// Attendance
// ---------------------------------------------------------------------------

type tapRequest struct {
	RFIDID   string     `json:"rfidId"`
	EventID  string     `json:"eventId"`
	TappedAt *time.Time `json:"tappedAt,omitempty"`
}

type tapResponse struct {
	UserID       string     `json:"userId"`
	Transition   string     `json:"transition"`
	Session      sessionDTO `json:"session"`
	Summary      summaryDTO `json:"summary"`
	FeedbackLink *linkDTO   `json:"feedbackLink,omitempty"`
}

type sessionDTO struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

// summaryDTO carries totalDuration as a Go duration string next to the whole
// minute count used for eligibility displays.
type summaryDTO struct {
	EventID              string     `json:"eventId"`
	UserID               string     `json:"userId"`
	TotalDuration        string     `json:"totalDuration"`
	TotalDurationMinutes int        `json:"totalDurationMinutes"`
	ClosedSessions       int        `json:"closedSessions"`
	MinimumMinutes       int        `json:"minimumMinutes"`
	IsEligible           bool       `json:"isEligible"`
	OpenSince            *time.Time `json:"openSince,omitempty"`
}

func toTapResponse(outcome application.TapOutcome) tapResponse {
	resp := tapResponse{
		UserID:     outcome.UserID,
		Transition: string(outcome.Transition),
		Session:    toSessionDTO(outcome.Session),
		Summary:    toSummaryDTO(outcome.Summary),
	}
	if outcome.FeedbackLink != nil {
		link := toLinkDTO(*outcome.FeedbackLink)
		resp.FeedbackLink = &link
	}
	return resp
}

func toSessionDTO(session attendance.Session) sessionDTO {
	return sessionDTO{ID: session.ID, StartedAt: session.StartedAt, EndedAt: session.EndedAt}
}

func toSummaryDTO(summary application.AttendanceSummary) summaryDTO {
	return summaryDTO{
		EventID:              summary.EventID,
		UserID:               summary.UserID,
		TotalDuration:        summary.TotalDuration.String(),
		TotalDurationMinutes: summary.TotalDurationMinutes,
		ClosedSessions:       summary.ClosedSessions,
		MinimumMinutes:       summary.MinimumMinutes,
		IsEligible:           summary.IsEligible,
		OpenSince:            summary.OpenSince,
	}
}

// ---------------------------------------------------------------------------
// Links and public feedback
// ---------------------------------------------------------------------------

type issueLinkRequest struct {
	UserID  string `json:"userId"`
	Variant string `json:"variant"`
}

type linkDTO struct {
	URL       string    `json:"url"`
	Variant   string    `json:"variant"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toLinkDTO(link links.Link) linkDTO {
	return linkDTO{URL: link.URL, Variant: string(link.Variant), ExpiresAt: link.Claims.ExpiresAt}
}

type publicEventDTO struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type publicFeedbackResponse struct {
	Event     publicEventDTO `json:"event"`
	Form      feedback.Form  `json:"form"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

func toPublicFeedbackResponse(resolved application.FeedbackContext) publicFeedbackResponse {
	return publicFeedbackResponse{
		Event:     toPublicEventDTO(resolved.Event),
		Form:      resolved.Form,
		ExpiresAt: resolved.Claims.ExpiresAt,
	}
}

func toPublicEventDTO(event persistence.Event) publicEventDTO {
	return publicEventDTO{ID: event.ID, Slug: event.Slug, Title: event.Title}
}

type submitFeedbackRequest struct {
	Responses map[string]any `json:"responses"`
}

type submitFeedbackResponse struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
}
