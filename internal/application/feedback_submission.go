package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/token"
)

// ResolveToken verifies a feedback token presented by userID and loads the
// event and form it grants access to.
func (s *FeedbackService) ResolveToken(ctx context.Context, rawToken, userID string) (resolved FeedbackContext, err error) {
	if s == nil {
		err = fmt.Errorf("FeedbackService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ResolveToken", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve feedback token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "feedback token resolved",
			"event_id", resolved.Event.ID,
			"form_id", resolved.Form.ID,
		)
	}()

	resolved, err = s.resolve(ctx, rawToken, userID)
	return
}

// SubmitFeedback stores the answers of a token holder. Each attendee may answer
// a form once.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, input SubmitFeedbackInput) (response feedback.Response, err error) {
	if s == nil {
		err = fmt.Errorf("FeedbackService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SubmitFeedback", "user_id", input.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit feedback", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("response_id", response.ID).InfoContext(ctx, "feedback submitted",
			"event_id", response.EventID,
			"form_id", response.FormID,
		)
	}()

	resolved, err := s.resolve(ctx, input.Token, input.UserID)
	if err != nil {
		return
	}
	userID := resolved.Claims.UserID

	_, lookupErr := s.responses.GetResponseByUser(ctx, resolved.Form.ID, userID)
	switch mapped := mapRepoError(lookupErr); {
	case lookupErr == nil:
		err = ErrAlreadySubmitted
		return
	case !errors.Is(mapped, ErrNotFound):
		err = mapped
		return
	}

	answers, vErr := validateAnswers(resolved.Form, input.Answers)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	response = feedback.Response{
		ID:          s.idGenerator(),
		FormID:      resolved.Form.ID,
		EventID:     resolved.Event.ID,
		SubmittedBy: userID,
		SubmittedAt: s.now().UTC(),
		Answers:     answers,
	}
	if err = s.responses.CreateResponse(ctx, response); err != nil {
		err = mapRepoError(err)
		response = feedback.Response{}
		return
	}
	return
}

func (s *FeedbackService) resolve(ctx context.Context, rawToken, userID string) (FeedbackContext, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		vErr := &ValidationError{}
		vErr.add("token", "is required")
		return FeedbackContext{}, vErr
	}
	if err := checkContext(ctx); err != nil {
		return FeedbackContext{}, err
	}

	claims, err := s.tokens.Verify(rawToken)
	s.observer.TokenVerified(token.Outcome(err))
	if err != nil {
		return FeedbackContext{}, mapTokenError(err)
	}
	if strings.TrimSpace(userID) != claims.UserID {
		return FeedbackContext{}, fmt.Errorf("%w: token was issued to another user", ErrTokenInvalid)
	}

	event, err := s.events.GetEvent(ctx, claims.EventID)
	if err != nil {
		return FeedbackContext{}, mapRepoError(err)
	}
	form, err := s.forms.GetForm(ctx, claims.FormID)
	if err != nil {
		return FeedbackContext{}, mapRepoError(err)
	}
	return FeedbackContext{Event: event, Form: form, Claims: claims}, nil
}

// validateAnswers checks answers against the form and returns them normalized:
// trimmed strings for radio and text fields, string lists for checkboxes and
// numeric strings for ratings. Unanswered optional fields are omitted.
func validateAnswers(form feedback.Form, answers map[string]any) (map[string]any, *ValidationError) {
	vErr := &ValidationError{}
	for id := range answers {
		if _, ok := form.Field(id); !ok {
			vErr.add("responses."+id, "is not a field of this form")
		}
	}

	normalized := make(map[string]any, len(form.Fields))
	for _, field := range form.Fields {
		key := "responses." + field.ID
		value, present := answers[field.ID]

		switch field.Type {
		case feedback.FieldCheckbox:
			selected := feedback.AnswerList(value)
			if len(selected) == 0 {
				if field.Required {
					vErr.add(key, "is required")
				}
				continue
			}
			for _, option := range selected {
				if !field.HasOption(option) {
					vErr.add(key, fmt.Sprintf("%q is not an option", option))
				}
			}
			normalized[field.ID] = selected

		case feedback.FieldRating:
			if !present || feedback.AnswerText(value) == "" {
				if field.Required {
					vErr.add(key, "is required")
				}
				continue
			}
			rating, ok := feedback.AnswerNumber(value)
			if !ok {
				vErr.add(key, "must be a number")
				continue
			}
			if rating < 1 || rating > float64(field.RatingScale()) {
				vErr.add(key, "must be between 1 and "+strconv.Itoa(field.RatingScale()))
				continue
			}
			normalized[field.ID] = strconv.FormatFloat(rating, 'f', -1, 64)

		default:
			text := feedback.AnswerText(value)
			if text == "" {
				if field.Required {
					vErr.add(key, "is required")
				}
				continue
			}
			if field.Type == feedback.FieldRadio && !field.HasOption(text) {
				vErr.add(key, fmt.Sprintf("%q is not an option", text))
				continue
			}
			normalized[field.ID] = text
		}
	}
	return normalized, vErr
}
