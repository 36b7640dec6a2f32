package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/feedback-analytics/internal/application"
	"github.com/example/feedback-analytics/internal/feedback"
)

type feedbackService interface {
	GetFeedbackResponses(ctx context.Context, eventID, formID string, query application.FeedbackQuery) (application.FeedbackResponsesResult, error)
	GetEventFeedbackResponses(ctx context.Context, eventID string, query application.FeedbackQuery) (application.FeedbackResponsesResult, error)
	ResolveToken(ctx context.Context, rawToken, userID string) (application.FeedbackContext, error)
	SubmitFeedback(ctx context.Context, input application.SubmitFeedbackInput) (feedback.Response, error)
}

// FeedbackHandler serves feedback analytics and the token-gated public form.
type FeedbackHandler struct {
	service   feedbackService
	responder responder
	logger    *slog.Logger
}

func NewFeedbackHandler(service feedbackService, logger *slog.Logger) *FeedbackHandler {
	base := defaultLogger(logger)
	return &FeedbackHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *FeedbackHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "FeedbackHandler", operation, attrs...)
}

// ListFormResponses serves GET /events/{eventID}/forms/{formID}/responses.
func (h *FeedbackHandler) ListFormResponses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "eventID")
	formID := chi.URLParam(r, "formID")
	logger := h.log(r.Context(), "ListFormResponses", "event_id", eventID, "form_id", formID)

	query, err := application.ParseFeedbackQuery(rawQuery(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "invalid feedback query", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.GetFeedbackResponses(r.Context(), eventID, formID, query)
	if err != nil {
		logger.ErrorContext(r.Context(), "feedback listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "feedback responses listed", "returned", len(result.Responses))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toFeedbackResponsesResponse(result))
}

// ListEventResponses serves GET /events/{eventID}/feedback/responses.
func (h *FeedbackHandler) ListEventResponses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "eventID")
	logger := h.log(r.Context(), "ListEventResponses", "event_id", eventID)

	query, err := application.ParseFeedbackQuery(rawQuery(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "invalid feedback query", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.GetEventFeedbackResponses(r.Context(), eventID, query)
	if err != nil {
		logger.ErrorContext(r.Context(), "event feedback listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event feedback responses listed", "returned", len(result.Responses))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toFeedbackResponsesResponse(result))
}

// GetPublicForm serves GET /feedback/public?token&userId.
func (h *FeedbackHandler) GetPublicForm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("userId")
	logger := h.log(r.Context(), "GetPublicForm", "user_id", userID)

	resolved, err := h.service.ResolveToken(r.Context(), r.URL.Query().Get("token"), userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "feedback token rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "public feedback form served", "event_id", resolved.Event.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPublicFeedbackResponse(resolved))
}

// SubmitPublicForm serves POST /feedback/public?token&userId.
func (h *FeedbackHandler) SubmitPublicForm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("userId")

	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SubmitPublicForm", "user_id", userID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode feedback submission", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SubmitPublicForm", "user_id", userID)

	response, err := h.service.SubmitFeedback(r.Context(), application.SubmitFeedbackInput{
		Token:   r.URL.Query().Get("token"),
		UserID:  userID,
		Answers: req.Responses,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "feedback submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("response_id", response.ID).InfoContext(r.Context(), "feedback submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, submitFeedbackResponse{ID: response.ID, SubmittedAt: response.SubmittedAt})
}

func rawQuery(r *http.Request) application.RawFeedbackQuery {
	values := r.URL.Query()
	return application.RawFeedbackQuery{
		Page:      values.Get("page"),
		Limit:     values.Get("limit"),
		Search:    values.Get("search"),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
	}
}
