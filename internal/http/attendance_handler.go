package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/feedback-analytics/internal/application"
	"github.com/example/feedback-analytics/internal/links"
)

type attendanceService interface {
	RecordTap(ctx context.Context, input application.TapInput) (application.TapOutcome, error)
	Summary(ctx context.Context, eventID, userID string) (application.AttendanceSummary, error)
}

type linkService interface {
	IssueLink(ctx context.Context, input application.IssueLinkInput) (links.Link, error)
}

// AttendanceHandler ingests badge taps and exposes attendance summaries and
// feedback link issuance.
type AttendanceHandler struct {
	attendance attendanceService
	links      linkService
	responder  responder
	logger     *slog.Logger
}

func NewAttendanceHandler(attendance attendanceService, issuer linkService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{attendance: attendance, links: issuer, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

// RecordTap serves POST /attendance/taps.
func (h *AttendanceHandler) RecordTap(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.attendance == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "RecordTap", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode tap request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RecordTap", "event_id", req.EventID, "rfid_id", req.RFIDID)

	outcome, err := h.attendance.RecordTap(r.Context(), application.TapInput{
		RFIDID:   req.RFIDID,
		EventID:  req.EventID,
		TappedAt: req.TappedAt,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "tap rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", outcome.UserID).InfoContext(r.Context(), "tap recorded", "transition", string(outcome.Transition))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTapResponse(outcome))
}

// Summary serves GET /events/{eventID}/attendees/{userID}/summary.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.attendance == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "eventID")
	userID := chi.URLParam(r, "userID")
	logger := h.log(r.Context(), "Summary", "event_id", eventID, "user_id", userID)

	summary, err := h.attendance.Summary(r.Context(), eventID, userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "attendance summary served", "eligible", summary.IsEligible)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSummaryDTO(summary))
}

// IssueLink serves POST /events/{eventID}/feedback-links.
func (h *AttendanceHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.links == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "eventID")

	var req issueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "IssueLink", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode link request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "IssueLink", "event_id", eventID, "user_id", req.UserID)

	link, err := h.links.IssueLink(r.Context(), application.IssueLinkInput{
		EventID: eventID,
		UserID:  req.UserID,
		Variant: links.Variant(req.Variant),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "feedback link issuance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "feedback link issued", "variant", string(link.Variant))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toLinkDTO(link))
}
