package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	Attendance *AttendanceHandler
	Feedback   *FeedbackHandler
	Metrics    http.Handler
	// QueryTimeout bounds the analytics read routes. Zero disables the bound.
	QueryTimeout time.Duration
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		newResponder(nil).writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Attendance != nil {
		r.Post("/attendance/taps", cfg.Attendance.RecordTap)
		r.Get("/events/{eventID}/attendees/{userID}/summary", cfg.Attendance.Summary)
		r.Post("/events/{eventID}/feedback-links", cfg.Attendance.IssueLink)
	}

	if cfg.Feedback != nil {
		r.Group(func(r chi.Router) {
			r.Use(Deadline(cfg.QueryTimeout))
			r.Get("/events/{eventID}/forms/{formID}/responses", cfg.Feedback.ListFormResponses)
			r.Get("/events/{eventID}/feedback/responses", cfg.Feedback.ListEventResponses)
		})
		r.Get("/feedback/public", cfg.Feedback.GetPublicForm)
		r.Post("/feedback/public", cfg.Feedback.SubmitPublicForm)
	}

	return r
}
