package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/token"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.TapRecorded(attendance.TransitionOpened)
	m.TapRecorded(attendance.TransitionOpened)
	m.TapRecorded(attendance.TransitionClosed)
	m.TapRejected("ordering")
	m.TokenVerified(token.OutcomeExpired)

	body := scrape(t, m)
	assert.Contains(t, body, `feedback_attendance_taps_total{transition="opened"} 2`)
	assert.Contains(t, body, `feedback_attendance_taps_total{transition="closed"} 1`)
	assert.Contains(t, body, `feedback_attendance_tap_rejections_total{reason="ordering"} 1`)
	assert.Contains(t, body, `feedback_token_verifications_total{outcome="expired"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.QueryObserved("ok", 20*time.Millisecond)
	m.TokenVerified(token.OutcomeValid)

	body := scrape(t, m)
	assert.Contains(t, body, `feedback_query_duration_seconds_count{outcome="ok"} 1`)
	assert.Contains(t, body, `feedback_token_verifications_total{outcome="valid"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
