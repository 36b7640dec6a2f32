package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("attaches a request logger and records the status", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))

		var sawLogger bool
		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawLogger = LoggerFromContext(r.Context()) != nil
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.True(t, sawLogger)
		assert.Equal(t, http.StatusTeapot, rec.Code)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var completed map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
		assert.Equal(t, "request completed", completed["msg"])
		assert.Equal(t, float64(http.StatusTeapot), completed["status"])
		assert.Equal(t, "/healthz", completed["path"])
		assert.Equal(t, float64(1), completed["request_id"])
	})

	t.Run("defaults the status to 200 when the handler writes a body only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		handler := RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, buf.String(), `"status":200`)
	})
}

func TestDeadline(t *testing.T) {
	t.Parallel()

	t.Run("bounds the request context", func(t *testing.T) {
		t.Parallel()

		var deadline time.Time
		var ok bool
		handler := Deadline(time.Minute)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})

	t.Run("non-positive timeout leaves the context untouched", func(t *testing.T) {
		t.Parallel()

		var ok bool
		handler := Deadline(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			_, ok = r.Context().Deadline()
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, ok)
	})
}
