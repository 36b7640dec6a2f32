package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/persistence/memory"
	"github.com/example/feedback-analytics/internal/testfixtures"
	"github.com/example/feedback-analytics/internal/token"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type observerStub struct {
	mu       sync.Mutex
	queries  []string
	verified []string
}

func (o *observerStub) QueryObserved(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, outcome)
}

func (o *observerStub) TokenVerified(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verified = append(o.verified, outcome)
}

// countingEvents records lookups so tests can assert that validation ran first.
type countingEvents struct {
	EventCatalog
	mu    sync.Mutex
	calls int
}

func (c *countingEvents) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.EventCatalog.GetEvent(ctx, id)
}

type harness struct {
	store    *memory.Store
	events   *countingEvents
	tracker  *attendance.Tracker
	clock    *testfixtures.Clock
	codec    *token.Codec
	issuer   *links.Issuer
	observer *observerStub
	event    persistence.Event

	feedback   *FeedbackService
	attendance *AttendanceService
	links      *LinkService
}

func newHarness(t *testing.T, eventOpts ...testfixtures.EventOption) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		store:    memory.New(),
		tracker:  attendance.NewTracker(attendance.WithLogger(discardLogger)),
		clock:    testfixtures.NewClock(testfixtures.AfterStart(180)),
		observer: &observerStub{},
		event:    testfixtures.NewEvent(eventOpts...),
	}
	h.events = &countingEvents{EventCatalog: h.store}
	h.codec = token.NewCodec("test-secret", h.clock.NowFunc())
	h.issuer = links.NewIssuer(h.codec, "https://frontend.test", time.Hour)

	require.NoError(t, h.store.PutEvent(ctx, h.event))
	require.NoError(t, h.store.PutForm(ctx, testfixtures.StandardForm()))

	h.feedback = NewFeedbackServiceWithLogger(FeedbackDependencies{
		Events:      h.events,
		Users:       h.store,
		Forms:       h.store,
		Responses:   h.store,
		Attendance:  h.tracker,
		Tokens:      h.codec,
		Observer:    h.observer,
		IDGenerator: testfixtures.NewIDGenerator("submitted").Next,
		Now:         h.clock.NowFunc(),
	}, discardLogger)
	h.attendance = NewAttendanceServiceWithLogger(h.events, h.store, h.tracker, h.issuer, h.clock.NowFunc(), discardLogger)
	h.links = NewLinkServiceWithLogger(h.events, h.store, h.tracker, h.issuer, discardLogger)
	return h
}

func (h *harness) addUser(t *testing.T, opts ...testfixtures.UserOption) persistence.User {
	t.Helper()
	user := testfixtures.NewUser(opts...)
	require.NoError(t, h.store.PutUser(context.Background(), user))
	return user
}

// attend records one closed session of the given length starting at the event start.
func (h *harness) attend(t *testing.T, userID string, minutes int) {
	t.Helper()
	ctx := context.Background()
	_, err := h.tracker.RecordTap(ctx, h.event.ID, userID, testfixtures.AfterStart(0))
	require.NoError(t, err)
	_, err = h.tracker.RecordTap(ctx, h.event.ID, userID, testfixtures.AfterStart(minutes))
	require.NoError(t, err)
}

func (h *harness) respond(t *testing.T, userID string, opts ...testfixtures.ResponseOption) feedback.Response {
	t.Helper()
	response := testfixtures.NewResponse(h.event.ID, userID, opts...)
	require.NoError(t, h.store.CreateResponse(context.Background(), response))
	return response
}

func (h *harness) issueToken(t *testing.T, userID string) string {
	t.Helper()
	raw, _, err := h.codec.Issue(h.event.ID, userID, h.event.FeedbackFormID, time.Hour)
	require.NoError(t, err)
	return raw
}

func defaultQuery() FeedbackQuery {
	return FeedbackQuery{Page: DefaultPage, Limit: DefaultLimit, SortBy: DefaultSortBy, SortOrder: DefaultSortOrder}
}
