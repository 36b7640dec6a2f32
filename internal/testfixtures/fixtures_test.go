package testfixtures

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/feedback-analytics/internal/persistence"
)

func TestClock(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	assert.True(t, clock.Now().Equal(ReferenceTime()))

	now := clock.NowFunc()
	assert.Equal(t, ReferenceTime().Add(90*time.Minute), clock.Advance(90*time.Minute))
	assert.Equal(t, clock.Now(), now())

	clock.Set(AfterStart(-5))
	assert.Equal(t, ReferenceTime().Add(-5*time.Minute), now())

	var nilClock *Clock
	assert.WithinDuration(t, time.Now(), nilClock.NowFunc()(), time.Second)
}

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("session")
	assert.Equal(t, "session-1", gen.Next())
	assert.Equal(t, "session-2", gen.NextFunc()())

	gen.Reset("s")
	assert.Equal(t, "s-1", gen.Next())

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(gen.Next(), struct{}{})
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}

func TestFixturesAreDistinct(t *testing.T) {
	t.Parallel()

	first, second := NewUser(), NewUser(WithRFID("badge-x"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "badge-x", second.RFIDID)

	event := NewEvent(WithMinimumAttendance(30), WithFeedbackForm(""))
	assert.Equal(t, 30, event.MinimumAttendanceMinutes)
	assert.Empty(t, event.FeedbackFormID)

	response := NewResponse(event.ID, first.ID, WithAnswer("comments", "nice"))
	assert.Equal(t, map[string]any{"overall": "5", "comments": "nice"}, response.Answers)
	assert.Len(t, StandardForm().Fields, 4)
}

func TestSQLiteHarness(t *testing.T) {
	t.Parallel()

	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	require.NoError(t, harness.Journal.AppendSession(ctx, persistence.AttendanceSession{
		ID: "s-1", EventID: "e-1", UserID: "u-1", StartedAt: AfterStart(0),
	}))
	sessions, err := harness.Journal.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].EndedAt)
}
