package application

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/feedback-analytics/internal/attendance"
	"github.com/example/feedback-analytics/internal/links"
	"github.com/example/feedback-analytics/internal/testfixtures"
)

func tapAt(minute int) *time.Time {
	at := testfixtures.AfterStart(minute)
	return &at
}

func TestAttendanceService_RecordTap(t *testing.T) {
	t.Parallel()

	t.Run("opens, closes and mints a link on first eligibility", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		user := h.addUser(t)
		ctx := context.Background()

		opened, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(0)})
		require.NoError(t, err)
		assert.Equal(t, attendance.TransitionOpened, opened.Transition)
		assert.Equal(t, user.ID, opened.UserID)
		assert.Nil(t, opened.FeedbackLink)

		closed, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(65)})
		require.NoError(t, err)
		assert.Equal(t, attendance.TransitionClosed, closed.Transition)
		assert.True(t, closed.Summary.IsEligible)
		assert.Equal(t, 65, closed.Summary.TotalDurationMinutes)
		assert.Equal(t, 60, closed.Summary.MinimumMinutes)
		require.NotNil(t, closed.FeedbackLink)
		assert.Equal(t, links.VariantFeedbackAndRating, closed.FeedbackLink.Variant)

		parsed, err := url.Parse(closed.FeedbackLink.URL)
		require.NoError(t, err)
		assert.Equal(t, "/events/"+h.event.Slug+"/feedback-and-rating", parsed.Path)
		claims, err := h.codec.Verify(parsed.Query().Get("token"))
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, h.event.FeedbackFormID, claims.FormID)

		_, err = h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(70)})
		require.NoError(t, err)
		again, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(80)})
		require.NoError(t, err)
		assert.True(t, again.Summary.IsEligible)
		assert.Nil(t, again.FeedbackLink, "links are minted only when eligibility is first reached")
	})

	t.Run("short session earns no link", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		user := h.addUser(t)
		ctx := context.Background()

		_, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(0)})
		require.NoError(t, err)
		closed, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(20)})
		require.NoError(t, err)
		assert.False(t, closed.Summary.IsEligible)
		assert.Nil(t, closed.FeedbackLink)
	})

	t.Run("event without form earns no link", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, testfixtures.WithFeedbackForm(""))
		user := h.addUser(t)
		ctx := context.Background()

		_, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(0)})
		require.NoError(t, err)
		closed, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(90)})
		require.NoError(t, err)
		assert.True(t, closed.Summary.IsEligible)
		assert.Nil(t, closed.FeedbackLink)
	})

	t.Run("defaults to the service clock", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		user := h.addUser(t)

		opened, err := h.attendance.RecordTap(context.Background(), TapInput{RFIDID: " " + user.RFIDID + " ", EventID: h.event.ID})
		require.NoError(t, err)
		assert.Equal(t, h.clock.Now(), opened.Session.StartedAt)
	})

	t.Run("rejects out of order taps", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		user := h.addUser(t)
		ctx := context.Background()

		_, err := h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(30)})
		require.NoError(t, err)
		_, err = h.attendance.RecordTap(ctx, TapInput{RFIDID: user.RFIDID, EventID: h.event.ID, TappedAt: tapAt(10)})
		require.ErrorIs(t, err, attendance.ErrInvalidTapOrdering)
		assert.Equal(t, "invalid_tap_ordering", ErrorKind(err))
	})

	t.Run("unknown badge or event", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		user := h.addUser(t)

		_, err := h.attendance.RecordTap(context.Background(), TapInput{RFIDID: "no-such-badge", EventID: h.event.ID})
		require.ErrorIs(t, err, ErrNotFound)

		_, err = h.attendance.RecordTap(context.Background(), TapInput{RFIDID: user.RFIDID, EventID: "no-such-event"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		zero := time.Time{}
		_, err := h.attendance.RecordTap(context.Background(), TapInput{TappedAt: &zero})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "rfidId")
		assert.Contains(t, vErr.FieldErrors, "eventId")
		assert.Contains(t, vErr.FieldErrors, "tappedAt")
		assert.Equal(t, 0, h.events.calls)
	})
}

func TestAttendanceService_Summary(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	user := h.addUser(t)
	h.attend(t, user.ID, 45)

	summary, err := h.attendance.Summary(context.Background(), h.event.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, summary.TotalDuration)
	assert.False(t, summary.IsEligible)
	assert.Nil(t, summary.OpenSince)

	_, err = h.attendance.Summary(context.Background(), h.event.ID, "ghost")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = h.attendance.Summary(context.Background(), "", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestBecameEligible(t *testing.T) {
	t.Parallel()

	closedAfter := func(before, session time.Duration) attendance.TapResult {
		start := testfixtures.ReferenceTime()
		end := start.Add(session)
		return attendance.TapResult{
			Transition: attendance.TransitionClosed,
			Session:    attendance.Session{StartedAt: start, EndedAt: &end},
			Summary:    attendance.Summary{TotalDuration: before + session},
		}
	}

	assert.True(t, becameEligible(closedAfter(50*time.Minute, 10*time.Minute), 60))
	assert.False(t, becameEligible(closedAfter(60*time.Minute, 10*time.Minute), 60))
	assert.False(t, becameEligible(closedAfter(10*time.Minute, 10*time.Minute), 60))
	assert.False(t, becameEligible(closedAfter(0, 10*time.Minute), 0), "a zero minimum is met before any tap")
}
