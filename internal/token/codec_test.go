package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2024, time.May, 2, 20, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fixedClock) set(at time.Time) {
	c.mu.Lock()
	c.at = at
	c.mu.Unlock()
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{at: issuedAt}
	codec := NewCodec("s3cret", clock.now)

	raw, issued, err := codec.Issue("event-1", "user-1", "form-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Claims{EventID: "event-1", UserID: "user-1", FormID: "form-1", ExpiresAt: issuedAt.Add(time.Hour)}, issued)

	verified, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, issued, verified)
}

func TestVerifyExpiry(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{at: issuedAt}
	codec := NewCodec("s3cret", clock.now)
	raw, issued, err := codec.Issue("event-1", "user-1", "form-1", time.Hour)
	require.NoError(t, err)

	clock.set(issued.ExpiresAt.Add(-time.Millisecond))
	_, err = codec.Verify(raw)
	require.NoError(t, err)

	clock.set(issued.ExpiresAt)
	claims, err := codec.Verify(raw)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, issued, claims, "expired tokens still expose their claims")
}

func TestIssueDefaultsTTL(t *testing.T) {
	t.Parallel()

	codec := NewCodec("", func() time.Time { return issuedAt })
	_, claims, err := codec.Issue("e", "u", "f", 0)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(DefaultTTL), claims.ExpiresAt)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	codec := NewCodec("s3cret", func() time.Time { return issuedAt })
	raw, _, err := codec.Issue("event-1", "user-1", "form-1", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		return string(b)
	}

	cases := map[string]string{
		"empty":             "",
		"garbage":           "not-a-token",
		"flipped payload":   parts[0] + "." + flip(parts[1], len(parts[1])/2) + "." + parts[2],
		"flipped signature": parts[0] + "." + parts[1] + "." + flip(parts[2], 0),
		"missing signature": parts[0] + "." + parts[1] + ".",
		"swapped payload":   parts[0] + "." + encodeSegment(t, map[string]any{"eventId": "event-2", "userId": "user-1", "formId": "form-1", "expiresAt": issuedAt.Add(time.Hour).UnixMilli()}) + "." + parts[2],
		"alg none":          encodeSegment(t, map[string]any{"alg": "none", "typ": "JWT"}) + "." + parts[1] + ".",
	}

	for name, candidate := range cases {
		candidate := candidate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := codec.Verify(candidate)
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return issuedAt }
	raw, _, err := NewCodec("other-secret", now).Issue("event-1", "user-1", "form-1", time.Hour)
	require.NoError(t, err)

	_, err = NewCodec("s3cret", now).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsIncompleteClaims(t *testing.T) {
	t.Parallel()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"eventId": "event-1",
		"userId":  "user-1",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewCodec("s3cret", func() time.Time { return issuedAt }).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIssueRejectsBlankIDs(t *testing.T) {
	t.Parallel()

	codec := NewCodec("s3cret", func() time.Time { return issuedAt })
	tests := []struct {
		name                    string
		eventID, userID, formID string
	}{
		{name: "event", eventID: "", userID: "user-1", formID: "form-1"},
		{name: "user", eventID: "event-1", userID: "  ", formID: "form-1"},
		{name: "form", eventID: "event-1", userID: "user-1", formID: "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw, claims, err := codec.Issue(tc.eventID, tc.userID, tc.formID, time.Hour)
			require.ErrorIs(t, err, ErrMissingClaim)
			assert.Empty(t, raw)
			assert.Equal(t, Claims{}, claims)
		})
	}

	raw, claims, err := codec.Issue(" event-1 ", "user-1", "form-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "event-1", claims.EventID)
	verified, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, claims, verified)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeValid, Outcome(nil))
	assert.Equal(t, OutcomeExpired, Outcome(fmt.Errorf("verify: %w", ErrExpired)))
	assert.Equal(t, OutcomeInvalid, Outcome(ErrInvalidSignature))
	assert.Equal(t, OutcomeInvalid, Outcome(ErrMissingClaim))
}

func TestPayloadCarriesExactlyFourMembers(t *testing.T) {
	t.Parallel()

	raw, _, err := NewCodec("s3cret", func() time.Time { return issuedAt }).Issue("event-1", "user-1", "form-1", time.Hour)
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(raw, ".")[1])
	require.NoError(t, err)

	var members map[string]any
	require.NoError(t, json.Unmarshal(payload, &members))
	assert.Equal(t, map[string]any{
		"eventId":   "event-1",
		"userId":    "user-1",
		"formId":    "form-1",
		"expiresAt": float64(issuedAt.Add(time.Hour).UnixMilli()),
	}, members)
}

func TestCodecConcurrentUse(t *testing.T) {
	t.Parallel()

	codec := NewCodec("s3cret", func() time.Time { return issuedAt })
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, issued, err := codec.Issue("event-1", "user-1", "form-1", time.Hour)
			if !assert.NoError(t, err) {
				return
			}
			verified, err := codec.Verify(raw)
			assert.NoError(t, err)
			assert.Equal(t, issued, verified)
		}()
	}
	wg.Wait()
}

func encodeSegment(t *testing.T, value map[string]any) string {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(data)
}
