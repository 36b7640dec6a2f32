// Package attendance tracks RFID-driven presence sessions per (event, user)
// pair and derives engagement duration and certification eligibility.
//
// Each pair alternates between CLOSED (no open session) and OPEN (exactly one
// open session). A tap opens a session when the pair is CLOSED and closes it
// when OPEN. Only closed sessions contribute to the accrued duration.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTapOrdering is returned when a closing tap precedes the start of
	// the open session.
	ErrInvalidTapOrdering = errors.New("attendance: tap precedes open session start")
	// ErrInvalidTap is returned when a tap lacks an event, user or timestamp.
	ErrInvalidTap = errors.New("attendance: invalid tap")
)

// TapOrderingError carries the timestamps of a rejected out-of-order tap.
type TapOrderingError struct {
	EventID   string
	UserID    string
	StartedAt time.Time
	TappedAt  time.Time
}

func (e *TapOrderingError) Error() string {
	return fmt.Sprintf("attendance: tap at %s precedes session start %s for event %s user %s",
		e.TappedAt.UTC().Format(time.RFC3339Nano), e.StartedAt.UTC().Format(time.RFC3339Nano), e.EventID, e.UserID)
}

func (e *TapOrderingError) Unwrap() error { return ErrInvalidTapOrdering }

// Transition names the state change produced by a tap.
type Transition string

const (
	TransitionOpened Transition = "opened"
	TransitionClosed Transition = "closed"
)

// Session is one contiguous presence interval.
type Session struct {
	ID        string
	EventID   string
	UserID    string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Open reports whether the session has not been closed yet.
func (s Session) Open() bool { return s.EndedAt == nil }

// Duration returns the length of a closed session, or 0 while open.
func (s Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Summary is the derived attendance aggregate for a pair.
type Summary struct {
	EventID              string
	UserID               string
	TotalDuration        time.Duration
	TotalDurationMinutes int
	ClosedSessions       int
	OpenSince            *time.Time
}

// MeetsMinimum reports whether the accrued duration reaches minimumMinutes.
func (s Summary) MeetsMinimum(minimumMinutes int) bool {
	return s.TotalDuration >= time.Duration(minimumMinutes)*time.Minute
}

// TapResult describes the effect of a recorded tap.
type TapResult struct {
	Transition Transition
	Session    Session
	Summary    Summary
}

// Journal persists session transitions. Append is called when a session opens
// and Close when it ends; Load returns every journaled session.
type Journal interface {
	Append(ctx context.Context, session Session) error
	Close(ctx context.Context, id string, endedAt time.Time) error
	Load(ctx context.Context) ([]Session, error)
}

// Observer receives tap outcomes, typically for metrics.
type Observer interface {
	TapRecorded(transition Transition)
	TapRejected(reason string)
}

// newPairKey trims both ids so every entry point addresses the same pair.
func newPairKey(eventID, userID string) pairKey {
	return pairKey{eventID: strings.TrimSpace(eventID), userID: strings.TrimSpace(userID)}
}

type pairKey struct {
	eventID string
	userID  string
}

// pairState is guarded by its own mutex so taps for unrelated attendees never
// contend with each other.
type pairState struct {
	mu       sync.RWMutex
	key      pairKey
	sessions []Session
	open     *Session
}

// Tracker owns every attendance session. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	pairs   map[pairKey]*pairState
	byEvent map[string][]*pairState

	journal  Journal
	observer Observer
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithJournal writes every transition through journal before it takes effect.
func WithJournal(journal Journal) Option {
	return func(t *Tracker) { t.journal = journal }
}

// WithObserver registers an observer for tap outcomes.
func WithObserver(observer Observer) Option {
	return func(t *Tracker) { t.observer = observer }
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker constructs an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		pairs:   make(map[pairKey]*pairState),
		byEvent: make(map[string][]*pairState),
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordTap applies a tap for the pair at the given instant.
//
// Instants are truncated to the millisecond, the precision the journal keeps,
// so restored durations match live ones.
func (t *Tracker) RecordTap(ctx context.Context, eventID, userID string, at time.Time) (TapResult, error) {
	key := newPairKey(eventID, userID)
	eventID, userID = key.eventID, key.userID
	if eventID == "" || userID == "" || at.IsZero() {
		t.rejected("invalid")
		return TapResult{}, ErrInvalidTap
	}
	if err := ctx.Err(); err != nil {
		return TapResult{}, err
	}
	at = at.Truncate(time.Millisecond)

	state := t.state(key, true)
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.open == nil {
		session := Session{ID: t.newID(), EventID: eventID, UserID: userID, StartedAt: at}
		if t.journal != nil {
			if err := t.journal.Append(ctx, session); err != nil {
				t.rejected("journal")
				return TapResult{}, fmt.Errorf("attendance: journal open session: %w", err)
			}
		}
		state.open = &session
		t.recorded(TransitionOpened)
		return TapResult{Transition: TransitionOpened, Session: session, Summary: state.summaryLocked()}, nil
	}

	open := *state.open
	if at.Before(open.StartedAt) {
		err := &TapOrderingError{EventID: eventID, UserID: userID, StartedAt: open.StartedAt, TappedAt: at}
		t.logger.ErrorContext(ctx, "rejected out-of-order tap",
			"event_id", eventID,
			"user_id", userID,
			"session_id", open.ID,
			"started_at", open.StartedAt,
			"tapped_at", at,
		)
		t.rejected("ordering")
		return TapResult{}, err
	}

	if t.journal != nil {
		if err := t.journal.Close(ctx, open.ID, at); err != nil {
			t.rejected("journal")
			return TapResult{}, fmt.Errorf("attendance: journal close session: %w", err)
		}
	}
	ended := at
	open.EndedAt = &ended
	state.sessions = append(state.sessions, open)
	state.open = nil
	t.recorded(TransitionClosed)
	return TapResult{Transition: TransitionClosed, Session: open, Summary: state.summaryLocked()}, nil
}

// Summary returns the aggregate for a pair. Pairs with no taps yield a zero
// summary.
func (t *Tracker) Summary(eventID, userID string) Summary {
	key := newPairKey(eventID, userID)
	state := t.state(key, false)
	if state == nil {
		return Summary{EventID: key.eventID, UserID: key.userID}
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.summaryLocked()
}

// IsEligible reports whether the pair has accrued at least minimumMinutes.
func (t *Tracker) IsEligible(eventID, userID string, minimumMinutes int) bool {
	return t.Summary(eventID, userID).MeetsMinimum(minimumMinutes)
}

// Summaries returns one summary per user that has tapped at the event,
// ordered by user id.
func (t *Tracker) Summaries(eventID string) []Summary {
	t.mu.RLock()
	states := append([]*pairState(nil), t.byEvent[strings.TrimSpace(eventID)]...)
	t.mu.RUnlock()

	summaries := make([]Summary, 0, len(states))
	for _, state := range states {
		state.mu.RLock()
		summaries = append(summaries, state.summaryLocked())
		state.mu.RUnlock()
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UserID < summaries[j].UserID })
	return summaries
}

// EligibleCount counts the event's attendees that meet minimumMinutes.
func (t *Tracker) EligibleCount(eventID string, minimumMinutes int) int {
	count := 0
	for _, summary := range t.Summaries(eventID) {
		if summary.MeetsMinimum(minimumMinutes) {
			count++
		}
	}
	return count
}

// Sessions returns every session of a pair in start order, including an open one.
func (t *Tracker) Sessions(eventID, userID string) []Session {
	state := t.state(newPairKey(eventID, userID), false)
	if state == nil {
		return nil
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	out := make([]Session, 0, len(state.sessions)+1)
	for _, session := range state.sessions {
		out = append(out, cloneSession(session))
	}
	if state.open != nil {
		out = append(out, cloneSession(*state.open))
	}
	return out
}

// Restore replays the journal into the tracker. It is meant to run once at
// startup before taps are accepted.
func (t *Tracker) Restore(ctx context.Context) (int, error) {
	if t.journal == nil {
		return 0, nil
	}
	sessions, err := t.journal.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("attendance: load journal: %w", err)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	for _, session := range sessions {
		state := t.state(pairKey{eventID: session.EventID, userID: session.UserID}, true)
		state.mu.Lock()
		if session.Open() {
			if state.open != nil {
				t.logger.WarnContext(ctx, "journal holds multiple open sessions for pair; keeping latest",
					"event_id", session.EventID,
					"user_id", session.UserID,
					"dropped_session_id", state.open.ID,
				)
			}
			open := cloneSession(session)
			state.open = &open
		} else {
			state.sessions = append(state.sessions, cloneSession(session))
		}
		state.mu.Unlock()
	}
	return len(sessions), nil
}

func (t *Tracker) state(key pairKey, create bool) *pairState {
	t.mu.RLock()
	state := t.pairs[key]
	t.mu.RUnlock()
	if state != nil || !create {
		return state
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if state = t.pairs[key]; state != nil {
		return state
	}
	state = &pairState{key: key}
	t.pairs[key] = state
	t.byEvent[key.eventID] = append(t.byEvent[key.eventID], state)
	return state
}

func (t *Tracker) recorded(transition Transition) {
	if t.observer != nil {
		t.observer.TapRecorded(transition)
	}
}

func (t *Tracker) rejected(reason string) {
	if t.observer != nil {
		t.observer.TapRejected(reason)
	}
}

func (s *pairState) summaryLocked() Summary {
	summary := Summary{EventID: s.key.eventID, UserID: s.key.userID}
	for _, session := range s.sessions {
		summary.TotalDuration += session.Duration()
		summary.ClosedSessions++
	}
	summary.TotalDurationMinutes = int(summary.TotalDuration / time.Minute)
	if s.open != nil {
		started := s.open.StartedAt
		summary.OpenSince = &started
	}
	return summary
}

func cloneSession(s Session) Session {
	if s.EndedAt != nil {
		ended := *s.EndedAt
		s.EndedAt = &ended
	}
	return s
}
