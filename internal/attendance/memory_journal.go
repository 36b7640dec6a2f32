package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownSession is returned by MemoryJournal when closing a session it has
// not seen open.
var ErrUnknownSession = errors.New("attendance: unknown or closed session")

// MemoryJournal is a process-local Journal for tests and ephemeral runs.
type MemoryJournal struct {
	mu       sync.Mutex
	sessions []Session
	byID     map[string]int
}

// NewMemoryJournal constructs an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{byID: make(map[string]int)}
}

// Append records an opened session.
func (j *MemoryJournal) Append(_ context.Context, session Session) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.byID[session.ID]; exists {
		return fmt.Errorf("attendance: session %s already journaled", session.ID)
	}
	j.byID[session.ID] = len(j.sessions)
	j.sessions = append(j.sessions, cloneSession(session))
	return nil
}

// Close stamps the end of an open session.
func (j *MemoryJournal) Close(_ context.Context, id string, endedAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	idx, ok := j.byID[id]
	if !ok || j.sessions[idx].EndedAt != nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	ended := endedAt
	j.sessions[idx].EndedAt = &ended
	return nil
}

// Load returns a copy of every journaled session.
func (j *MemoryJournal) Load(context.Context) ([]Session, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Session, len(j.sessions))
	for i, session := range j.sessions {
		out[i] = cloneSession(session)
	}
	return out, nil
}
