// Package memory implements the catalog repositories (events, users, forms and
// feedback responses) with process-local maps.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/persistence"
)

// Store is safe for concurrent use. Every value crossing its boundary is copied.
type Store struct {
	mu        sync.RWMutex
	events    map[string]persistence.Event
	users     map[string]persistence.User
	rfid      map[string]string
	forms     map[string]feedback.Form
	responses map[string][]feedback.Response
}

var (
	_ persistence.EventRepository    = (*Store)(nil)
	_ persistence.UserRepository     = (*Store)(nil)
	_ persistence.FormRepository     = (*Store)(nil)
	_ persistence.ResponseRepository = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:    make(map[string]persistence.Event),
		users:     make(map[string]persistence.User),
		rfid:      make(map[string]string),
		forms:     make(map[string]feedback.Form),
		responses: make(map[string][]feedback.Response),
	}
}

// --- EventRepository implementation ---

// PutEvent inserts or replaces an event.
func (s *Store) PutEvent(_ context.Context, event persistence.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("memory: event id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	return nil
}

// GetEvent retrieves an event by id.
func (s *Store) GetEvent(_ context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

// ListEvents returns every event ordered by start time, then id.
func (s *Store) ListEvents(_ context.Context) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events, nil
}

// --- UserRepository implementation ---

// PutUser inserts or replaces a user. RFID badges must be unique.
func (s *Store) PutUser(_ context.Context, user persistence.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("memory: user id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.RFIDID != "" {
		if owner, taken := s.rfid[user.RFIDID]; taken && owner != user.ID {
			return fmt.Errorf("%w: rfid %s already assigned to %s", persistence.ErrConflict, user.RFIDID, owner)
		}
	}
	if previous, ok := s.users[user.ID]; ok && previous.RFIDID != "" {
		delete(s.rfid, previous.RFIDID)
	}
	s.users[user.ID] = user
	if user.RFIDID != "" {
		s.rfid[user.RFIDID] = user.ID
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByRFID resolves a badge to its holder.
func (s *Store) GetUserByRFID(_ context.Context, rfidID string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.rfid[strings.TrimSpace(rfidID)]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return s.users[id], nil
}

// ListUsersByIDs returns the known users among ids, in the order given.
// Unknown ids are skipped.
func (s *Store) ListUsersByIDs(_ context.Context, ids []string) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]persistence.User, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// --- FormRepository implementation ---

// PutForm inserts or replaces a form definition.
func (s *Store) PutForm(_ context.Context, form feedback.Form) error {
	if strings.TrimSpace(form.ID) == "" {
		return fmt.Errorf("memory: form id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[form.ID] = cloneForm(form)
	return nil
}

// GetForm retrieves a form by id.
func (s *Store) GetForm(_ context.Context, id string) (feedback.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[id]
	if !ok {
		return feedback.Form{}, persistence.ErrNotFound
	}
	return cloneForm(form), nil
}

// --- ResponseRepository implementation ---

// CreateResponse stores a response. Each user may answer a form once and
// response ids are unique per form.
func (s *Store) CreateResponse(_ context.Context, response feedback.Response) error {
	if strings.TrimSpace(response.ID) == "" || strings.TrimSpace(response.FormID) == "" {
		return fmt.Errorf("memory: response id and form id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.responses[response.FormID] {
		if existing.ID == response.ID {
			return fmt.Errorf("%w: response %s exists", persistence.ErrConflict, response.ID)
		}
		if response.SubmittedBy != "" && existing.SubmittedBy == response.SubmittedBy {
			return fmt.Errorf("%w: user %s already answered form %s", persistence.ErrConflict, response.SubmittedBy, response.FormID)
		}
	}
	s.responses[response.FormID] = append(s.responses[response.FormID], response.Clone())
	return nil
}

// ListResponsesByForm returns a form's responses in submission order.
func (s *Store) ListResponsesByForm(_ context.Context, formID string) ([]feedback.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.responses[formID]
	responses := make([]feedback.Response, 0, len(stored))
	for _, response := range stored {
		responses = append(responses, response.Clone())
	}
	sort.SliceStable(responses, func(i, j int) bool {
		if responses[i].SubmittedAt.Equal(responses[j].SubmittedAt) {
			return responses[i].ID < responses[j].ID
		}
		return responses[i].SubmittedAt.Before(responses[j].SubmittedAt)
	})
	return responses, nil
}

// GetResponseByUser returns the response userID submitted to formID.
func (s *Store) GetResponseByUser(_ context.Context, formID, userID string) (feedback.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, response := range s.responses[formID] {
		if response.SubmittedBy == userID {
			return response.Clone(), nil
		}
	}
	return feedback.Response{}, persistence.ErrNotFound
}

func cloneForm(form feedback.Form) feedback.Form {
	out := form
	out.Fields = make([]feedback.FormField, len(form.Fields))
	for i, field := range form.Fields {
		field.Options = append([]string(nil), field.Options...)
		out.Fields[i] = field
	}
	return out
}
