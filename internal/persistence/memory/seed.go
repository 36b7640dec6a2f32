package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/feedback-analytics/internal/feedback"
	"github.com/example/feedback-analytics/internal/persistence"
)

// Seed is the YAML document accepted by LoadSeed.
type Seed struct {
	Events    []persistence.Event `yaml:"events"`
	Users     []persistence.User  `yaml:"users"`
	Forms     []feedback.Form     `yaml:"forms"`
	Responses []SeedResponse      `yaml:"responses"`
}

// SeedResponse is a pre-recorded feedback response.
type SeedResponse struct {
	ID          string         `yaml:"id"`
	FormID      string         `yaml:"formId"`
	EventID     string         `yaml:"eventId"`
	SubmittedBy string         `yaml:"submittedBy"`
	SubmittedAt time.Time      `yaml:"submittedAt"`
	Answers     map[string]any `yaml:"answers"`
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("memory: parse seed: %w", err)
	}
	return seed, nil
}

// LoadSeed reads path and applies it to the store.
func (s *Store) LoadSeed(ctx context.Context, path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("memory: read seed: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return Seed{}, err
	}
	return seed, s.Apply(ctx, seed)
}

// Apply inserts every record of seed, stopping at the first failure.
func (s *Store) Apply(ctx context.Context, seed Seed) error {
	for _, form := range seed.Forms {
		for _, field := range form.Fields {
			if !field.Type.Valid() {
				return fmt.Errorf("memory: form %s field %s: unsupported type %q", form.ID, field.ID, field.Type)
			}
		}
		if err := s.PutForm(ctx, form); err != nil {
			return err
		}
	}
	for _, event := range seed.Events {
		if err := s.PutEvent(ctx, event); err != nil {
			return err
		}
	}
	for _, user := range seed.Users {
		if err := s.PutUser(ctx, user); err != nil {
			return err
		}
	}
	for _, response := range seed.Responses {
		if err := s.CreateResponse(ctx, feedback.Response{
			ID:          response.ID,
			FormID:      response.FormID,
			EventID:     response.EventID,
			SubmittedBy: response.SubmittedBy,
			SubmittedAt: response.SubmittedAt,
			Answers:     response.Answers,
		}); err != nil {
			return err
		}
	}
	return nil
}
