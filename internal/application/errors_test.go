package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/token"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"page": "must be at least 1", "limit": "must be at most 100"}}
	if got := withFields.Error(); got != "validation failed: limit: must be at most 100; page: must be at least 1" {
		t.Fatalf("expected sorted field messages, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}, Malformed: true}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}
	if !base.Malformed {
		t.Fatalf("expected merge to carry the malformed flag")
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	if mapRepoError(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
	if got := mapRepoError(fmt.Errorf("wrapped: %w", persistence.ErrNotFound)); got != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", got)
	}
	if got := mapRepoError(persistence.ErrConflict); got != ErrAlreadySubmitted {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", got)
	}
	if got := mapRepoError(context.DeadlineExceeded); !errors.Is(got, ErrCancelled) || !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("expected ErrCancelled wrapping the deadline, got %v", got)
	}
	boom := errors.New("boom")
	if got := mapRepoError(boom); got != boom {
		t.Fatalf("expected unknown errors to pass through, got %v", got)
	}
}

func TestMapTokenError(t *testing.T) {
	t.Parallel()

	expired := mapTokenError(token.ErrExpired)
	if !errors.Is(expired, ErrTokenExpired) || !errors.Is(expired, token.ErrExpired) {
		t.Fatalf("expected both expiry sentinels, got %v", expired)
	}
	invalid := mapTokenError(token.ErrInvalidSignature)
	if !errors.Is(invalid, ErrTokenInvalid) || !errors.Is(invalid, token.ErrInvalidSignature) {
		t.Fatalf("expected both signature sentinels, got %v", invalid)
	}
}
