package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/feedback-analytics/internal/persistence"
	"github.com/example/feedback-analytics/internal/token"
)

var (
	// ErrNotFound is returned when the requested event, form, user or badge does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrCancelled is returned when the caller's deadline passes before an operation completes.
	ErrCancelled = errors.New("application: cancelled")
	// ErrNotEligible is returned when an attendee has not accrued the event's minimum attendance.
	ErrNotEligible = errors.New("application: attendee not eligible")
	// ErrAlreadySubmitted is returned when the attendee already answered the form.
	ErrAlreadySubmitted = errors.New("application: feedback already submitted")
	// ErrTokenInvalid is returned for tampered tokens or tokens presented for another user.
	ErrTokenInvalid = errors.New("application: token invalid")
	// ErrTokenExpired is returned for authentic tokens past their expiry.
	ErrTokenExpired = errors.New("application: token expired")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	// Malformed is set when at least one value could not be parsed at all.
	Malformed bool
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
	v.Malformed = v.Malformed || other.Malformed
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConflict) {
		return ErrAlreadySubmitted
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}

// mapTokenError keeps the codec sentinel in the chain so callers may match either.
func mapTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, token.ErrInvalidSignature):
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return err
}

// checkContext reports a cancelled or expired caller deadline as ErrCancelled.
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
