// Package links turns feedback tokens into attendee-facing URLs.
package links

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/feedback-analytics/internal/token"
)

// DefaultBaseURL is used when no frontend origin is configured.
const DefaultBaseURL = "http://localhost:3000"

// Variant selects the page a link opens.
type Variant string

const (
	VariantFeedback          Variant = "feedback"
	VariantFeedbackAndRating Variant = "feedback-and-rating"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantFeedback || v == VariantFeedbackAndRating
}

var (
	// ErrMissingSlug is returned when the event slug is blank.
	ErrMissingSlug = errors.New("links: event slug is required")
	// ErrUnknownVariant is returned for a variant other than the two link shapes.
	ErrUnknownVariant = errors.New("links: unknown variant")
)

// Signer issues feedback tokens.
type Signer interface {
	Issue(eventID, userID, formID string, ttl time.Duration) (string, token.Claims, error)
}

// Link is an issued URL together with the claims its token carries.
type Link struct {
	URL     string
	Variant Variant
	Claims  token.Claims
}

// Issuer builds feedback links against a frontend origin.
type Issuer struct {
	signer  Signer
	baseURL string
	ttl     time.Duration
}

// NewIssuer constructs an Issuer. Trailing slashes on baseURL are dropped and a
// non-positive ttl selects token.DefaultTTL.
func NewIssuer(signer Signer, baseURL string, ttl time.Duration) *Issuer {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = token.DefaultTTL
	}
	return &Issuer{signer: signer, baseURL: baseURL, ttl: ttl}
}

// BuildFeedbackURL returns {base}/events/{slug}/feedback/public?token=..&userId=..
func (i *Issuer) BuildFeedbackURL(eventID, userID, formID, slug string) (Link, error) {
	return i.Build(VariantFeedback, eventID, userID, formID, slug)
}

// BuildFeedbackAndRatingURL returns {base}/events/{slug}/feedback-and-rating?token=..&userId=..
func (i *Issuer) BuildFeedbackAndRatingURL(eventID, userID, formID, slug string) (Link, error) {
	return i.Build(VariantFeedbackAndRating, eventID, userID, formID, slug)
}

// Build issues a token for the triple and formats the URL for variant.
func (i *Issuer) Build(variant Variant, eventID, userID, formID, slug string) (Link, error) {
	if !variant.Valid() {
		return Link{}, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Link{}, ErrMissingSlug
	}

	signed, claims, err := i.signer.Issue(eventID, userID, formID, i.ttl)
	if err != nil {
		return Link{}, err
	}

	path := "/events/" + url.PathEscape(slug) + "/feedback/public"
	if variant == VariantFeedbackAndRating {
		path = "/events/" + url.PathEscape(slug) + "/feedback-and-rating"
	}

	return Link{
		URL:     i.baseURL + path + "?token=" + url.QueryEscape(signed) + "&userId=" + url.QueryEscape(claims.UserID),
		Variant: variant,
		Claims:  claims,
	}, nil
}
