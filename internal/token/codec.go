// Package token signs and verifies the attendee-facing feedback credential.
//
// A token is an HS256 JWT whose payload carries exactly four members:
// eventId, userId, formId and expiresAt (epoch milliseconds). Validity depends
// only on the signature and expiresAt; nothing is stored server side.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is applied when Issue receives a non-positive ttl.
const DefaultTTL = 7 * 24 * time.Hour

// DefaultSecret is the configuration fallback used when JWT_SECRET is unset.
const DefaultSecret = "default-secret"

var (
	// ErrInvalidSignature is returned for tampered, malformed or foreign tokens.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrExpired is returned for authentic tokens whose expiresAt has passed.
	ErrExpired = errors.New("token: expired")
	// ErrMissingClaim is returned by Issue when an id of the triple is blank.
	ErrMissingClaim = errors.New("token: eventId, userId and formId are required")
)

// Verification outcomes, as reported by Outcome.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
)

// Outcome classifies an error returned by Verify.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeValid
	case errors.Is(err, ErrExpired):
		return OutcomeExpired
	}
	return OutcomeInvalid
}

// Claims is the verified content of a feedback token.
type Claims struct {
	EventID   string
	UserID    string
	FormID    string
	ExpiresAt time.Time
}

// Codec issues and verifies feedback tokens. It holds no mutable state and is
// safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec constructs a Codec. An empty secret falls back to DefaultSecret and
// a nil clock to time.Now.
func NewCodec(secret string, now func() time.Time) *Codec {
	if strings.TrimSpace(secret) == "" {
		secret = DefaultSecret
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: []byte(secret),
		now:    now,
		// Expiry is evaluated against the injected clock below, not jwt's wall clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Issue signs a token for the triple that expires ttl from now.
func (c *Codec) Issue(eventID, userID, formID string, ttl time.Duration) (string, Claims, error) {
	eventID, userID, formID = strings.TrimSpace(eventID), strings.TrimSpace(userID), strings.TrimSpace(formID)
	if eventID == "" || userID == "" || formID == "" {
		return "", Claims{}, ErrMissingClaim
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	wire := wireClaims{
		EventID:   eventID,
		UserID:    userID,
		FormID:    formID,
		ExpiresAt: c.now().Add(ttl).UnixMilli(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, fromWire(wire), nil
}

// Verify checks the signature and expiry of raw.
func (c *Codec) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrInvalidSignature
	}

	var wire wireClaims
	parsed, err := c.parser.ParseWithClaims(raw, &wire, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidSignature
	}
	if wire.EventID == "" || wire.UserID == "" || wire.FormID == "" || wire.ExpiresAt <= 0 {
		return Claims{}, ErrInvalidSignature
	}

	claims := fromWire(wire)
	if !c.now().Before(claims.ExpiresAt) {
		return claims, ErrExpired
	}
	return claims, nil
}

type wireClaims struct {
	EventID   string `json:"eventId"`
	UserID    string `json:"userId"`
	FormID    string `json:"formId"`
	ExpiresAt int64  `json:"expiresAt"`
}

func fromWire(w wireClaims) Claims {
	return Claims{
		EventID:   w.EventID,
		UserID:    w.UserID,
		FormID:    w.FormID,
		ExpiresAt: time.UnixMilli(w.ExpiresAt).UTC(),
	}
}

// wireClaims carries no registered claims; these satisfy jwt.Claims.

func (wireClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (wireClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (wireClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (wireClaims) GetIssuer() (string, error)                   { return "", nil }
func (wireClaims) GetSubject() (string, error)                  { return "", nil }
func (wireClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
