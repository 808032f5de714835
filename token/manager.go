// Package token issues and validates the signed bearer tokens that carry a
// storefront identity between requests.
//
// Tokens are self-contained HS256 JWTs holding the subject (email or mobile
// identifier), the numeric user id, and the assigned role. There is no
// server-side revocation list; a token is trusted until its expiry. Validation
// distinguishes expiry from integrity failure because the two drive different
// client responses: an expired token still yields the user id and role it
// carried, so a client can be told whose session lapsed.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed reports a token that is not a structurally valid JWT.
	ErrMalformed = errors.New("invalid token format")
	// ErrSignature reports a token whose signature does not verify.
	ErrSignature = errors.New("invalid token signature")
	// ErrInvalid reports any other validation failure.
	ErrInvalid = errors.New("token validation failed")
)

// ExpiredError reports a token that verified but is past its expiry. The
// claims recovered from the expired token are carried so callers can still
// tell the client which account and role the dead session belonged to.
type ExpiredError struct {
	UserID int64
	Role   string
}

func (e *ExpiredError) Error() string { return "token expired" }

// Claims is the decoded payload of a session token.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and validates session tokens with a single shared secret.
// The secret is injected at construction and never mutated afterwards.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a Manager. The secret must be non-empty and the TTL
// positive; both come from configuration, never from a process global.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Manager{secret: secret, ttl: ttl}, nil
}

// Issue signs a token for the given subject, user id and role, valid from now
// for the configured TTL. Issue has no side effects.
func (m *Manager) Issue(subject string, userID int64, role string) (string, error) {
	return m.issueAt(subject, userID, role, time.Now())
}

func (m *Manager) issueAt(subject string, userID int64, role string, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate decodes and verifies a token. It is a pure function of the token,
// the shared secret and the clock. Failure modes:
//
//   - expired token: *ExpiredError carrying the recovered user id and role
//   - not a JWT: ErrMalformed
//   - signature mismatch: ErrSignature
//   - anything else: ErrInvalid
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// Claims are decoded before expiry is checked, so the payload of
			// an expired-but-authentic token is still available here.
			return nil, &ExpiredError{UserID: claims.UserID, Role: claims.Role}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignature
		default:
			return nil, ErrInvalid
		}
	}

	if !parsed.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}
