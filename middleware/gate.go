// Package middleware holds the authorization gate: an echo middleware that
// resolves the caller's identity from a bearer token and enforces the static
// endpoint policy before any handler runs.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/token"
)

const identityKey = "auth.identity"

// IdentityFromContext returns the identity the gate attached. ok is false on
// public endpoints reached without a credential.
func IdentityFromContext(c echo.Context) (identity.UserIdentity, bool) {
	ident, ok := c.Get(identityKey).(identity.UserIdentity)
	return ident, ok
}

// expiredResponse carries the still-recoverable claims of an expired token so
// clients can explain whose session lapsed without a second lookup.
type expiredResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
	Role    string `json:"role"`
}

// Gate validates bearer credentials and applies the policy table. Requests
// without a credential proceed unauthenticated and are judged by the policy
// alone; any present credential must be fully valid.
func Gate(tokens *token.Manager, policy *Policy, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, present := bearerToken(c.Request())
			if present {
				claims, err := tokens.Validate(raw)
				if err != nil {
					return rejectInvalid(c, log, err)
				}
				c.Set(identityKey, identity.UserIdentity{
					UserID: claims.UserID,
					Email:  claims.Subject,
					Role:   identity.NormalizeRole(claims.Role),
				})
			}

			role, public, matched := policy.decide(c.Request().Method, c.Request().URL.Path)
			if !matched {
				log.Warn("request to undeclared endpoint",
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path))
				return deny(c)
			}
			if public {
				return next(c)
			}

			ident, ok := IdentityFromContext(c)
			if !ok || ident.Role != identity.NormalizeRole(role) {
				return deny(c)
			}
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return "", false
	}
	return raw, true
}

func rejectInvalid(c echo.Context, log *zap.Logger, err error) error {
	var expired *token.ExpiredError
	if errors.As(err, &expired) {
		return c.JSON(http.StatusUnauthorized, expiredResponse{
			Valid:   false,
			Message: "Token has expired",
			UserID:  expired.UserID,
			Role:    expired.Role,
		})
	}

	msg := "Authentication failed"
	switch {
	case errors.Is(err, token.ErrMalformed):
		msg = "Invalid token format"
	case errors.Is(err, token.ErrSignature):
		msg = "Invalid token signature"
	}
	log.Warn("token rejected", zap.String("reason", msg))
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": msg})
}

func deny(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"message": "ACCESS DENIED"})
}
