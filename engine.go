// Package identity is the identity and access boundary of the storefront.
// The Engine orchestrates the authentication flows (password login, OTP
// login and registration over phone and email, Google login, the admin
// lifecycle, password reset) against injected collaborators: the persistence
// stores, the OTP engines, the token manager, and the mail/SMS/OAuth
// gateways.
package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/championsworld/identity/otp"
	"github.com/championsworld/identity/password"
	"github.com/championsworld/identity/token"
)

// Engine implements the identity flows. Construct one through the Builder and
// treat it as immutable afterwards; all methods are safe for concurrent use.
type Engine struct {
	cfg       Config
	log       *zap.Logger
	users     UserStore
	roles     RoleStore
	resets    ResetTokenStore
	addresses AddressStore
	tokens    *token.Manager
	hasher    *password.Hasher
	phoneOTP  *otp.Engine
	emailOTP  *otp.Engine
	mailer    Mailer
	oauth     OAuthProvider
}

// Tokens exposes the token manager so the HTTP layer can validate bearer
// credentials without a second configuration path for the shared secret.
func (e *Engine) Tokens() *token.Manager {
	return e.tokens
}

// subject picks the token subject for a user: email when present, the mobile
// number otherwise.
func subject(user UserRecord) string {
	if user.Email != "" {
		return user.Email
	}
	return user.Mobile
}

// buildIdentity resolves the user's role assignment. A missing assignment for
// an account past registration is an integrity fault and fails closed.
func (e *Engine) buildIdentity(ctx context.Context, user UserRecord) (UserIdentity, error) {
	role, err := e.roles.RoleOf(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			e.log.Error("account has no role assignment", zap.Int64("userId", user.ID))
		}
		return UserIdentity{}, err
	}

	return UserIdentity{UserID: user.ID, Email: user.Email, Role: role}, nil
}

// login finishes a successful authentication: resolve the role, issue a token.
func (e *Engine) login(ctx context.Context, user UserRecord) (LoginResult, error) {
	ident, err := e.buildIdentity(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	tok, err := e.tokens.Issue(subject(user), ident.UserID, ident.Role)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: tok, Identity: ident}, nil
}

func (e *Engine) requireActive(user UserRecord) error {
	if !user.Active {
		e.log.Warn("inactive account access attempt", zap.Int64("userId", user.ID))
		return ErrAccountInactive
	}
	return nil
}

func (e *Engine) assignRole(ctx context.Context, userID int64, role string) error {
	e.log.Info("assigning role", zap.Int64("userId", userID), zap.String("role", role))
	return e.roles.AssignRole(ctx, userID, role)
}
