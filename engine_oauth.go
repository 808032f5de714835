package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// LoginWithGoogle exchanges a Google authorization code and either links to
// the existing account with the same email or creates a CUSTOMER account.
// Two concurrent first logins for the same email race on the uniqueness
// constraint; the loser re-reads the winner's record and proceeds as a link.
func (e *Engine) LoginWithGoogle(ctx context.Context, code string) (LoginResult, error) {
	if e.oauth == nil {
		return LoginResult{}, ErrOAuthFailed
	}

	accessToken, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		e.log.Warn("google code exchange failed", zap.Error(err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrOAuthFailed, err)
	}

	providerID, email, err := e.oauth.Profile(ctx, accessToken)
	if err != nil {
		e.log.Warn("google profile fetch failed", zap.Error(err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrOAuthFailed, err)
	}
	if email == "" {
		return LoginResult{}, ErrOAuthFailed
	}

	user, err := e.users.UserByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account, any provider. Google ownership of the email is
		// proof enough to log in.
	case errors.Is(err, ErrUserNotFound):
		user, err = e.createGoogleUser(ctx, email, providerID)
		if err != nil {
			return LoginResult{}, err
		}
	default:
		return LoginResult{}, err
	}

	if err := e.requireActive(user); err != nil {
		return LoginResult{}, err
	}

	e.log.Info("google login", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}

func (e *Engine) createGoogleUser(ctx context.Context, email, providerID string) (UserRecord, error) {
	user := UserRecord{
		Email:      email,
		Active:     true,
		Provider:   ProviderGoogle,
		ProviderID: providerID,
	}
	err := e.users.CreateUser(ctx, &user)
	if err == nil {
		if err := e.assignRole(ctx, user.ID, RoleCustomer); err != nil {
			return UserRecord{}, err
		}
		e.log.Info("google account created", zap.Int64("userId", user.ID))
		return user, nil
	}

	// A concurrent first login won the create. Use its record.
	if errors.Is(err, ErrUserAlreadyExists) {
		return e.users.UserByEmail(ctx, email)
	}
	return UserRecord{}, err
}
