package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Authenticate performs password login. An unknown email and a wrong password
// both fail with ErrInvalidCredentials so callers cannot probe for accounts.
// An inactive account is rejected before the password is checked.
func (e *Engine) Authenticate(ctx context.Context, email, pass string) (LoginResult, error) {
	user, err := e.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.log.Warn("login attempt for unknown email", zap.String("email", email))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := e.requireActive(user); err != nil {
		return LoginResult{}, err
	}

	// accounts created through OTP or Google carry no password credential
	if user.PasswordHash == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		e.log.Warn("password mismatch", zap.Int64("userId", user.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	e.log.Info("password login", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}

// SendPhoneLoginOTP delivers a login code to an existing account's mobile
// number. Login codes never create accounts; an unknown number is reported.
func (e *Engine) SendPhoneLoginOTP(ctx context.Context, mobile string) error {
	user, err := e.users.UserByMobile(ctx, mobile)
	if err != nil {
		return err
	}
	if err := e.requireActive(user); err != nil {
		return err
	}
	return e.phoneOTP.Send(ctx, mobile)
}

// VerifyPhoneLoginOTP checks the presented code and issues a session token.
func (e *Engine) VerifyPhoneLoginOTP(ctx context.Context, mobile, code string) (LoginResult, error) {
	user, err := e.users.UserByMobile(ctx, mobile)
	if err != nil {
		return LoginResult{}, err
	}
	if err := e.requireActive(user); err != nil {
		return LoginResult{}, err
	}

	ok, err := e.phoneOTP.Verify(ctx, mobile, code)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, ErrOTPInvalid
	}

	e.log.Info("phone otp login", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}

// SendEmailLoginOTP delivers a login code to an existing account's email.
func (e *Engine) SendEmailLoginOTP(ctx context.Context, email string) error {
	user, err := e.users.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := e.requireActive(user); err != nil {
		return err
	}
	return e.emailOTP.Send(ctx, email)
}

// VerifyEmailLoginOTP checks the presented code and issues a session token.
func (e *Engine) VerifyEmailLoginOTP(ctx context.Context, email, code string) (LoginResult, error) {
	user, err := e.users.UserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := e.requireActive(user); err != nil {
		return LoginResult{}, err
	}

	ok, err := e.emailOTP.Verify(ctx, email, code)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, ErrOTPInvalid
	}

	e.log.Info("email otp login", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}
