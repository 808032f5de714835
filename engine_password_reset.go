package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/championsworld/identity/internal"
)

// RequestPasswordReset issues a single-use reset code to a privileged
// account. Accounts without ADMIN or SUPER_ADMIN role get the same not-found
// answer as missing accounts so the endpoint reveals nothing about either.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	user, role, err := e.privilegedByEmail(ctx, email)
	if err != nil {
		return err
	}

	code := internal.NewResetCode()
	rec := ResetRecord{
		UserID:    user.ID,
		CodeHash:  internal.HashCode(code),
		ExpiresAt: time.Now().Add(e.cfg.Reset.TTL),
	}
	if err := e.resets.CreateResetToken(ctx, &rec); err != nil {
		return err
	}

	if err := e.mailer.Send(ctx, user.Email, resetMailSubject, resetMailBody(code)); err != nil {
		e.log.Error("reset mail delivery failed",
			zap.Int64("userId", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.log.Info("password reset requested",
		zap.Int64("userId", user.ID), zap.String("role", role))
	return nil
}

// CompletePasswordReset consumes the most recent reset code for the account
// and stores the new password. The token is marked used before the password
// changes, so of two concurrent completions with the same code exactly one
// proceeds and the other sees the code as spent.
func (e *Engine) CompletePasswordReset(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	user, role, err := e.privilegedByEmail(ctx, email)
	if err != nil {
		return err
	}

	rec, err := e.resets.LatestResetToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	if rec.Used || time.Now().After(rec.ExpiresAt) {
		return ErrResetTokenInvalid
	}
	if !internal.CodeMatches(code, rec.CodeHash) {
		return ErrResetTokenInvalid
	}

	if err := e.resets.ConsumeResetToken(ctx, rec.ID); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	e.log.Info("password reset complete", zap.Int64("userId", user.ID))

	if err := e.mailer.Send(ctx, user.Email, resetConfirmedSubject,
		resetConfirmedBody(user.Email, role, time.Now())); err != nil {
		e.log.Warn("reset confirmation mail failed",
			zap.Int64("userId", user.ID), zap.Error(err))
	}
	return nil
}

// privilegedByEmail resolves an account that holds ADMIN or SUPER_ADMIN.
// Absence and insufficient privilege collapse into ErrUserNotFound.
func (e *Engine) privilegedByEmail(ctx context.Context, email string) (UserRecord, string, error) {
	user, err := e.users.UserByEmail(ctx, email)
	if err != nil {
		return UserRecord{}, "", err
	}

	role, err := e.roles.RoleOf(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return UserRecord{}, "", ErrUserNotFound
		}
		return UserRecord{}, "", err
	}
	if role != RoleAdmin && role != RoleSuperAdmin {
		return UserRecord{}, "", ErrUserNotFound
	}

	return user, role, nil
}
