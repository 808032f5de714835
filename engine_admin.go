package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// RegisterAdmin creates an active ADMIN account with a password credential.
func (e *Engine) RegisterAdmin(ctx context.Context, email, pass string) (UserIdentity, error) {
	exists, err := e.users.EmailExists(ctx, email)
	if err != nil {
		return UserIdentity{}, err
	}
	if exists {
		return UserIdentity{}, ErrUserAlreadyExists
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return UserIdentity{}, err
	}

	user := UserRecord{
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Provider:     ProviderLocal,
	}
	if err := e.users.CreateUser(ctx, &user); err != nil {
		return UserIdentity{}, err
	}
	if err := e.assignRole(ctx, user.ID, RoleAdmin); err != nil {
		return UserIdentity{}, err
	}

	e.log.Info("admin registered", zap.Int64("userId", user.ID), zap.String("email", email))
	return UserIdentity{UserID: user.ID, Email: email, Role: RoleAdmin}, nil
}

// SetAdminActive toggles an admin account's active flag. Only accounts
// holding the ADMIN role can be targeted. Requesting the current state is a
// no-op, not an error.
func (e *Engine) SetAdminActive(ctx context.Context, userID int64, active bool) error {
	user, err := e.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	isAdmin, err := e.roles.HasRole(ctx, userID, RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrUserNotAdmin
	}

	if user.Active == active {
		e.log.Debug("admin status unchanged",
			zap.Int64("userId", userID), zap.Bool("active", active))
		return nil
	}

	if err := e.users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	e.log.Info("admin status changed",
		zap.Int64("userId", userID), zap.Bool("active", active))
	return nil
}

// ListAdmins returns summaries of every admin account.
func (e *Engine) ListAdmins(ctx context.Context) ([]AdminSummary, error) {
	return e.users.ListAdmins(ctx)
}

// DeleteAdmin hard-deletes an admin account. SUPER_ADMIN accounts can never
// be deleted, and any other target must hold exactly the ADMIN role. The role
// assignment goes first so the account record never outlives it.
func (e *Engine) DeleteAdmin(ctx context.Context, userID int64) error {
	if _, err := e.users.UserByID(ctx, userID); err != nil {
		return err
	}

	role, err := e.roles.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return ErrAdminActionForbidden
		}
		return err
	}
	if role == RoleSuperAdmin {
		e.log.Warn("refused super admin deletion", zap.Int64("userId", userID))
		return ErrAdminActionForbidden
	}
	if role != RoleAdmin {
		return ErrAdminActionForbidden
	}

	if err := e.roles.RemoveRole(ctx, userID); err != nil {
		return err
	}
	if err := e.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	e.log.Info("admin deleted", zap.Int64("userId", userID))
	return nil
}
