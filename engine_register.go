package identity

import (
	"context"

	"go.uber.org/zap"
)

// StartPhoneRegistration opens an OTP registration for a mobile number that
// does not yet have an account.
func (e *Engine) StartPhoneRegistration(ctx context.Context, mobile string) error {
	exists, err := e.users.MobileExists(ctx, mobile)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyExists
	}
	return e.phoneOTP.Send(ctx, mobile)
}

// VerifyPhoneRegistrationOTP consumes the registration challenge and, on a
// match, records registration eligibility for the number.
func (e *Engine) VerifyPhoneRegistrationOTP(ctx context.Context, mobile, code string) error {
	ok, err := e.phoneOTP.Verify(ctx, mobile, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPInvalid
	}
	return e.phoneOTP.MarkVerified(ctx, mobile)
}

// CompletePhoneRegistration creates the account once the number has passed
// its OTP check. A cleared verified flag can mean either no verification or
// a concurrent completion that already won; the flag is only cleared after
// the winner's account exists, so the duplicate re-check below settles which.
// The store's uniqueness constraint is the final arbiter when two callers
// pass both checks together.
func (e *Engine) CompletePhoneRegistration(ctx context.Context, mobile string) (LoginResult, error) {
	verified, err := e.phoneOTP.IsVerified(ctx, mobile)
	if err != nil {
		return LoginResult{}, err
	}
	if !verified {
		exists, err := e.users.MobileExists(ctx, mobile)
		if err != nil {
			return LoginResult{}, err
		}
		if exists {
			return LoginResult{}, ErrUserAlreadyExists
		}
		return LoginResult{}, ErrOTPNotVerified
	}

	exists, err := e.users.MobileExists(ctx, mobile)
	if err != nil {
		return LoginResult{}, err
	}
	if exists {
		return LoginResult{}, ErrUserAlreadyExists
	}

	user := UserRecord{
		Mobile:         mobile,
		Active:         true,
		Provider:       ProviderOTP,
		MobileVerified: true,
	}
	if err := e.users.CreateUser(ctx, &user); err != nil {
		return LoginResult{}, err
	}
	if err := e.assignRole(ctx, user.ID, RoleCustomer); err != nil {
		return LoginResult{}, err
	}
	if err := e.phoneOTP.Clear(ctx, mobile); err != nil {
		e.log.Warn("failed to clear verified flag", zap.String("mobile", mobile), zap.Error(err))
	}

	e.log.Info("phone registration complete", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}

// StartEmailRegistration opens an OTP registration for an unused email.
func (e *Engine) StartEmailRegistration(ctx context.Context, email string) error {
	exists, err := e.users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyExists
	}
	return e.emailOTP.Send(ctx, email)
}

// VerifyEmailRegistrationOTP consumes the registration challenge and, on a
// match, records registration eligibility for the email.
func (e *Engine) VerifyEmailRegistrationOTP(ctx context.Context, email, code string) error {
	ok, err := e.emailOTP.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOTPInvalid
	}
	return e.emailOTP.MarkVerified(ctx, email)
}

// CompleteEmailRegistration creates the account once the email has passed its
// OTP check. The cleared-flag handling mirrors the phone flow: a missing flag
// with an existing account means a concurrent completion already won.
func (e *Engine) CompleteEmailRegistration(ctx context.Context, email string) (LoginResult, error) {
	verified, err := e.emailOTP.IsVerified(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if !verified {
		exists, err := e.users.EmailExists(ctx, email)
		if err != nil {
			return LoginResult{}, err
		}
		if exists {
			return LoginResult{}, ErrUserAlreadyExists
		}
		return LoginResult{}, ErrOTPNotVerified
	}

	exists, err := e.users.EmailExists(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if exists {
		return LoginResult{}, ErrUserAlreadyExists
	}

	user := UserRecord{
		Email:    email,
		Active:   true,
		Provider: ProviderOTP,
	}
	if err := e.users.CreateUser(ctx, &user); err != nil {
		return LoginResult{}, err
	}
	if err := e.assignRole(ctx, user.ID, RoleCustomer); err != nil {
		return LoginResult{}, err
	}
	if err := e.emailOTP.Clear(ctx, email); err != nil {
		e.log.Warn("failed to clear verified flag", zap.String("email", email), zap.Error(err))
	}

	e.log.Info("email registration complete", zap.Int64("userId", user.ID))
	return e.login(ctx, user)
}
