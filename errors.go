package identity

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password
	// so a caller cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound reports an identifier with no account behind it.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists reports a uniqueness violation on email or mobile.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrAccountInactive blocks every authentication path for a deactivated
	// account regardless of credential validity.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrOTPInvalid reports a wrong, expired or missing one-time code.
	ErrOTPInvalid = errors.New("invalid or expired otp")
	// ErrOTPNotVerified blocks registration completion for an identifier that
	// has not passed its OTP check.
	ErrOTPNotVerified = errors.New("otp verification required")
	// ErrRoleNotFound is a server-side integrity fault: an account past
	// registration with no role assignment. Authentication fails closed.
	ErrRoleNotFound = errors.New("role not assigned")
	// ErrUserNotAdmin reports a privileged operation aimed at an account that
	// does not hold the ADMIN role.
	ErrUserNotAdmin = errors.New("user is not an admin")
	// ErrAdminActionForbidden reports an admin-lifecycle rule violation, such
	// as deleting a SUPER_ADMIN.
	ErrAdminActionForbidden = errors.New("admin action not allowed")
	// ErrPasswordMismatch reports newPassword != confirmPassword on reset.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrResetTokenNotFound reports that no reset credential was ever issued
	// for the account.
	ErrResetTokenNotFound = errors.New("reset token not found")
	// ErrResetTokenInvalid covers a reset code that is already used,
	// expired, or simply wrong. The kinds are deliberately merged.
	ErrResetTokenInvalid = errors.New("reset code invalid, expired or already used")
	// ErrOAuthFailed reports a failed third-party code exchange or profile
	// fetch.
	ErrOAuthFailed = errors.New("google authentication failed")
	// ErrMailDelivery reports that the mail collaborator refused a message.
	ErrMailDelivery = errors.New("email delivery failed")
	// ErrAddressNotFound reports an unknown address id.
	ErrAddressNotFound = errors.New("address not found")
	// ErrAddressForbidden reports an address operation by a non-owner.
	ErrAddressForbidden = errors.New("address does not belong to user")
)
