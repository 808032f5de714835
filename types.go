package identity

import (
	"context"
	"strings"
	"time"
)

// Role names. Every account holds exactly one of these once registration
// completes; a missing assignment is a server-side integrity fault and fails
// closed.
const (
	RoleCustomer   = "CUSTOMER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// Provider records how an account was first established.
const (
	ProviderLocal  = "LOCAL"
	ProviderGoogle = "GOOGLE"
	ProviderOTP    = "OTP"
)

const rolePrefix = "ROLE_"

// NormalizeRole maps a role claim into its canonical authorization form
// (ROLE_-prefixed) so downstream comparisons are plain equality checks.
func NormalizeRole(role string) string {
	if strings.HasPrefix(role, rolePrefix) {
		return role
	}
	return rolePrefix + role
}

// UserIdentity is the resolved identity attached to an authenticated request
// and embedded into issued tokens.
type UserIdentity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// LoginResult is returned by every flow that ends in an issued session token.
type LoginResult struct {
	Token    string       `json:"token"`
	Identity UserIdentity `json:"identity"`
}

// UserRecord is the persistence view of an account. Email and Mobile are
// empty when absent; at least one is always set.
type UserRecord struct {
	ID             int64
	Email          string
	Mobile         string
	PasswordHash   string
	Active         bool
	Provider       string
	ProviderID     string
	MobileVerified bool
}

// AdminSummary is the listing row returned to SUPER_ADMIN callers.
type AdminSummary struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
	Role   string `json:"role"`
}

// ResetRecord is a single-use password-reset credential. Only the SHA-256
// digest of the code is stored. Multiple records may accumulate per user;
// only the most recently created one is ever consulted.
type ResetRecord struct {
	ID        int64
	UserID    int64
	CodeHash  [32]byte
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// AddressRecord is a customer delivery address.
type AddressRecord struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"-"`
	Label         string `json:"label"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email"`
	Line1         string `json:"addressLine1"`
	Line2         string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	Country       string `json:"country"`
	Default       bool   `json:"isDefault"`
}

// UserStore is the persistence collaborator for account records. CreateUser
// must surface uniqueness violations on email or mobile as
// ErrUserAlreadyExists; lookups surface absence as ErrUserNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u *UserRecord) error
	UserByID(ctx context.Context, id int64) (UserRecord, error)
	UserByEmail(ctx context.Context, email string) (UserRecord, error)
	UserByMobile(ctx context.Context, mobile string) (UserRecord, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	MobileExists(ctx context.Context, mobile string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	DeleteUser(ctx context.Context, id int64) error
	ListAdmins(ctx context.Context) ([]AdminSummary, error)
}

// RoleStore maintains the one-to-one identity/role assignment.
type RoleStore interface {
	AssignRole(ctx context.Context, userID int64, role string) error
	RoleOf(ctx context.Context, userID int64) (string, error)
	HasRole(ctx context.Context, userID int64, role string) (bool, error)
	RemoveRole(ctx context.Context, userID int64) error
}

// ResetTokenStore persists password-reset credentials. ConsumeResetToken must
// flip used=false to used=true atomically: of any number of concurrent calls
// for the same record, exactly one succeeds and the rest observe
// ErrResetTokenInvalid.
type ResetTokenStore interface {
	CreateResetToken(ctx context.Context, r *ResetRecord) error
	LatestResetToken(ctx context.Context, userID int64) (ResetRecord, error)
	ConsumeResetToken(ctx context.Context, id int64) error
}

// AddressStore persists customer addresses.
type AddressStore interface {
	CreateAddress(ctx context.Context, a *AddressRecord) error
	AddressByID(ctx context.Context, id int64) (AddressRecord, error)
	AddressesByUser(ctx context.Context, userID int64) ([]AddressRecord, error)
	UpdateAddress(ctx context.Context, a *AddressRecord) error
	DeleteAddress(ctx context.Context, id int64) error
	HasAddresses(ctx context.Context, userID int64) (bool, error)
	ClearDefault(ctx context.Context, userID int64) error
}

// Mailer delivers outbound mail. The engine never inspects delivery content
// beyond pass/fail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers outbound text messages.
type SMSSender interface {
	Send(ctx context.Context, mobile, body string) error
}

// OAuthProvider exchanges a third-party authorization code for a profile.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (accessToken string, err error)
	Profile(ctx context.Context, accessToken string) (providerID, email string, err error)
}
