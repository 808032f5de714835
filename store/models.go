package store

import "time"

// User is the account row. Email and Mobile are nullable so the unique
// indexes ignore absent identifiers instead of colliding on empty strings.
type User struct {
	ID             int64   `gorm:"primaryKey"`
	Email          *string `gorm:"uniqueIndex;size:255"`
	Mobile         *string `gorm:"uniqueIndex;size:20"`
	PasswordHash   string  `gorm:"size:255"`
	Active         bool
	Provider       string `gorm:"size:16"`
	ProviderID     string `gorm:"size:255"`
	MobileVerified bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role is a named permission tier. The three storefront roles are seeded at
// migration time.
type Role struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:32"`
}

// UserRole is the one-to-one user/role assignment.
type UserRole struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"uniqueIndex"`
	RoleID int64 `gorm:"index"`
}

// PasswordResetToken holds the SHA-256 digest of a single-use reset code.
type PasswordResetToken struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"index"`
	CodeHash  []byte `gorm:"size:32"`
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Address is a customer delivery address.
type Address struct {
	ID            int64 `gorm:"primaryKey"`
	UserID        int64 `gorm:"index"`
	Label         string
	FirstName     string
	LastName      string
	ContactNumber string
	Email         string
	Line1         string
	Line2         string
	City          string
	State         string
	Pincode       string
	Country       string
	IsDefault     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
