package domain

import "time"

// User roles, ordered by clearance.
const (
	RoleRegular   = "REGULAR"
	RoleCashier   = "CASHIER"
	RoleManager   = "MANAGER"
	RoleSuperuser = "SUPERUSER"
)

// User Model
type User struct {
	ID             uint    `gorm:"primaryKey"`           // Primary key
	Utorid         string  `gorm:"uniqueIndex;not null"` // Unique 8-char alphanumeric identity
	Name           string  `gorm:"not null"`             // Display name, 1-50 characters
	Email          string  // Institutional email
	Password       string  // Bcrypt hash; empty until the activation reset completes
	Birthday       *string // YYYY-MM-DD, optional
	Role           string  `gorm:"not null;default:REGULAR"` // REGULAR, CASHIER, MANAGER or SUPERUSER
	Points         int     `gorm:"not null;default:0"`       // Current point balance, never negative
	Verified       bool    `gorm:"not null;default:false"`   // One-way flag: once true it stays true
	Suspicious     bool    `gorm:"not null;default:false"`   // Holds point awards created by this user
	AvatarURL      string  // Optional avatar
	ResetToken     *string `gorm:"index"` // Pending password-reset/activation token
	ResetExpiresAt *time.Time // Expiry of ResetToken
	LastLogin      *time.Time // Set on every successful login
	CreatedAt      time.Time
}
