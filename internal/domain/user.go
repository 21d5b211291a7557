package domain

import (
	"strings" // String normalization
	"time"    // Timestamps
)

// Role is the closed set of roles a user can hold
type Role string

// Known roles
const (
	RolePlayer  Role = "player"  // Default role for registered users
	RoleManager Role = "manager" // May verify entries and view the dashboard
	RoleAdmin   Role = "admin"   // Full access, including role and team management
)

// ParseRole returns the role named by s, ok=false when s is not a known role
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RolePlayer, RoleManager, RoleAdmin:
		return r, true
	}
	return "", false
}

// User Model
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                                    // Primary key
	Email        string    `gorm:"size:255;not null" json:"email"`                          // Email as typed at registration
	EmailKey     string    `gorm:"size:255;uniqueIndex;not null" json:"-"`                  // Normalized email for lookups
	PasswordHash string    `gorm:"not null" json:"-"`                                       // Bcrypt hash, never serialized
	Verified     bool      `gorm:"not null;default:false" json:"verified"`                  // Email confirmed
	Role         Role      `gorm:"type:varchar(16);not null;default:player" json:"role"`    // player, manager or admin
	Entries      []Entry   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"` // Owned entries
	CreatedAt    time.Time `json:"created_at"`                                              // Registration time
	UpdatedAt    time.Time `json:"updated_at"`                                              // Last change
}

// NormalizeEmail is the lookup key for an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
