package models

import "time"

// User roles ordered by privilege.
const (
	// RoleUser can search vehicles.
	RoleUser = "USER"
	// RoleAdmin can additionally manage users and config.
	RoleAdmin = "ADMIN"
	// RoleSuperAdmin can additionally change user roles.
	RoleSuperAdmin = "SUPER_ADMIN"
)

// ValidRole reports whether the given role name is known.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// User represents a provisioned account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Name  string `gorm:"type:text"`                      // Display name.
	Role  string `gorm:"type:text;not null;default:USER"` // Assigned role.

	Password string `gorm:"type:text"` // Hashed password; empty for SSO-only accounts.

	Active bool `gorm:"not null;default:true"` // Whether the user can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
