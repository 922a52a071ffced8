package models

import "time"

// AuditAction identifies the kind of event recorded in the audit trail.
type AuditAction string

// AuditAction constants cover search outcomes and admin events.
const (
	// ActionSearch marks a search attempt (including rejected ones, see Detail).
	ActionSearch AuditAction = "SEARCH"
	// ActionCacheHit marks a search served from the result cache.
	ActionCacheHit AuditAction = "CACHE_HIT"
	// ActionAPICall marks a chargeable call to the external lookup provider.
	ActionAPICall AuditAction = "API_CALL"
	// ActionUnmask marks a user revealing a masked registration number.
	ActionUnmask AuditAction = "UNMASK"
	// ActionUserLogin marks a successful sign-in.
	ActionUserLogin AuditAction = "USER_LOGIN"
	// ActionUserAdded marks a user being provisioned or re-enabled.
	ActionUserAdded AuditAction = "USER_ADDED"
	// ActionUserRemoved marks a user being deactivated.
	ActionUserRemoved AuditAction = "USER_REMOVED"
	// ActionUserRoleChanged marks a role assignment change.
	ActionUserRoleChanged AuditAction = "USER_ROLE_CHANGED"
	// ActionConfigUpdated marks an admin config save.
	ActionConfigUpdated AuditAction = "CONFIG_UPDATED"
)

// ChargeableActions count against the per-actor daily quota.
var ChargeableActions = []AuditAction{ActionSearch, ActionCacheHit, ActionAPICall}

// AuditLog is an append-only record of a search outcome or admin event.
// Rows are never updated or deleted.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ActorID    uint64 `gorm:"not null;index"` // Acting user ID.
	ActorEmail string `gorm:"type:text"`      // Acting user email at event time.

	Action AuditAction `gorm:"type:text;not null;index"` // Event kind.

	Plate     string `gorm:"type:text"`              // Normalized registration number, if any.
	FromCache bool   `gorm:"not null;default:false"` // Whether the result came from cache.
	Detail    string `gorm:"type:text"`              // Outcome-specific detail string.

	CreatedAt time.Time `gorm:"not null;index"` // Event timestamp; quota counting orders by this.
}
