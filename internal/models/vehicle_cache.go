package models

import (
	"time"

	"gorm.io/datatypes"
)

// VehicleCache holds a previously fetched lookup result. At most one live
// row exists per normalized plate; a re-fetch after expiry overwrites it.
type VehicleCache struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PlateNormalized string `gorm:"type:text;not null;uniqueIndex"` // Normalized registration number.

	Payload datatypes.JSONMap `gorm:"type:json"` // Provider response data.

	CachedAt  time.Time `gorm:"not null"`       // Write timestamp.
	ExpiresAt time.Time `gorm:"not null;index"` // CachedAt + TTL at write time; frozen thereafter.
}
