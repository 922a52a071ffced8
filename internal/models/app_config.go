package models

import "time"

// AppConfigKey is the primary key of the single config row.
const AppConfigKey = "global"

// AppConfig is the singleton tunables row. The settings store falls back to
// hardcoded defaults when this row (or the database) is unavailable.
type AppConfig struct {
	Key string `gorm:"primaryKey;type:text"` // Always AppConfigKey.

	CacheTTLDays      int `gorm:"not null;default:3"`   // Result cache TTL in days.
	BurstPerSecond    int `gorm:"not null;default:5"`   // Per-user burst limit per second.
	DailyQuotaDefault int `gorm:"not null;default:100"` // Per-user chargeable actions per day.

	UpdatedAt time.Time `gorm:"not null"` // Last save timestamp.
	UpdatedBy string    `gorm:"type:text"` // Admin email; empty until an admin explicitly saves.
}
