package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/carvista/rcview/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the schema and seeds the singleton config row.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.VehicleCache{},
		&models.AuditLog{},
		&models.AppConfig{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return ensureDefaultConfig(conn)
}

// ensureDefaultConfig inserts the "global" config row when absent. UpdatedBy
// stays empty until an admin explicitly saves the config.
func ensureDefaultConfig(conn *gorm.DB) error {
	var existing models.AppConfig
	errFind := conn.Where("key = ?", models.AppConfigKey).First(&existing).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: read app config: %w", errFind)
	}

	row := models.AppConfig{
		Key:               models.AppConfigKey,
		CacheTTLDays:      3,
		BurstPerSecond:    5,
		DailyQuotaDefault: 100,
		UpdatedAt:         time.Now().UTC(),
	}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		return fmt.Errorf("db: seed app config: %w", errCreate)
	}
	return nil
}
