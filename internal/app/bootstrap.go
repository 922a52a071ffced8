package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/config"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/security"
)

// seedBootstrapAdmin creates the first SUPER_ADMIN account on an empty user
// table. A populated table is left untouched; missing credentials on an
// empty table are a warning, not an error, so the server can still come up
// for inspection.
func seedBootstrapAdmin(ctx context.Context, conn *gorm.DB, admin config.BootstrapAdmin) error {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("count users: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	if !admin.Configured() {
		log.Warnf("no users exist and no bootstrap admin configured (set %s and %s)", config.EnvAdminEmail, config.EnvAdminPassword)
		return nil
	}

	hash, errHash := security.HashPassword(admin.Password)
	if errHash != nil {
		return fmt.Errorf("hash bootstrap password: %w", errHash)
	}
	now := time.Now().UTC()
	user := models.User{
		Email:     admin.Email,
		Name:      "Bootstrap Admin",
		Password:  hash,
		Role:      models.RoleSuperAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return fmt.Errorf("create bootstrap admin: %w", errCreate)
	}
	log.Infof("created bootstrap admin %s", user.Email)
	return nil
}
