package app

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/config"
	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/security"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestSeedBootstrapAdmin_EmptyTable(t *testing.T) {
	conn := openTestDB(t)
	admin := config.BootstrapAdmin{Email: "root@example.com", Password: "secret123"}

	if errSeed := seedBootstrapAdmin(context.Background(), conn, admin); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}

	var user models.User
	if errFind := conn.Where("email = ?", "root@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("expected seeded admin: %v", errFind)
	}
	if user.Role != models.RoleSuperAdmin || !user.Active {
		t.Fatalf("unexpected seeded user: %+v", user)
	}
	if !security.CheckPassword(user.Password, "secret123") {
		t.Fatalf("expected hashed password to verify")
	}
}

func TestSeedBootstrapAdmin_SkipsPopulatedTable(t *testing.T) {
	conn := openTestDB(t)
	if errCreate := conn.Create(&models.User{Email: "existing@example.com", Password: "x", Role: models.RoleUser, Active: true}).Error; errCreate != nil {
		t.Fatalf("create existing user: %v", errCreate)
	}

	admin := config.BootstrapAdmin{Email: "root@example.com", Password: "secret123"}
	if errSeed := seedBootstrapAdmin(context.Background(), conn, admin); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}

	var count int64
	conn.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected populated table untouched, got %d users", count)
	}
}

func TestSeedBootstrapAdmin_MissingCredentialsIsNotFatal(t *testing.T) {
	conn := openTestDB(t)
	if errSeed := seedBootstrapAdmin(context.Background(), conn, config.BootstrapAdmin{}); errSeed != nil {
		t.Fatalf("expected missing credentials to be non-fatal, got %v", errSeed)
	}
}
