package settings

import (
	"context"
	"testing"
	"time"

	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestSnapshot_DefaultsWithoutDatabase(t *testing.T) {
	store := NewStore(nil, db.NewHealth(nil, nil), nil)

	snap := store.Snapshot(context.Background())
	if snap.CacheTTLDays != DefaultCacheTTLDays {
		t.Fatalf("expected default ttl, got %d", snap.CacheTTLDays)
	}
	if snap.BurstPerSecond != DefaultBurstPerSecond {
		t.Fatalf("expected default burst, got %d", snap.BurstPerSecond)
	}
	if snap.DailyQuotaDefault != DefaultDailyQuotaDefault {
		t.Fatalf("expected default quota, got %d", snap.DailyQuotaDefault)
	}
	if snap.AdminConfigured() {
		t.Fatalf("expected adminConfigured=false for defaults")
	}
}

func TestSnapshot_ReadsSeededRow(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, db.NewHealth(conn, nil), nil)

	snap := store.Snapshot(context.Background())
	if snap.CacheTTLDays != 3 || snap.BurstPerSecond != 5 || snap.DailyQuotaDefault != 100 {
		t.Fatalf("unexpected seeded snapshot: %+v", snap)
	}
	if snap.AdminConfigured() {
		t.Fatalf("seed row must not count as admin configured")
	}
}

func TestUpdate_PersistsAndRefreshes(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, db.NewHealth(conn, nil), nil)

	updated, err := store.Update(context.Background(), 7, 10, 250, "admin@example.com")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CacheTTLDays != 7 || updated.BurstPerSecond != 10 || updated.DailyQuotaDefault != 250 {
		t.Fatalf("unexpected updated snapshot: %+v", updated)
	}
	if !updated.AdminConfigured() {
		t.Fatalf("expected adminConfigured=true after explicit save")
	}

	// The write must be visible to the next read without waiting for refresh.
	snap := store.Snapshot(context.Background())
	if snap.CacheTTLDays != 7 {
		t.Fatalf("expected refreshed snapshot, got %+v", snap)
	}

	var row models.AppConfig
	if errFind := conn.Where("key = ?", models.AppConfigKey).First(&row).Error; errFind != nil {
		t.Fatalf("read row: %v", errFind)
	}
	if row.UpdatedBy != "admin@example.com" {
		t.Fatalf("expected updated_by persisted, got %q", row.UpdatedBy)
	}
}

func TestUpdate_RejectsNonPositiveValues(t *testing.T) {
	store := NewStore(nil, db.NewHealth(nil, nil), nil)
	if _, err := store.Update(context.Background(), 0, 5, 100, "x"); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestSnapshot_RefreshAfterInterval(t *testing.T) {
	conn := openTestDB(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store := NewStore(conn, db.NewHealth(conn, nil), func() time.Time { return now })

	_ = store.Snapshot(context.Background())

	// Out-of-band write, as another process would do.
	if err := conn.Model(&models.AppConfig{}).
		Where("key = ?", models.AppConfigKey).
		Update("daily_quota_default", 42).Error; err != nil {
		t.Fatalf("out-of-band update: %v", err)
	}

	if snap := store.Snapshot(context.Background()); snap.DailyQuotaDefault != 100 {
		t.Fatalf("expected cached value inside refresh interval, got %d", snap.DailyQuotaDefault)
	}

	now = now.Add(refreshInterval + time.Second)
	if snap := store.Snapshot(context.Background()); snap.DailyQuotaDefault != 42 {
		t.Fatalf("expected reloaded value after interval, got %d", snap.DailyQuotaDefault)
	}
}
