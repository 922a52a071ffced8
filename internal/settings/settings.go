package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Hardcoded defaults served when the config row or the database is
// unavailable.
const (
	DefaultCacheTTLDays      = 3
	DefaultBurstPerSecond    = 5
	DefaultDailyQuotaDefault = 100
)

// refreshInterval bounds how long a snapshot may serve without re-reading
// the database, so out-of-process config writes eventually become visible.
const refreshInterval = time.Minute

// durableQueryTimeout bounds each config read and write. Request contexts
// carry no deadline; a hung database must fail the query, not the request.
const durableQueryTimeout = 5 * time.Second

// Snapshot is the current view of the singleton tunables.
type Snapshot struct {
	CacheTTLDays      int
	BurstPerSecond    int
	DailyQuotaDefault int
	UpdatedAt         time.Time
	UpdatedBy         string
}

// AdminConfigured reports whether an admin has explicitly saved the config.
func (s Snapshot) AdminConfigured() bool {
	return s.UpdatedBy != ""
}

// Store caches the app_config singleton behind a read-mostly lock. Reads hit
// the cached snapshot; a successful Update refreshes it synchronously.
type Store struct {
	conn   *gorm.DB
	health *db.Health
	nowFn  func() time.Time

	mu        sync.RWMutex
	snapshot  Snapshot
	loadedAt  time.Time
	hasLoaded bool
}

// NewStore constructs a settings store. conn may be nil for degraded-only
// deployments; defaults are served then.
func NewStore(conn *gorm.DB, health *db.Health, nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Store{conn: conn, health: health, nowFn: nowFn}
}

func defaultSnapshot() Snapshot {
	return Snapshot{
		CacheTTLDays:      DefaultCacheTTLDays,
		BurstPerSecond:    DefaultBurstPerSecond,
		DailyQuotaDefault: DefaultDailyQuotaDefault,
	}
}

// Snapshot returns the current config view, re-reading the database when the
// cached copy is stale. Never fails: falls back to defaults.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	now := s.nowFn()

	s.mu.RLock()
	if s.hasLoaded && now.Sub(s.loadedAt) < refreshInterval {
		snap := s.snapshot
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	snap := s.load(ctx)

	s.mu.Lock()
	s.snapshot = snap
	s.loadedAt = now
	s.hasLoaded = true
	s.mu.Unlock()
	return snap
}

// load reads the singleton row, keeping in-memory overrides when durable
// storage cannot serve it.
func (s *Store) load(ctx context.Context) Snapshot {
	if s.conn == nil || !s.health.Available() {
		return s.currentOrDefault()
	}

	dbCtx, cancel := context.WithTimeout(ctx, durableQueryTimeout)
	defer cancel()

	var row models.AppConfig
	errFind := s.conn.WithContext(dbCtx).Where("key = ?", models.AppConfigKey).First(&row).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			s.health.MarkFailure(errFind)
			log.WithError(errFind).Warn("settings: config read failed, serving cached values")
		}
		return s.currentOrDefault()
	}
	return Snapshot{
		CacheTTLDays:      row.CacheTTLDays,
		BurstPerSecond:    row.BurstPerSecond,
		DailyQuotaDefault: row.DailyQuotaDefault,
		UpdatedAt:         row.UpdatedAt,
		UpdatedBy:         row.UpdatedBy,
	}
}

func (s *Store) currentOrDefault() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hasLoaded {
		return s.snapshot
	}
	return defaultSnapshot()
}

// Update persists new tunables and refreshes the snapshot so the write is
// immediately visible. Without durable storage the update applies in-memory
// only, matching degraded-mode semantics elsewhere.
func (s *Store) Update(ctx context.Context, cacheTTLDays, burstPerSecond, dailyQuota int, updatedBy string) (Snapshot, error) {
	if cacheTTLDays < 1 || burstPerSecond < 1 || dailyQuota < 1 {
		return Snapshot{}, fmt.Errorf("settings: values must be positive")
	}

	snap := Snapshot{
		CacheTTLDays:      cacheTTLDays,
		BurstPerSecond:    burstPerSecond,
		DailyQuotaDefault: dailyQuota,
		UpdatedAt:         s.nowFn().UTC(),
		UpdatedBy:         updatedBy,
	}

	if s.conn != nil && s.health.Available() {
		row := models.AppConfig{
			Key:               models.AppConfigKey,
			CacheTTLDays:      snap.CacheTTLDays,
			BurstPerSecond:    snap.BurstPerSecond,
			DailyQuotaDefault: snap.DailyQuotaDefault,
			UpdatedAt:         snap.UpdatedAt,
			UpdatedBy:         snap.UpdatedBy,
		}
		dbCtx, cancel := context.WithTimeout(ctx, durableQueryTimeout)
		defer cancel()

		errSave := s.conn.WithContext(dbCtx).Save(&row).Error
		if errSave != nil {
			s.health.MarkFailure(errSave)
			return Snapshot{}, fmt.Errorf("settings: save config: %w", errSave)
		}
	}

	s.mu.Lock()
	s.snapshot = snap
	s.loadedAt = s.nowFn()
	s.hasLoaded = true
	s.mu.Unlock()
	return snap, nil
}
