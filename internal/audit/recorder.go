package audit

import (
	"context"
	"time"

	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/memstore"
	"github.com/carvista/rcview/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Event is the audit event type shared with the in-memory store.
type Event = memstore.Event

// durableWriteTimeout bounds each durable audit operation so a slow database
// cannot stall request handling.
const durableWriteTimeout = 5 * time.Second

// Recorder dual-writes audit events: the in-memory store synchronously
// (guaranteed), the database best-effort. A failed durable write is logged
// and swallowed, never surfaced to the caller. This keeps the daily-quota
// counter correct during outages at the cost of the two stores diverging in
// total history afterwards.
type Recorder struct {
	conn   *gorm.DB
	health *db.Health
	mem    *memstore.Store
	nowFn  func() time.Time
}

// NewRecorder constructs a Recorder. conn may be nil; events then live only
// in the in-memory store.
func NewRecorder(conn *gorm.DB, health *db.Health, mem *memstore.Store, nowFn func() time.Time) *Recorder {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Recorder{conn: conn, health: health, mem: mem, nowFn: nowFn}
}

// Record writes the event to both stores. Called exactly once per terminal
// search outcome, plus for unmask and admin events.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.nowFn().UTC()
	}
	r.mem.RecordAudit(e)

	if r.conn == nil || !r.health.Available() {
		return
	}

	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durableWriteTimeout)
	defer cancel()

	row := models.AuditLog{
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Action:     e.Action,
		Plate:      e.Plate,
		FromCache:  e.FromCache,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
	if errCreate := r.conn.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		r.health.MarkFailure(errCreate)
		log.WithError(errCreate).Warn("audit: durable write failed, event kept in memory only")
	}
}

// CountChargeableSince counts the actor's quota-relevant events after the
// cutoff. Queries the database when available and falls back to the
// in-memory store, which never undercounts because Record writes there
// unconditionally.
func (r *Recorder) CountChargeableSince(ctx context.Context, actorID uint64, since time.Time) int64 {
	if r.conn != nil && r.health.Available() {
		dbCtx, cancel := context.WithTimeout(ctx, durableWriteTimeout)
		defer cancel()

		var count int64
		errCount := r.conn.WithContext(dbCtx).
			Model(&models.AuditLog{}).
			Where("actor_id = ? AND action IN ? AND created_at > ?", actorID, models.ChargeableActions, since).
			Count(&count).Error
		if errCount == nil {
			return count
		}
		r.health.MarkFailure(errCount)
		log.WithError(errCount).Warn("audit: durable quota count failed, using in-memory store")
	}
	return r.mem.CountAuditSince(actorID, models.ChargeableActions, since)
}

// List returns a page of events newest first, plus the total count. An
// empty action matches everything.
func (r *Recorder) List(ctx context.Context, action models.AuditAction, page, size int) ([]Event, int64) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 200 {
		size = 50
	}

	if r.conn != nil && r.health.Available() {
		dbCtx, cancel := context.WithTimeout(ctx, durableWriteTimeout)
		defer cancel()

		var total int64
		query := r.conn.WithContext(dbCtx).Model(&models.AuditLog{})
		if action != "" {
			query = query.Where("action = ?", action)
		}
		if errCount := query.Session(&gorm.Session{}).Count(&total).Error; errCount == nil {
			var rows []models.AuditLog
			errFind := query.Session(&gorm.Session{}).
				Order("created_at DESC").
				Offset(page * size).
				Limit(size).
				Find(&rows).Error
			if errFind == nil {
				events := make([]Event, 0, len(rows))
				for _, row := range rows {
					events = append(events, eventFromRow(row))
				}
				return events, total
			}
			r.health.MarkFailure(errFind)
		} else {
			r.health.MarkFailure(errCount)
		}
		log.Warn("audit: durable listing failed, using in-memory store")
	}
	return r.mem.ListAudit(action, page, size)
}

// SearchStats aggregates search activity for the admin dashboard.
func (r *Recorder) SearchStats(ctx context.Context) memstore.SearchStats {
	if r.conn == nil || !r.health.Available() {
		return r.mem.Stats(r.nowFn())
	}

	dbCtx, cancel := context.WithTimeout(ctx, durableWriteTimeout)
	defer cancel()

	now := r.nowFn().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var stats memstore.SearchStats
	searches := r.conn.WithContext(dbCtx).Model(&models.AuditLog{}).Where("action IN ?", models.ChargeableActions)

	if err := searches.Session(&gorm.Session{}).Count(&stats.TotalSearches).Error; err != nil {
		r.health.MarkFailure(err)
		return r.mem.Stats(r.nowFn())
	}
	if err := searches.Session(&gorm.Session{}).Where("created_at > ?", startOfToday).Count(&stats.TodaySearches).Error; err != nil {
		r.health.MarkFailure(err)
		return r.mem.Stats(r.nowFn())
	}
	if err := searches.Session(&gorm.Session{}).Distinct("actor_email").Where("actor_email <> ''").Count(&stats.UniqueUsers).Error; err != nil {
		r.health.MarkFailure(err)
		return r.mem.Stats(r.nowFn())
	}
	if err := searches.Session(&gorm.Session{}).Distinct("plate").Where("plate <> ''").Count(&stats.UniquePlates).Error; err != nil {
		r.health.MarkFailure(err)
		return r.mem.Stats(r.nowFn())
	}

	var top []memstore.SearcherCount
	errTop := r.conn.WithContext(dbCtx).Model(&models.AuditLog{}).
		Select("actor_email AS email, COUNT(*) AS count").
		Where("action IN ? AND actor_email <> ''", models.ChargeableActions).
		Group("actor_email").
		Order("count DESC").
		Limit(10).
		Scan(&top).Error
	if errTop != nil {
		r.health.MarkFailure(errTop)
		return r.mem.Stats(r.nowFn())
	}
	stats.TopSearchers = top
	return stats
}

func eventFromRow(row models.AuditLog) Event {
	return Event{
		ActorID:    row.ActorID,
		ActorEmail: row.ActorEmail,
		Action:     row.Action,
		Plate:      row.Plate,
		FromCache:  row.FromCache,
		Detail:     row.Detail,
		CreatedAt:  row.CreatedAt,
	}
}
