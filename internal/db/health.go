package db

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// breakerDuration is how long the durable store is considered down after a
// failure before operations are attempted against it again.
const breakerDuration = 30 * time.Second

// Health is the availability signal for the durable store. Store operations
// report failures here; request handling reads Available once per request to
// pick the durable or the in-memory path, instead of using errors as control
// flow.
type Health struct {
	conn  *gorm.DB
	nowFn func() time.Time

	mu        sync.Mutex
	downUntil time.Time
}

// NewHealth constructs a Health signal. A nil connection means the store is
// permanently unavailable (degraded-only deployment).
func NewHealth(conn *gorm.DB, nowFn func() time.Time) *Health {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Health{conn: conn, nowFn: nowFn}
}

// Available reports whether durable operations should be attempted. After a
// reported failure it stays false for the breaker window, then flips back to
// true; the next operation either succeeds or trips the breaker again.
func (h *Health) Available() bool {
	if h == nil || h.conn == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.downUntil.IsZero() {
		return true
	}
	if h.nowFn().Before(h.downUntil) {
		return false
	}
	h.downUntil = time.Time{}
	return true
}

// MarkFailure trips the breaker after a durable store error.
func (h *Health) MarkFailure(err error) {
	if h == nil || err == nil {
		return
	}
	now := h.nowFn()
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.downUntil.IsZero() && now.Before(h.downUntil) {
		return
	}
	h.downUntil = now.Add(breakerDuration)
	log.WithError(err).Warn("db: durable store unavailable, using in-memory fallback")
}

// Ping verifies connectivity, updating the breaker state accordingly. A
// successful ping clears an active breaker early.
func (h *Health) Ping() bool {
	if h == nil || h.conn == nil {
		return false
	}
	sqlDB, err := h.conn.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		h.MarkFailure(err)
		return false
	}
	h.mu.Lock()
	h.downUntil = time.Time{}
	h.mu.Unlock()
	return true
}
