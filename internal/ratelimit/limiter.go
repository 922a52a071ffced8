package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/carvista/rcview/internal/settings"
	log "github.com/sirupsen/logrus"
)

// CooldownInterval is the minimum spacing between consecutive admitted
// requests from one actor, regardless of remaining burst tokens.
const CooldownInterval = 2000 * time.Millisecond

// quotaWindow is the trailing window for daily quota counting.
const quotaWindow = 24 * time.Hour

// redisBreakerDuration is how long the shared backend is skipped after a
// Redis failure.
const redisBreakerDuration = 30 * time.Second

// Limiter enforces the three per-actor admission policies in fixed order:
// burst token bucket, cooldown spacing, trailing-24h daily quota. Burst and
// cooldown are process-local and independent of durable storage; the quota
// check reads the audit recorder, which degrades on its own.
type Limiter struct {
	settings *settings.Store
	quota    QuotaCounter
	buckets  *bucketStore
	redis    *RedisLimiter
	nowFn    func() time.Time

	mu           sync.Mutex
	lastAdmitted map[uint64]time.Time
	breakerUntil time.Time
}

// NewLimiter constructs a Limiter. redisLimiter may be nil; the burst check
// then always uses the local bucket.
func NewLimiter(settingsStore *settings.Store, quota QuotaCounter, redisLimiter *RedisLimiter, nowFn func() time.Time) *Limiter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Limiter{
		settings:     settingsStore,
		quota:        quota,
		buckets:      newBucketStore(),
		redis:        redisLimiter,
		nowFn:        nowFn,
		lastAdmitted: make(map[uint64]time.Time),
	}
}

// Admit runs the admission checks for the actor. The cooldown timestamp is
// updated only on actual admission, so rejected attempts cannot reset
// another actor's or their own cooldown clock.
func (l *Limiter) Admit(ctx context.Context, actorID uint64) AdmitResult {
	now := l.nowFn()
	snap := l.settings.Snapshot(ctx)

	if !l.allowBurst(ctx, actorID, snap.BurstPerSecond, now) {
		return AdmitResult{Reason: ReasonBurstExceeded}
	}

	l.mu.Lock()
	last, seen := l.lastAdmitted[actorID]
	l.mu.Unlock()
	if seen && now.Sub(last) < CooldownInterval {
		return AdmitResult{Reason: ReasonCooldown}
	}

	count := l.quota.CountChargeableSince(ctx, actorID, now.Add(-quotaWindow))
	if count >= int64(snap.DailyQuotaDefault) {
		return AdmitResult{Reason: ReasonDailyQuota}
	}

	l.mu.Lock()
	l.lastAdmitted[actorID] = now
	l.mu.Unlock()
	return AdmitResult{Allowed: true, Reason: ReasonOK}
}

// allowBurst consults the shared Redis window when configured and healthy,
// otherwise the local token bucket.
func (l *Limiter) allowBurst(ctx context.Context, actorID uint64, perSecond int, now time.Time) bool {
	if l.redis != nil && !l.isBreakerActive(now) {
		allowed, errAllow := l.redis.Allow(ctx, actorID, perSecond, now)
		if errAllow == nil {
			return allowed
		}
		l.tripBreaker(errAllow, now)
	}
	return l.buckets.allow(actorID, perSecond, now)
}

func (l *Limiter) isBreakerActive(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.breakerUntil.IsZero() {
		return false
	}
	if now.Before(l.breakerUntil) {
		return true
	}
	l.breakerUntil = time.Time{}
	return false
}

func (l *Limiter) tripBreaker(err error, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.breakerUntil.IsZero() && now.Before(l.breakerUntil) {
		return
	}
	l.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to local bucket")
}

// RemainingToday returns how many chargeable actions the actor has left in
// the trailing 24 hours.
func (l *Limiter) RemainingToday(ctx context.Context, actorID uint64) int64 {
	snap := l.settings.Snapshot(ctx)
	count := l.quota.CountChargeableSince(ctx, actorID, l.nowFn().Add(-quotaWindow))
	remaining := int64(snap.DailyQuotaDefault) - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
