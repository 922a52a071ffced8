package ratelimit

import (
	"context"
	"time"
)

// Reason explains an admission decision.
type Reason string

// Admission outcomes, checked in this order: burst, cooldown, daily quota.
const (
	ReasonOK            Reason = "OK"
	ReasonBurstExceeded Reason = "BURST_EXCEEDED"
	ReasonCooldown      Reason = "COOLDOWN"
	ReasonDailyQuota    Reason = "DAILY_QUOTA_EXCEEDED"
)

// AdmitResult describes the outcome of an admission check.
type AdmitResult struct {
	Allowed bool
	Reason  Reason
}

// QuotaCounter supplies the trailing-window chargeable action count. The
// audit recorder implements this; quota state is never tracked separately.
type QuotaCounter interface {
	CountChargeableSince(ctx context.Context, actorID uint64, since time.Time) int64
}
