package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/masking"
	"github.com/carvista/rcview/internal/memstore"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/ratelimit"
	"github.com/carvista/rcview/internal/settings"
	"github.com/carvista/rcview/internal/vahan"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// durableQueryTimeout bounds each durable cache operation. Request contexts
// carry no deadline, so without this a hung database would stall the request
// instead of surfacing an error that trips the health breaker.
const durableQueryTimeout = 5 * time.Second

// Actor is the authenticated identity performing a search.
type Actor struct {
	ID    uint64
	Email string
}

// Outcome classifies a search response for status mapping at the HTTP layer.
type Outcome int

// Outcome constants; every terminal orchestrator state maps to one.
const (
	OutcomeOK Outcome = iota
	OutcomeInvalid
	OutcomeRateLimited
	OutcomeQuotaExceeded
	OutcomeProviderError
	OutcomeNoData
)

// Response is the search result returned to the caller. Plate fields and
// plate-bearing payload fields are already masked.
type Response struct {
	Outcome            Outcome        `json:"-"`
	Success            bool           `json:"success"`
	FromCache          bool           `json:"fromCache"`
	RegistrationNumber string         `json:"registrationNumber,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
	ErrorMessage       string         `json:"errorMessage,omitempty"`
}

// Audit detail strings; each terminal outcome has a distinct one.
const (
	DetailBurst    = "RATE_LIMIT_PER_SECOND"
	DetailCooldown = "SEARCH_COOLDOWN"
	DetailQuota    = "DAILY_LIMIT_REACHED"
	DetailInvalid  = "INVALID_INPUT"
	DetailNoData   = "NO_DATA"

	detailProviderErrorPrefix = "API_ERROR: "
	detailUnmask              = "User acknowledged sensitive-data warning and unmasked registration number"
)

// User-facing messages per rejection kind. Burst and cooldown share the
// generic "slow down" wording; the quota message is distinct.
const (
	msgSlowDown   = "Too many requests. Please slow down."
	msgCooldown   = "Please wait a moment before searching again."
	msgQuota      = "Daily search limit reached. Try again tomorrow."
	msgInvalid    = "Invalid registration number"
	msgNoData     = "No data found for this registration number. The number may be invalid or not in the Vahan database."
)

// LookupClient is the external provider capability consumed by the
// orchestrator.
type LookupClient interface {
	Search(ctx context.Context, plate string) vahan.Result
}

// Service sequences a search request: admission, validation, cache, external
// fetch, persistence, audit, masking. It owns no long-lived state.
type Service struct {
	conn     *gorm.DB
	health   *db.Health
	mem      *memstore.Store
	settings *settings.Store
	limiter  *ratelimit.Limiter
	recorder *audit.Recorder
	client   LookupClient
	nowFn    func() time.Time
}

// NewService constructs the search orchestrator.
func NewService(conn *gorm.DB, health *db.Health, mem *memstore.Store, settingsStore *settings.Store, limiter *ratelimit.Limiter, recorder *audit.Recorder, client LookupClient, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{
		conn:     conn,
		health:   health,
		mem:      mem,
		settings: settingsStore,
		limiter:  limiter,
		recorder: recorder,
		client:   client,
		nowFn:    nowFn,
	}
}

// NormalizePlate trims, uppercases, and strips all whitespace. The result is
// the key for cache rows and audit events.
func NormalizePlate(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(raw))), "")
}

// Search runs the full pipeline for one request. Every terminal branch
// records exactly one audit event before returning.
func (s *Service) Search(ctx context.Context, actor Actor, rawPlate string) Response {
	now := s.nowFn()
	normalized := NormalizePlate(rawPlate)

	if admit := s.limiter.Admit(ctx, actor.ID); !admit.Allowed {
		switch admit.Reason {
		case ratelimit.ReasonBurstExceeded:
			s.record(ctx, actor, models.ActionSearch, normalized, false, DetailBurst)
			return Response{Outcome: OutcomeRateLimited, ErrorMessage: msgSlowDown}
		case ratelimit.ReasonCooldown:
			s.record(ctx, actor, models.ActionSearch, normalized, false, DetailCooldown)
			return Response{Outcome: OutcomeRateLimited, ErrorMessage: msgCooldown}
		default:
			s.record(ctx, actor, models.ActionSearch, normalized, false, DetailQuota)
			return Response{Outcome: OutcomeQuotaExceeded, ErrorMessage: msgQuota}
		}
	}

	if normalized == "" {
		s.record(ctx, actor, models.ActionSearch, normalized, false, DetailInvalid)
		return Response{Outcome: OutcomeInvalid, ErrorMessage: msgInvalid}
	}

	// Durable-vs-degraded routing is decided here, once per request. A
	// failure mid-request flips the remainder of this request to the
	// in-memory store and trips the health breaker for later requests.
	durable := s.health.Available()

	if payload, hit := s.cacheGet(ctx, normalized, now, &durable); hit {
		s.record(ctx, actor, models.ActionCacheHit, normalized, true, "")
		return Response{
			Outcome:            OutcomeOK,
			Success:            true,
			FromCache:          true,
			RegistrationNumber: masking.Plate(normalized),
			Data:               masking.Fields(payload),
		}
	}

	result := s.client.Search(ctx, rawPlate)
	if result.ErrorMessage != "" {
		s.record(ctx, actor, models.ActionSearch, normalized, false, detailProviderErrorPrefix+result.ErrorMessage)
		return Response{Outcome: OutcomeProviderError, RegistrationNumber: normalized, ErrorMessage: result.ErrorMessage}
	}
	if result.Data == nil {
		s.record(ctx, actor, models.ActionSearch, normalized, false, DetailNoData)
		return Response{Outcome: OutcomeNoData, RegistrationNumber: normalized, ErrorMessage: msgNoData}
	}

	// TTL is read from the live config at write time; already-cached
	// entries keep the expiry they were written with.
	ttlDays := s.settings.Snapshot(ctx).CacheTTLDays
	if ttlDays < 1 {
		ttlDays = 1
	}
	entry := memstore.CacheEntry{
		Plate:     normalized,
		Payload:   result.Data,
		CachedAt:  now,
		ExpiresAt: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
	}
	s.cachePut(ctx, entry, &durable)
	s.record(ctx, actor, models.ActionAPICall, normalized, false, "")

	return Response{
		Outcome:            OutcomeOK,
		Success:            true,
		RegistrationNumber: masking.Plate(normalized),
		Data:               masking.Fields(result.Data),
	}
}

// Unmask returns the full normalized registration number. The reveal is an
// audited action; the audit write's durable half may fail without blocking
// the response.
func (s *Service) Unmask(ctx context.Context, actor Actor, rawPlate string) (string, bool) {
	normalized := NormalizePlate(rawPlate)
	if normalized == "" {
		return "", false
	}
	s.record(ctx, actor, models.ActionUnmask, normalized, false, detailUnmask)
	return normalized, true
}

// RateLimitInfo reports the actor's remaining daily allowance.
type RateLimitInfo struct {
	RemainingSearchesToday int64 `json:"remainingSearchesToday"`
	DailyLimit             int   `json:"dailyLimit"`
	AdminConfigured        bool  `json:"adminConfigured"`
}

// RateLimitInfo returns quota usage for the rate-limit endpoint.
func (s *Service) RateLimitInfo(ctx context.Context, actor Actor) RateLimitInfo {
	snap := s.settings.Snapshot(ctx)
	return RateLimitInfo{
		RemainingSearchesToday: s.limiter.RemainingToday(ctx, actor.ID),
		DailyLimit:             snap.DailyQuotaDefault,
		AdminConfigured:        snap.AdminConfigured(),
	}
}

func (s *Service) record(ctx context.Context, actor Actor, action models.AuditAction, plate string, fromCache bool, detail string) {
	s.recorder.Record(ctx, audit.Event{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		Plate:      plate,
		FromCache:  fromCache,
		Detail:     detail,
	})
}

// cacheGet reads the live cache entry for the plate. An expired or missing
// row is a miss; the orchestrator cannot tell the two apart.
func (s *Service) cacheGet(ctx context.Context, normalized string, now time.Time, durable *bool) (map[string]any, bool) {
	if *durable {
		dbCtx, cancel := context.WithTimeout(ctx, durableQueryTimeout)
		defer cancel()

		var row models.VehicleCache
		errFind := s.conn.WithContext(dbCtx).
			Where("plate_normalized = ? AND expires_at > ?", normalized, now).
			First(&row).Error
		if errFind == nil {
			return map[string]any(row.Payload), true
		}
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false
		}
		s.health.MarkFailure(errFind)
		*durable = false
	}
	entry, ok := s.mem.CacheGet(normalized, now)
	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

// cachePut stores the entry, overwriting any previous row for the plate.
func (s *Service) cachePut(ctx context.Context, entry memstore.CacheEntry, durable *bool) {
	if *durable {
		dbCtx, cancel := context.WithTimeout(ctx, durableQueryTimeout)
		defer cancel()

		row := models.VehicleCache{
			PlateNormalized: entry.Plate,
			Payload:         datatypes.JSONMap(entry.Payload),
			CachedAt:        entry.CachedAt,
			ExpiresAt:       entry.ExpiresAt,
		}
		errUpsert := s.conn.WithContext(dbCtx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate_normalized"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "cached_at", "expires_at"}),
		}).Create(&row).Error
		if errUpsert == nil {
			return
		}
		s.health.MarkFailure(errUpsert)
		*durable = false
	}
	s.mem.CachePut(entry)
}
