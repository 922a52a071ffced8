package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carvista/rcview/internal/models"
	"github.com/google/uuid"
)

// Event is an audit event as held by the in-memory store. The durable store
// assigns its own row IDs; here IDs are minted on write.
type Event struct {
	ID         string
	ActorID    uint64
	ActorEmail string
	Action     models.AuditAction
	Plate      string
	FromCache  bool
	Detail     string
	CreatedAt  time.Time
}

// CacheEntry is a cached lookup result held in memory.
type CacheEntry struct {
	Plate     string
	Payload   map[string]any
	CachedAt  time.Time
	ExpiresAt time.Time
}

// SearcherCount pairs a user email with a search count.
type SearcherCount struct {
	Email string `json:"email"`
	Count int64  `json:"count"`
}

// SearchStats aggregates search activity for the admin dashboard.
type SearchStats struct {
	TotalSearches  int64           `json:"totalSearches"`
	TodaySearches  int64           `json:"todaySearches"`
	UniqueUsers    int64           `json:"uniqueUsers"`
	UniquePlates   int64           `json:"uniquePlates"`
	TopSearchers   []SearcherCount `json:"topSearchers"`
}

// Store is the process-local fallback for audit events and cached results.
// It is the only store when no database is configured, and the guaranteed
// write path for audit events when the database is transiently failing. No
// persistence across restarts.
type Store struct {
	mu     sync.RWMutex
	events []Event
	cache  map[string]CacheEntry
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{cache: make(map[string]CacheEntry)}
}

// RecordAudit appends an event, minting an ID when absent. Events are never
// mutated or removed afterwards.
func (s *Store) RecordAudit(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return e
}

// CountAuditSince counts events by the actor with one of the given actions
// strictly after the cutoff.
func (s *Store) CountAuditSince(actorID uint64, actions []models.AuditAction, since time.Time) int64 {
	actionSet := make(map[models.AuditAction]struct{}, len(actions))
	for _, a := range actions {
		actionSet[a] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.events {
		if e.ActorID != actorID {
			continue
		}
		if _, ok := actionSet[e.Action]; !ok {
			continue
		}
		if e.CreatedAt.After(since) {
			count++
		}
	}
	return count
}

// ListAudit returns a page of events newest first, plus the total count.
// An empty action matches everything.
func (s *Store) ListAudit(action models.AuditAction, page, size int) ([]Event, int64) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 50
	}

	s.mu.RLock()
	sorted := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if action != "" && e.Action != action {
			continue
		}
		sorted = append(sorted, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	total := int64(len(sorted))
	from := page * size
	if from >= len(sorted) {
		return nil, total
	}
	to := from + size
	if to > len(sorted) {
		to = len(sorted)
	}
	return sorted[from:to], total
}

func isChargeable(action models.AuditAction) bool {
	for _, a := range models.ChargeableActions {
		if a == action {
			return true
		}
	}
	return false
}

// Stats aggregates search activity over the chargeable actions. Today is
// measured from UTC midnight.
func (s *Store) Stats(now time.Time) SearchStats {
	startOfToday := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats SearchStats
	users := make(map[string]int64)
	plates := make(map[string]struct{})
	for _, e := range s.events {
		if !isChargeable(e.Action) {
			continue
		}
		stats.TotalSearches++
		if e.CreatedAt.After(startOfToday) {
			stats.TodaySearches++
		}
		if email := strings.TrimSpace(e.ActorEmail); email != "" {
			users[email]++
		}
		if e.Plate != "" {
			plates[e.Plate] = struct{}{}
		}
	}
	stats.UniqueUsers = int64(len(users))
	stats.UniquePlates = int64(len(plates))

	top := make([]SearcherCount, 0, len(users))
	for email, count := range users {
		top = append(top, SearcherCount{Email: email, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Email < top[j].Email
	})
	if len(top) > 10 {
		top = top[:10]
	}
	stats.TopSearchers = top
	return stats
}

// CacheGet returns the live entry for the plate. An expired entry behaves
// exactly like a miss.
func (s *Store) CacheGet(plate string, now time.Time) (CacheEntry, bool) {
	s.mu.RLock()
	entry, ok := s.cache[plate]
	s.mu.RUnlock()
	if !ok || !entry.ExpiresAt.After(now) {
		return CacheEntry{}, false
	}
	return entry, true
}

// CachePut stores an entry, overwriting any previous one for the plate.
func (s *Store) CachePut(entry CacheEntry) {
	if entry.Plate == "" {
		return
	}
	s.mu.Lock()
	s.cache[entry.Plate] = entry
	s.mu.Unlock()
}
