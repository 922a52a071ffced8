package memstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/carvista/rcview/internal/models"
)

func TestRecordAudit_AssignsIDAndCounts(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	e := store.RecordAudit(Event{ActorID: 1, Action: models.ActionSearch, CreatedAt: now})
	if e.ID == "" {
		t.Fatalf("expected minted event id")
	}
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionAPICall, CreatedAt: now})
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionCacheHit, CreatedAt: now})
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionUnmask, CreatedAt: now})
	store.RecordAudit(Event{ActorID: 2, Action: models.ActionSearch, CreatedAt: now})

	count := store.CountAuditSince(1, models.ChargeableActions, now.Add(-24*time.Hour))
	if count != 3 {
		t.Fatalf("expected 3 chargeable events for actor 1, got %d", count)
	}
}

func TestCountAuditSince_ExcludesOldEvents(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.RecordAudit(Event{ActorID: 1, Action: models.ActionSearch, CreatedAt: now.Add(-25 * time.Hour)})
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionSearch, CreatedAt: now.Add(-time.Hour)})

	count := store.CountAuditSince(1, models.ChargeableActions, now.Add(-24*time.Hour))
	if count != 1 {
		t.Fatalf("expected events older than 24h to be excluded, got %d", count)
	}
}

func TestCacheGet_ExpiredBehavesAsMiss(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.CachePut(CacheEntry{
		Plate:     "MH12AB1234",
		Payload:   map[string]any{"regNo": "MH12AB1234"},
		CachedAt:  now.Add(-72 * time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	})
	if _, ok := store.CacheGet("MH12AB1234", now); ok {
		t.Fatalf("expected expired entry to behave as a miss")
	}

	store.CachePut(CacheEntry{
		Plate:     "MH12AB1234",
		Payload:   map[string]any{"regNo": "MH12AB1234"},
		CachedAt:  now,
		ExpiresAt: now.Add(72 * time.Hour),
	})
	entry, ok := store.CacheGet("MH12AB1234", now)
	if !ok {
		t.Fatalf("expected live entry to be returned")
	}
	if entry.Payload["regNo"] != "MH12AB1234" {
		t.Fatalf("unexpected payload: %+v", entry.Payload)
	}
}

func TestCachePut_LastWriteWins(t *testing.T) {
	store := NewStore()
	now := time.Now()

	store.CachePut(CacheEntry{Plate: "KA01X1", Payload: map[string]any{"v": "old"}, ExpiresAt: now.Add(time.Hour)})
	store.CachePut(CacheEntry{Plate: "KA01X1", Payload: map[string]any{"v": "new"}, ExpiresAt: now.Add(time.Hour)})

	entry, ok := store.CacheGet("KA01X1", now)
	if !ok || entry.Payload["v"] != "new" {
		t.Fatalf("expected last write to win, got %+v ok=%v", entry, ok)
	}
}

func TestListAudit_NewestFirstPaged(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.RecordAudit(Event{
			ActorID:   1,
			Action:    models.ActionSearch,
			Detail:    fmt.Sprintf("e%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	pageOne, total := store.ListAudit("", 0, 2)
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(pageOne) != 2 || pageOne[0].Detail != "e4" || pageOne[1].Detail != "e3" {
		t.Fatalf("unexpected first page: %+v", pageOne)
	}

	beyond, _ := store.ListAudit("", 10, 2)
	if len(beyond) != 0 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestListAudit_FiltersByAction(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionSearch, CreatedAt: base})
	store.RecordAudit(Event{ActorID: 1, Action: models.ActionUnmask, CreatedAt: base.Add(time.Minute)})
	store.RecordAudit(Event{ActorID: 2, Action: models.ActionSearch, CreatedAt: base.Add(2 * time.Minute)})

	events, total := store.ListAudit(models.ActionSearch, 0, 10)
	if total != 2 || len(events) != 2 {
		t.Fatalf("expected 2 SEARCH events, got total=%d len=%d", total, len(events))
	}
	for _, e := range events {
		if e.Action != models.ActionSearch {
			t.Fatalf("unexpected action %s in filtered listing", e.Action)
		}
	}
}

func TestStats_AggregatesSearches(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	store.RecordAudit(Event{ActorID: 1, ActorEmail: "a@x.com", Action: models.ActionAPICall, Plate: "MH12AB1234", CreatedAt: now.Add(-time.Hour)})
	store.RecordAudit(Event{ActorID: 1, ActorEmail: "a@x.com", Action: models.ActionCacheHit, Plate: "MH12AB1234", CreatedAt: now.Add(-30 * time.Minute)})
	store.RecordAudit(Event{ActorID: 1, ActorEmail: "a@x.com", Action: models.ActionSearch, Plate: "KA05CD6789", CreatedAt: now.Add(-2 * time.Hour)})
	store.RecordAudit(Event{ActorID: 2, ActorEmail: "b@x.com", Action: models.ActionAPICall, Plate: "MH12AB1234", CreatedAt: now.Add(-26 * time.Hour)})
	// Not chargeable, must not count as a search.
	store.RecordAudit(Event{ActorID: 2, ActorEmail: "b@x.com", Action: models.ActionUnmask, Plate: "MH12AB1234", CreatedAt: now})

	stats := store.Stats(now)
	if stats.TotalSearches != 4 {
		t.Fatalf("expected 4 searches, got %d", stats.TotalSearches)
	}
	if stats.TodaySearches != 3 {
		t.Fatalf("expected 3 searches today, got %d", stats.TodaySearches)
	}
	if stats.UniqueUsers != 2 || stats.UniquePlates != 2 {
		t.Fatalf("unexpected unique counts: %+v", stats)
	}
	if len(stats.TopSearchers) == 0 || stats.TopSearchers[0].Email != "a@x.com" || stats.TopSearchers[0].Count != 3 {
		t.Fatalf("expected a@x.com as top searcher, got %+v", stats.TopSearchers)
	}
}

func TestStore_ConcurrentAppendAndPut(t *testing.T) {
	store := NewStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.RecordAudit(Event{ActorID: uint64(n % 3), Action: models.ActionSearch, CreatedAt: now})
			store.CachePut(CacheEntry{Plate: "P1", Payload: map[string]any{"n": n}, ExpiresAt: now.Add(time.Hour)})
		}(i)
	}
	wg.Wait()

	if _, total := store.ListAudit("", 0, 100); total != 20 {
		t.Fatalf("expected 20 events, got %d", total)
	}
	if _, ok := store.CacheGet("P1", now); !ok {
		t.Fatalf("expected entry present after concurrent puts")
	}
}
