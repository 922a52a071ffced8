package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketEntry pairs a token bucket with the per-second rate it was built
// for, so a config change rebuilds the bucket.
type bucketEntry struct {
	lim       *rate.Limiter
	perSecond int
}

// bucketStore holds per-actor token buckets, created lazily on first use.
// Entries are never evicted: actor cardinality is bounded by the provisioned
// user population.
type bucketStore struct {
	mu      sync.Mutex
	entries map[uint64]*bucketEntry
}

func newBucketStore() *bucketStore {
	return &bucketStore{entries: make(map[uint64]*bucketEntry)}
}

// allow consumes one token from the actor's bucket if available. The bucket
// refills at perSecond tokens per second with capacity perSecond.
func (s *bucketStore) allow(actorID uint64, perSecond int, now time.Time) bool {
	if perSecond < 1 {
		perSecond = 1
	}

	s.mu.Lock()
	entry := s.entries[actorID]
	if entry == nil || entry.perSecond != perSecond {
		entry = &bucketEntry{
			lim:       rate.NewLimiter(rate.Limit(perSecond), perSecond),
			perSecond: perSecond,
		}
		s.entries[actorID] = entry
	}
	lim := entry.lim
	s.mu.Unlock()

	return lim.AllowN(now, 1)
}
