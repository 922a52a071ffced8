package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindowTTLSeconds keeps per-second window keys alive just long enough
// to cover clock skew between instances.
const redisWindowTTLSeconds = 2

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter enforces the per-second burst limit across instances with a
// fixed one-second window in Redis. Only the burst check is shared; cooldown
// and quota stay local.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow reports whether the actor may proceed in the current second. Any
// Redis failure is returned so the caller can fall back to the local bucket.
func (l *RedisLimiter) Allow(ctx context.Context, actorID uint64, limit int, now time.Time) (bool, error) {
	if l == nil || l.client == nil || limit <= 0 {
		return true, nil
	}
	key := l.buildKey(actorID, now.Unix())
	res, errEval := redisIncrScript.Run(ctx, l.client, []string{key}, redisWindowTTLSeconds).Result()
	if errEval != nil {
		return false, errEval
	}
	count, ok := res.(int64)
	if !ok {
		return false, errors.New("rate limit redis: unexpected response type")
	}
	return count <= int64(limit), nil
}

func (l *RedisLimiter) buildKey(actorID uint64, sec int64) string {
	base := "u:" + strconv.FormatUint(actorID, 10) + ":" + strconv.FormatInt(sec, 10)
	if l.prefix == "" {
		return base
	}
	return fmt.Sprintf("%s:%s", l.prefix, base)
}
