package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupKeyPrefix = "dedup:graph-message:"

// Deduper remembers message ids so repeated webhook notifications are processed once.
type Deduper interface {
	// AcquireOnce returns true the first time id is seen within the TTL.
	AcquireOnce(ctx context.Context, id string) bool
}

// RedisDeduper stores seen ids as expiring Redis keys.
type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDeduper creates a deduper backed by rdb.
func NewRedisDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce fails open: when Redis is unreachable the message is processed, and ticket
// fingerprint dedup still prevents a second ticket.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, id string) bool {
	key := dedupKeyPrefix + id

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("redis dedup check failed, allowing processing",
			zap.String("message_id", id),
			zap.Error(err))
		return true
	}
	if !ok {
		d.logger.Info("skipped duplicated notification",
			zap.String("message_id", id),
			zap.String("dedup_key", key))
	}
	return ok
}

// MemoryDeduper is the process-local deduper used when Redis is not configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryDeduper creates an in-process deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) AcquireOnce(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, key)
		}
	}
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	return true
}
