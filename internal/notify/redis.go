package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the multi-instance variant of WindowLimiter: a sliding
// window on a sorted set per recipient. On Redis errors it fails open — a
// spare email beats a lost one.
type RedisLimiter struct {
	rdb    *redis.Client
	window time.Duration
	limit  int
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration, limit int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, limit: limit}
}

func (l *RedisLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	now := time.Now()
	rkey := "notify:limit:" + key
	cutoff := now.Add(-l.window).UnixNano()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", cutoff))
	card := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[notify] redis limiter: %v", err)
		return true
	}
	if card.Val() >= int64(l.limit) {
		return false
	}

	pipe = l.rdb.TxPipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, rkey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[notify] redis limiter: %v", err)
	}
	return true
}
