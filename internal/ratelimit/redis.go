package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// RedisLimiter is a Limiter backed by Redis, for deployments with more than
// one process. Counter keys expire at local midnight. If Redis is unreachable
// the limiter fails open: blocking replies over an infra hiccup is worse than
// briefly exceeding the cap.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int
	loc    *time.Location
	logger *logging.Logger
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter with the given daily cap.
func NewRedisLimiter(client *redis.Client, limit int, loc *time.Location, logger *logging.Logger) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client is required")
	}
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLimiter{
		redis:  client,
		limit:  limit,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Evaluate reports whether the contact is still under today's cap.
func (l *RedisLimiter) Evaluate(ctx context.Context, contact string) (Decision, error) {
	key := dayKey(contact, l.now().In(l.loc))

	count, err := l.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		count = 0
	} else if err != nil {
		l.logger.Error("rate limit lookup failed", "error", err, "key", key)
		return Decision{Allowed: true, Limit: l.limit}, nil
	}

	return Decision{Allowed: count < l.limit, Count: count, Limit: l.limit}, nil
}

// Register consumes one unit of the contact's daily quota. The expiry is set
// on the first increment of the day so the counter vanishes at midnight.
func (l *RedisLimiter) Register(ctx context.Context, contact string) error {
	now := l.now().In(l.loc)
	key := dayKey(contact, now)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Error("rate limit increment failed", "error", err, "key", key)
		return nil
	}
	if count == 1 {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.loc).AddDate(0, 0, 1)
		l.redis.Expire(ctx, key, midnight.Sub(now))
	}
	return nil
}
