package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLimiter shares counters across replicas. When redis is unreachable it
// fails open and logs, so an outage never locks users out of login.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

func NewRedisLimiter(client *redis.Client, log logrus.FieldLogger) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "apartmentng:rate:", log: log}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	k := l.prefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
		return true
	}
	return incr.Val() <= int64(limit)
}
