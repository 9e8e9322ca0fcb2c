package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/redisx"
)

// Throttle limits failed logins per email. Redis errors are logged and
// treated as "allowed" so an unavailable Redis never locks staff out.
type Throttle interface {
	Allowed(ctx context.Context, email string) bool
	Failed(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

type RedisThrottle struct {
	rdb         redis.Cmdable
	maxAttempts int64
	window      time.Duration
	log         log.FieldLogger
}

func NewRedisThrottle(rdb redis.Cmdable, maxAttempts int64, window time.Duration, logger log.FieldLogger) *RedisThrottle {
	return &RedisThrottle{rdb: rdb, maxAttempts: maxAttempts, window: window, log: logger}
}

func (t *RedisThrottle) key(email string) string {
	return fmt.Sprintf(redisx.KeyLoginFailures, redisx.NormalizeEmail(email))
}

func (t *RedisThrottle) Allowed(ctx context.Context, email string) bool {
	n, err := t.rdb.Get(ctx, t.key(email)).Int64()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		t.log.WithError(err).Warn("login throttle lookup failed")
		return true
	}
	return n < t.maxAttempts
}

func (t *RedisThrottle) Failed(ctx context.Context, email string) {
	if _, err := redisx.Incr(ctx, t.rdb, t.key(email), t.window); err != nil {
		t.log.WithError(err).Warn("login throttle increment failed")
	}
}

func (t *RedisThrottle) Reset(ctx context.Context, email string) {
	if err := t.rdb.Del(ctx, t.key(email)).Err(); err != nil {
		t.log.WithError(err).Warn("login throttle reset failed")
	}
}

// NoThrottle is used when Redis is not configured.
type NoThrottle struct{}

func (NoThrottle) Allowed(context.Context, string) bool { return true }
func (NoThrottle) Failed(context.Context, string)       {}
func (NoThrottle) Reset(context.Context, string)        {}
