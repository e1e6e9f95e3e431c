package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Rule is a fixed-window budget for one resource.
type Rule struct {
	Resource string
	Limit    int
	Window   time.Duration
}

// Budgets applied per client IP.
var (
	RegisterRule = Rule{Resource: "register", Limit: 5, Window: 10 * time.Minute}
	LoginRule    = Rule{Resource: "login", Limit: 10, Window: 5 * time.Minute}
	CommentRule  = Rule{Resource: "comment", Limit: 10, Window: time.Minute}
)

const maxLocalBuckets = 10000

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter counts requests in Redis and falls back to in-process token
// buckets while Redis is unavailable.
type Limiter struct {
	rdb     *redis.Client
	enabled bool

	mu    sync.Mutex
	local map[string]*localBucket
	now   func() time.Time
}

// NewLimiter builds a Limiter. rdb may be nil; a disabled Limiter allows everything.
func NewLimiter(rdb *redis.Client, enabled bool) *Limiter {
	return &Limiter{
		rdb:     rdb,
		enabled: enabled,
		local:   make(map[string]*localBucket),
		now:     time.Now,
	}
}

// Allow reports whether key may spend one unit of rule's budget.
func (l *Limiter) Allow(ctx context.Context, rule Rule, key string) bool {
	if !l.enabled {
		return true
	}
	if l.rdb != nil {
		allowed, err := l.allowRedis(ctx, rule, key)
		if err == nil {
			return allowed
		}
		Logger.WarnContext(ctx, "rate limit store unavailable, using local buckets",
			"resource", rule.Resource, "error", err)
	}
	return l.allowLocal(rule, key)
}

func (l *Limiter) allowRedis(ctx context.Context, rule Rule, key string) (bool, error) {
	redisKey := fmt.Sprintf("rl:%s:%s", rule.Resource, key)

	// The counter and its expiry are written in one MULTI, so a counter
	// never outlives its window.
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, rule.Window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(rule.Limit), nil
}

func (l *Limiter) allowLocal(rule Rule, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucketKey := rule.Resource + ":" + key
	b, ok := l.local[bucketKey]
	if !ok {
		if len(l.local) >= maxLocalBuckets {
			l.sweep(now)
		}
		every := rule.Window / time.Duration(rule.Limit)
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(every), rule.Limit)}
		l.local[bucketKey] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than the largest window in use.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.local {
		if now.Sub(b.lastSeen) > 10*time.Minute {
			delete(l.local, k)
		}
	}
}

// Handler enforces rule per client IP.
func (l *Limiter) Handler(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l.Allow(c.UserContext(), rule, c.IP()) {
			return c.Next()
		}
		observability.RateLimitRejections.WithLabelValues(rule.Resource).Inc()
		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(rule.Window.Seconds())))
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Error: "Too many requests, please try again later",
			Code:  "RATE_LIMITED",
		})
	}
}
