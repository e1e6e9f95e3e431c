package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimiter_RedisWindow(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l := NewLimiter(rdb, true)
	rule := Rule{Resource: "test", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, rule, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, rule, "1.2.3.4"))
	assert.False(t, l.Allow(ctx, rule, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, rule, "5.6.7.8"), "budgets are per key")

	assert.Equal(t, time.Minute, mr.TTL("rl:test:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, rule, "1.2.3.4"), "window resets")
}

func TestLimiter_RedisCounterWithoutExpiryHeals(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l := NewLimiter(rdb, true)
	rule := Rule{Resource: "test", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	// An exhausted counter left behind with no TTL.
	require.NoError(t, mr.Set("rl:test:1.2.3.4", "7"))
	require.Zero(t, mr.TTL("rl:test:1.2.3.4"))

	assert.False(t, l.Allow(ctx, rule, "1.2.3.4"))
	assert.Equal(t, time.Minute, mr.TTL("rl:test:1.2.3.4"))

	// Later hits keep the original expiry.
	mr.FastForward(30 * time.Second)
	assert.False(t, l.Allow(ctx, rule, "1.2.3.4"))
	assert.Equal(t, 30*time.Second, mr.TTL("rl:test:1.2.3.4"))

	mr.FastForward(31 * time.Second)
	assert.True(t, l.Allow(ctx, rule, "1.2.3.4"))
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(nil, false)
	rule := Rule{Resource: "test", Limit: 1, Window: time.Minute}
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), rule, "ip"))
	}
}

func TestLimiter_LocalFallback(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewLimiter(rdb, true)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	rule := Rule{Resource: "test", Limit: 2, Window: time.Minute}

	assert.True(t, l.Allow(context.Background(), rule, "ip"))
	assert.True(t, l.Allow(context.Background(), rule, "ip"))
	assert.False(t, l.Allow(context.Background(), rule, "ip"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow(context.Background(), rule, "ip"), "one token refills per window/limit")
}

func TestLimiter_Handler(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l := NewLimiter(rdb, true)

	app := fiber.New()
	app.Post("/login", l.Handler(Rule{Resource: "login", Limit: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}
