package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_Defaults(t *testing.T) {
	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl must cover five refill intervals")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, "cache", cfg.Prefix)
}

func TestLoadPaymentConfig(t *testing.T) {
	assert.False(t, LoadPaymentConfig().Enabled())

	t.Setenv("PAYMENT_SECRET_KEY", "live_secret")
	t.Setenv("PAYMENT_TIMEOUT", "3s")
	cfg := LoadPaymentConfig()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoadEventsConfig_URLFallback(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")
	assert.Equal(t, "amqp://u:p@broker:5672/", LoadEventsConfig().URL)

	t.Setenv("RABBITMQ_URL", "amqp://primary:5672/")
	assert.Equal(t, "amqp://primary:5672/", LoadEventsConfig().URL)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, "cache:6380", RedisOptions().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_DB", "2")
	opts := RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}
