package services

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin redis wrapper for read-heavy payloads. All methods
// are nil-safe no-ops when no REDIS_URL is configured, so the service
// runs identically without a cache in front of it.
type Cache struct {
	rdb *redis.Client
}

func NewCacheFromEnv() *Cache {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		log.Println("⚠️  REDIS_URL not set, dashboard caching disabled")
		return nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		log.Printf("⚠️  Invalid REDIS_URL, caching disabled: %v", err)
		return nil
	}
	return &Cache{rdb: redis.NewClient(opts)}
}

// NewCacheWithClient wraps an existing client (tests).
func NewCacheWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func dashboardKey(email string) string { return "dashboard:" + email }

func (c *Cache) GetDashboard(ctx context.Context, email string, out interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, dashboardKey(email)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *Cache) SetDashboard(ctx context.Context, email string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, dashboardKey(email), raw, ttl).Err(); err != nil {
		log.Printf("⚠️  Cache set failed for %s: %v", email, err)
	}
}

// InvalidateDashboard drops the cached dashboard after any mutation
// that changes what it would show (link, claim, spin, reward).
func (c *Cache) InvalidateDashboard(email string) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Del(ctx, dashboardKey(email)).Err(); err != nil {
		log.Printf("⚠️  Cache invalidate failed for %s: %v", email, err)
	}
}
