package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sniffKeyPrefix  = "convert:sniff:" // convert:sniff:{encoding}:{sha256}
	defaultSniffTTL = 24 * time.Hour
)

// SniffCache stores which schema family decoded a given file content.
type SniffCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSniffCache creates a new SniffCache
func NewSniffCache(client *redis.Client, ttl time.Duration) *SniffCache {
	if ttl <= 0 {
		ttl = defaultSniffTTL
	}
	return &SniffCache{client: client, ttl: ttl}
}

// Lookup returns the remembered family. Redis errors read as a miss.
func (c *SniffCache) Lookup(ctx context.Context, key string) (string, bool) {
	name, err := c.client.Get(ctx, sniffKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[warn] sniff cache lookup failed: %v", err)
		}
		return "", false
	}
	return name, name != ""
}

// Remember stores the family for key. Failures are logged, not returned.
func (c *SniffCache) Remember(ctx context.Context, key, name string) {
	if err := c.client.Set(ctx, sniffKeyPrefix+key, name, c.ttl).Err(); err != nil {
		log.Printf("[warn] sniff cache store failed: %v", err)
	}
}

// Ping reports cache health for the health endpoint.
func (c *SniffCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
