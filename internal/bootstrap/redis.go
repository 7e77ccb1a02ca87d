package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	URL    string
	PingTO time.Duration
}

// OpenRedis connects to REDIS_URL. An empty URL returns a nil client.
func OpenRedis(ctx context.Context, opt RedisOptions) (*redis.Client, error) {
	if opt.URL == "" {
		return nil, nil
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}

	ropts, err := redis.ParseURL(opt.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(ropts)

	pctx, cancel := context.WithTimeout(ctx, opt.PingTO)
	defer cancel()

	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
