package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// InitRedisDB connects the rate-limiter backend. A Redis outage is not
// fatal: the limiter fails open, so the client is returned either way.
func InitRedisDB(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, rate limiting disabled")
	}
	return rdb
}
