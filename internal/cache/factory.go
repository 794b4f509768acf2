package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
	Prefix  string
}

// NewAnswerCache selects a backend by name; anything but "redis" gets the
// in-memory cache.
func NewAnswerCache(cfg Config, redisClient *redis.Client) AnswerCache {
	switch cfg.Backend {
	case "redis":
		return NewRedisAnswerCache(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryAnswerCache(cfg.TTL)
	}
}
