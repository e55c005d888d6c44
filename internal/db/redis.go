package db

import (
	"backend-runcoach/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for cfg.RedisAddr, or nil when Redis is not
// configured.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
