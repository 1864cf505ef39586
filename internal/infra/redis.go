// README: Redis client initialization for the route cache and search generation tokens.
package infra

import (
	"github.com/redis/go-redis/v9"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
)

func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
