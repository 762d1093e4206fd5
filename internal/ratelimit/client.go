package ratelimit

import (
	"strings"

	"github.com/humesociety/humesociety-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when neither the secret-link limiter nor the reminder sweep needs Redis.
func NewRedisClient(cfg config.Config) *redis.Client {
	if !cfg.RateLimit.Enabled && !cfg.Reminder.Enabled {
		return nil
	}
	addr := strings.TrimSpace(cfg.RateLimit.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RateLimit.RedisPassword),
		DB:       cfg.RateLimit.RedisDB,
	})
}
