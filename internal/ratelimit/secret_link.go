package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/humesociety/humesociety-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keySecretLinkClient = "invitation:secret:client:%s"

// SecretLinkLimiter throttles unauthenticated invitation links per client IP so secrets cannot be brute-forced.
type SecretLinkLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewSecretLinkLimiter(cfg config.Config, client *redis.Client) (*SecretLinkLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return &SecretLinkLimiter{}, nil
	}
	if client == nil {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.SecretLinkRate <= 0 || limitCfg.SecretLinkBurst <= 0 {
		return nil, ErrInvalidLimit
	}
	return &SecretLinkLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.SecretLinkRate,
		burst:   limitCfg.SecretLinkBurst,
	}, nil
}

func (l *SecretLinkLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SecretLinkLimiter) Allow(ctx context.Context, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		clientIP = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySecretLinkClient, clientIP), l.rate, l.burst)
}
