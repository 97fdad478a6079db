package vaultgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	errChallengeRateLimited        = errors.New("challenge verify rate limited")
	errChallengeLimiterUnavailable = errors.New("challenge limiter unavailable")
)

// challengeLimiter bounds failed verify pressure per challenge with a fixed
// window sized to the challenge TTL. The window is keyed by challenge ID, so
// a superseding issue naturally starts a fresh budget.
type challengeLimiter struct {
	redis  redis.UniversalClient
	config ChallengeConfig
}

func newChallengeLimiter(redisClient redis.UniversalClient, cfg ChallengeConfig) *challengeLimiter {
	return &challengeLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *challengeLimiter) CheckVerify(ctx context.Context, challengeID, ip string) error {
	if l.config.MaxVerifyAttempts <= 0 {
		return nil
	}
	if err := l.enforceFixedWindow(ctx, challengeVerifyKey(l.config.RedisPrefix, challengeID)); err != nil {
		return err
	}
	if ip != "" {
		if err := l.enforceFixedWindow(ctx, challengeVerifyIPKey(l.config.RedisPrefix, ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *challengeLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.TTL).Err(); err != nil {
			return fmt.Errorf("%w: %v", errChallengeLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxVerifyAttempts) {
		return errChallengeRateLimited
	}

	return nil
}

func challengeVerifyKey(prefix, challengeID string) string {
	return prefix + "v:" + challengeID
}

func challengeVerifyIPKey(prefix, ip string) string {
	return prefix + "vip:" + ip
}
