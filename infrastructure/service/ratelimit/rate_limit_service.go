package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// RateLimitService guards the expensive sync trigger with a fixed window
// per caller. The upstream health API is rate-limited per account, so an
// operator hammering the trigger would only starve the scheduled runs.
type RateLimitService interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	Enabled  bool
	RedisURL string
	Attempts int
	Window   time.Duration
}

type rateLimitService struct {
	redisClient *redis.Client
	attempts    int
	window      time.Duration
	logger      logger.Logger
}

// NewRateLimitService returns a Redis-backed limiter, or a noop when
// disabled.
func NewRateLimitService(config RateLimitConfig, log logger.Logger) (RateLimitService, error) {
	if !config.Enabled {
		log.Info(context.Background(), "Rate limiting disabled", nil)
		return &noopRateLimitService{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(context.Background(), "Rate limiting service initialized", map[string]interface{}{
		"attempts": config.Attempts,
		"window":   config.Window.String(),
	})

	return &rateLimitService{
		redisClient: redisClient,
		attempts:    config.Attempts,
		window:      config.Window,
		logger:      log,
	}, nil
}

// Allow increments the caller's window counter and reports whether the
// request is under the limit.
func (s *rateLimitService) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("healthwatch:ratelimit:%s", key)

	pipeline := s.redisClient.Pipeline()
	incr := pipeline.Incr(ctx, redisKey)
	pipeline.Expire(ctx, redisKey, s.window)
	if _, err := pipeline.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to update rate limit counter: %w", err)
	}

	count := incr.Val()
	allowed := count <= int64(s.attempts)

	s.logger.Debug(ctx, "Rate limit check", map[string]interface{}{
		"key":     key,
		"count":   count,
		"limit":   s.attempts,
		"allowed": allowed,
	})
	return allowed, nil
}

type noopRateLimitService struct{}

func (*noopRateLimitService) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}
