package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// expiryMargin keeps cached credentials from being handed out so close to
// expiry that a long pipeline pass outlives them.
const expiryMargin = 2 * time.Minute

// CachingCredentialService caches delegated credentials in Redis, keyed by
// account and role, with a TTL clipped to the credential expiry. Cache
// failures fall through to the underlying service; the cache is an
// optimization, never a dependency.
type CachingCredentialService struct {
	inner       outbound.CredentialService
	redisClient *redis.Client
	logger      logger.Logger
}

func NewCachingCredentialService(inner outbound.CredentialService, redisURL string, log logger.Logger) (*CachingCredentialService, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CachingCredentialService{inner: inner, redisClient: client, logger: log}, nil
}

func cacheKey(accountID, roleName string) string {
	return fmt.Sprintf("healthwatch:creds:%s:%s", accountID, roleName)
}

func (s *CachingCredentialService) AssumeRole(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
	key := cacheKey(accountID, roleName)

	if raw, err := s.redisClient.Get(ctx, key).Result(); err == nil {
		var creds domain.DelegatedCredentials
		if err := json.Unmarshal([]byte(raw), &creds); err == nil && !creds.Expired(time.Now(), expiryMargin) {
			s.logger.Debug(ctx, "Credential cache hit", map[string]interface{}{
				"account_id": accountID,
			})
			return &creds, nil
		}
	} else if err != redis.Nil {
		s.logger.Warn(ctx, "Credential cache read failed", map[string]interface{}{
			"account_id": accountID,
			"error":      err.Error(),
		})
	}

	creds, err := s.inner.AssumeRole(ctx, accountID, roleName)
	if err != nil {
		return nil, err
	}

	ttl := time.Until(creds.Expiration) - expiryMargin
	if ttl > 0 {
		if raw, err := json.Marshal(creds); err == nil {
			if err := s.redisClient.Set(ctx, key, raw, ttl).Err(); err != nil {
				s.logger.Warn(ctx, "Credential cache write failed", map[string]interface{}{
					"account_id": accountID,
					"error":      err.Error(),
				})
			}
		}
	}

	return creds, nil
}
