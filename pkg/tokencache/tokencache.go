// Package tokencache is a Redis-backed denylist for revoked access
// tokens. Logout writes the token's jti with a TTL matching the token's
// remaining lifetime; the auth middleware rejects any denylisted token.
package tokencache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dentora/dentora-backend/pkg/config"
	"github.com/dentora/dentora-backend/pkg/logger"
)

const keyPrefix = "revoked_token:"

// Cache stores revoked token IDs
type Cache struct {
	client *redis.Client
	logger *logger.Logger
}

// New connects to Redis and returns a token cache
func New(cfg *config.RedisConfig, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, logger: log}, nil
}

// Revoke marks a token ID as revoked until its natural expiry.
func (c *Cache) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}

	if err := c.client.Set(ctx, keyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	c.logger.Debug().Str("token_id", tokenID).Msg("access token revoked")
	return nil
}

// IsRevoked reports whether a token ID has been revoked.
// Fails closed on transport errors: an unreachable denylist rejects
// the token rather than accepting a possibly revoked one.
func (c *Cache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return true, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// Health returns the health status of the Redis connection
func (c *Cache) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "up"}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
