// Package cache holds Redis read-through caches in front of Postgres lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retail-banking-ledger/internal/domain/directory"
)

const directoryNamespace = "directory:contact:"

// Client is the subset of redis.Cmdable used by the caches.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DirectoryCache is a read-through cache for P2P contact resolution. Any Redis
// failure falls back to the wrapped directory.
type DirectoryCache struct {
	next   directory.Directory
	client Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewDirectoryCache(logger *slog.Logger, next directory.Directory, client Client, ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// ResolveByContact implements directory.Directory.
func (c *DirectoryCache) ResolveByContact(ctx context.Context, identifier string) (*directory.Recipient, error) {
	key := directoryNamespace + directory.NormalizeContact(identifier)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var recipient directory.Recipient
		if err := json.Unmarshal(raw, &recipient); err == nil {
			return &recipient, nil
		}
		c.logger.Warn("Discarding undecodable directory cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Directory cache read failed", "error", err)
	}

	recipient, err := c.next.ResolveByContact(ctx, identifier)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(recipient)
	if err != nil {
		return recipient, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Directory cache write failed", "error", err)
	}

	return recipient, nil
}

// Invalidate drops the cached resolution of identifier.
func (c *DirectoryCache) Invalidate(ctx context.Context, identifier string) {
	key := directoryNamespace + directory.NormalizeContact(identifier)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Directory cache invalidation failed", "key", key, "error", err)
	}
}
