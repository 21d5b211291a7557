package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Keys of cached listings
const (
	KeyDashboard = "pool:admin:dashboard" // Nested users, entries and picks
	KeyTeams     = "pool:teams"           // Team registry
	KeyResults   = "pool:team-results"    // All recorded results
)

// Cache is a JSON read-through cache over Redis. A nil client disables it,
// every lookup misses and every write is dropped.
type Cache struct {
	rdb *redis.Client // Redis client, may be nil
	ttl time.Duration // Entry lifetime
}

// New creates a cache; pass a nil client to run without Redis
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client is configured
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest) // Unmarshal JSON into dest
}

// Set stores value under key for the cache TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err() // Set value in Redis with TTL
}

// Delete removes keys from Redis
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// Invalidate deletes keys and logs, rather than returns, a failure; stale
// entries expire with the TTL anyway.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		logrus.WithFields(logrus.Fields{
			"keys":  keys,        // Keys being invalidated
			"error": err.Error(), // Error message
		}).Warn("Cache invalidation failed")
	}
}

// Remember returns the cached value under key, or calls load and caches its result.
// cached reports whether the value came from Redis.
func Remember[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (value T, cached bool, err error) {
	found, err := c.Get(ctx, key, &value)
	if err == nil && found {
		return value, true, nil // Cache hit
	}
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("Cache read failed") // Fall through to the store
	}
	value, err = load()
	if err != nil {
		return value, false, err
	}
	if err := c.Set(ctx, key, value); err != nil {
		logrus.WithField("key", key).WithError(err).Warn("Cache write failed")
	}
	return value, false, nil
}
