package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"reloop-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

const warehouseCacheKey = "warehouses:active"

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with the lock-release script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock takes a mutex scoped to a single entity (a return or an
// inventory line). Returns the owner token on success, empty string when the
// lock is held elsewhere.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock releases a lock if the token still owns it. A lock that expired
// and was re-acquired elsewhere is left untouched.
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb,
		[]string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lockKey, err)
	}
	return nil
}

// CacheWarehouses stores the active warehouse list for locator fast paths
func (c *Client) CacheWarehouses(ctx context.Context, warehouses []models.Warehouse, ttl time.Duration) error {
	data, err := json.Marshal(warehouses)
	if err != nil {
		return fmt.Errorf("failed to marshal warehouses: %w", err)
	}
	return c.rdb.Set(ctx, warehouseCacheKey, data, ttl).Err()
}

// GetCachedWarehouses retrieves the cached warehouse list. Returns nil on a
// cache miss.
func (c *Client) GetCachedWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	data, err := c.rdb.Get(ctx, warehouseCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var warehouses []models.Warehouse
	if err := json.Unmarshal(data, &warehouses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached warehouses: %w", err)
	}
	return warehouses, nil
}

// InvalidateWarehouses drops the cached warehouse list after a mutation
func (c *Client) InvalidateWarehouses(ctx context.Context) error {
	return c.rdb.Del(ctx, warehouseCacheKey).Err()
}
