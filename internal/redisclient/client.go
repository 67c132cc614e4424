package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks connectivity
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

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func emiOptionsKey(amount int64) string {
	return fmt.Sprintf("emi:options:%d", amount)
}

// GetEmiOptions returns cached EMI options, or nil on a miss
func (c *Client) GetEmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error) {
	raw, err := c.rdb.Get(ctx, emiOptionsKey(amount)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read emi options: %w", err)
	}

	var opts models.EmiOptions
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode emi options: %w", err)
	}
	return &opts, nil
}

// SetEmiOptions caches EMI options for an amount
func (c *Client) SetEmiOptions(ctx context.Context, amount int64, opts *models.EmiOptions, ttl time.Duration) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode emi options: %w", err)
	}
	return c.rdb.Set(ctx, emiOptionsKey(amount), raw, ttl).Err()
}

// SetIdempotencyKey stores the result of a request under its idempotency key
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode idempotent result: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), raw, ttl).Err()
}

// GetIdempotencyResult loads a stored result into out. It reports false when the key is unknown.
func (c *Client) GetIdempotencyResult(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode idempotent result: %w", err)
	}
	return true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
