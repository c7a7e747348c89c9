package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetSaleIdempotency maps an Idempotency-Key to the sale it produced
func (c *Client) SetSaleIdempotency(ctx context.Context, key, saleID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:sale:%s", key), saleID, ttl).Err()
}

// GetSaleIdempotency returns the sale ID previously committed under the
// given Idempotency-Key, if any.
func (c *Client) GetSaleIdempotency(ctx context.Context, key string) (string, bool, error) {
	saleID, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:sale:%s", key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return saleID, true, nil
}

// CacheReportSummary stores a rendered report summary under a window key
func (c *Client) CacheReportSummary(ctx context.Context, window string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("report:summary:%s", window), payload, ttl).Err()
}

// GetReportSummary returns a cached report summary for a window key
func (c *Client) GetReportSummary(ctx context.Context, window string) ([]byte, bool, error) {
	payload, err := c.rdb.Get(ctx, fmt.Sprintf("report:summary:%s", window)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}
