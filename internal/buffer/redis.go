package buffer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fixListPrefix   = "tripwatch:buffer:"
	latestKeyPrefix = "tripwatch:latest:"
	activeSetKey    = "tripwatch:active_devices"
	latestTTL       = 24 * time.Hour
)

// Client wraps Redis access to the transient telemetry buffer, the
// latest-known device fields and the active-trip membership set.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection.
func New(addr, password string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Push appends a raw fix payload to the device's buffer.
func (c *Client) Push(ctx context.Context, deviceID string, payload []byte) error {
	return c.rdb.RPush(ctx, fixListPrefix+deviceID, payload).Err()
}

// Drain reads and clears the device's buffered fixes atomically, so at
// most one worker ever claims a given backlog.
func (c *Client) Drain(ctx context.Context, deviceID string) ([]string, error) {
	key := fixListPrefix + deviceID
	pipe := c.rdb.TxPipeline()
	entries := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("buffer drain: %w", err)
	}
	return entries.Val(), nil
}

// AddActive marks a device as belonging to an active trip.
func (c *Client) AddActive(ctx context.Context, deviceID string) error {
	return c.rdb.SAdd(ctx, activeSetKey, deviceID).Err()
}

// RemoveActive removes a device from the active set.
func (c *Client) RemoveActive(ctx context.Context, deviceID string) error {
	return c.rdb.SRem(ctx, activeSetKey, deviceID).Err()
}

// IsActive reports whether the device belongs to an active trip.
func (c *Client) IsActive(ctx context.Context, deviceID string) (bool, error) {
	return c.rdb.SIsMember(ctx, activeSetKey, deviceID).Result()
}

// SetLatest refreshes the latest-known scalar fields for a device, used
// for trips not yet Active.
func (c *Client) SetLatest(ctx context.Context, deviceID string, fields map[string]interface{}) error {
	key := latestKeyPrefix + deviceID
	if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, latestTTL).Err()
}

// Latest returns the latest-known fields for a device.
func (c *Client) Latest(ctx context.Context, deviceID string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, latestKeyPrefix+deviceID).Result()
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
