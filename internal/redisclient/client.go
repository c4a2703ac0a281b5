package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"reconciliation-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and checks the connection
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

	return NewClientFrom(rdb), nil
}

// NewClientFrom wraps an existing connection
func NewClientFrom(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func deliveryKey(provider models.Provider, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", provider, eventID)
}

// SeenDelivery reports whether a delivery was already handled
func (c *Client) SeenDelivery(ctx context.Context, provider models.Provider, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, deliveryKey(provider, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkDelivery records a handled delivery for ttl
func (c *Client) MarkDelivery(ctx context.Context, provider models.Provider, eventID string, ttl time.Duration) error {
	return c.rdb.SetNX(ctx, deliveryKey(provider, eventID), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// GetAccessToken returns a cached provider access token, or "" when absent
func (c *Client) GetAccessToken(ctx context.Context, key string) (string, error) {
	token, err := c.rdb.Get(ctx, "token:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// SetAccessToken caches a provider access token
func (c *Client) SetAccessToken(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, "token:"+key, token, ttl).Err()
}

// Lock is a held distributed lock
type Lock struct {
	key   string
	owner string
}

// AcquireLock takes lockKey for ttl. It returns nil when another holder has it.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{key: "lock:" + lockKey, owner: uuid.New().String()}

	ok, err := c.rdb.SetNX(ctx, lock.key, lock.owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock failed: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// ReleaseLock releases a lock if it is still ours
func (c *Client) ReleaseLock(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lock.key}, lock.owner).Err(); err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
