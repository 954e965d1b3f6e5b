package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseLockScript deletes the lock only when it still holds our token,
// so an expired holder cannot release a lock someone else acquired since.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and verifies the connection
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

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping backs the /ready check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// CheckoutLockName is the lock held while one user's cart is being converted
func CheckoutLockName(userID int64) string {
	return fmt.Sprintf("checkout:%d", userID)
}

// AcquireLock tries to take the named lock for ttl. ok is false when somebody
// else holds it; the returned token is needed to release it.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = c.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return token, ok, nil
}

// ReleaseLock releases the named lock if it is still held with token
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}
