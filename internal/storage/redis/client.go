package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sign-in throttle: 10 attempts per 10 minutes per login id.
const (
	SignInRateLimitWindow = 600 * time.Second
	SignInRateLimitMax    = 10
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// CheckSignInRateLimit counts against login_limit:{loginID}: max
// SignInRateLimitMax attempts per window. Excess maps to HTTP 429.
func (c *Client) CheckSignInRateLimit(ctx context.Context, loginID string) (allowed bool, err error) {
	key := "login_limit:" + loginID
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, SignInRateLimitWindow)
	}
	return n <= int64(SignInRateLimitMax), nil
}

// MarkBridgeRedeemed sets bridge_used:{jti} once. SETNX returning false
// means the ticket was already redeemed.
func (c *Client) MarkBridgeRedeemed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, "bridge_used:"+jti, "1", ttl).Result()
}

// FlushDB clears the current Redis DB (throttle counters and redemption
// marks) for tests and resets.
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
