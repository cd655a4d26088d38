package memory

import (
	"context"
	"sync"
	"time"
)

const (
	signInRateLimitWindow = 600 * time.Second
	signInRateLimitMax    = 10
)

// Client is the in-process VolatileStore for -dev runs without Redis.
type Client struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	redeemed map[string]time.Time
}

func New() *Client {
	return &Client{
		attempts: make(map[string][]time.Time),
		redeemed: make(map[string]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) CheckSignInRateLimit(ctx context.Context, loginID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-signInRateLimitWindow)
	slice := c.attempts[loginID]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= signInRateLimitMax {
		c.attempts[loginID] = slice
		return false, nil
	}
	c.attempts[loginID] = append(slice, now)
	return true, nil
}

func (c *Client) MarkBridgeRedeemed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if exp, ok := c.redeemed[jti]; ok && now.Before(exp) {
		return false, nil
	}
	// lazy sweep keeps the map bounded between restarts
	for id, exp := range c.redeemed {
		if now.After(exp) {
			delete(c.redeemed, id)
		}
	}
	c.redeemed[jti] = now.Add(ttl)
	return true, nil
}
