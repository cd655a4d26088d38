package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInRateLimit(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < signInRateLimitMax; i++ {
		allowed, err := c.CheckSignInRateLimit(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should pass", i+1)
	}
	allowed, err := c.CheckSignInRateLimit(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// other login ids are unaffected
	allowed, err = c.CheckSignInRateLimit(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMarkBridgeRedeemedOnce(t *testing.T) {
	c := New()
	ctx := context.Background()

	fresh, err := c.MarkBridgeRedeemed(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = c.MarkBridgeRedeemed(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestMarkBridgeRedeemedSweepsExpired(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.MarkBridgeRedeemed(ctx, fmt.Sprintf("old-%d", i), -time.Second)
		require.NoError(t, err)
	}
	_, err := c.MarkBridgeRedeemed(ctx, "fresh", time.Minute)
	require.NoError(t, err)

	c.mu.Lock()
	n := len(c.redeemed)
	c.mu.Unlock()
	assert.Equal(t, 1, n)
}
