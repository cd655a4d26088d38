package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

func newTestCache(clk *fakeClock) *VerificationCache {
	c := NewVerificationCache(CacheTTL)
	c.now = clk.Now
	return c
}

func testEntry(clk *fakeClock, accountID, sessionID string) CacheEntry {
	return CacheEntry{
		Role:             model.RoleMember,
		AccountID:        accountID,
		SessionID:        sessionID,
		SessionExpiresAt: clk.Now().Add(SessionTTL),
	}
}

func TestCachePutGet(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))

	e, ok := c.Get("tok-1", "")
	require.True(t, ok)
	assert.Equal(t, "acc-1", e.AccountID)
	assert.Equal(t, "sess-1", e.SessionID)

	_, ok = c.Get("tok-2", "")
	assert.False(t, ok)
}

func TestCacheEntryExpires(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))
	clk.Advance(CacheTTL + time.Second)

	_, ok := c.Get("tok-1", "")
	assert.False(t, ok)
}

func TestCacheHonorsSessionExpiry(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	// session expires inside the cache window: the entry must not outlive it
	e := testEntry(clk, "acc-1", "sess-1")
	e.SessionExpiresAt = clk.Now().Add(5 * time.Second)
	c.Put("tok-1", e)

	clk.Advance(10 * time.Second)
	_, ok := c.Get("tok-1", "")
	assert.False(t, ok)
}

func TestCacheRoleFilter(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))

	_, ok := c.Get("tok-1", model.RoleAdmin)
	assert.False(t, ok)
	_, ok = c.Get("tok-1", model.RoleMember)
	assert.True(t, ok)
}

func TestCacheInvalidateBySession(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))
	c.Put("tok-2", testEntry(clk, "acc-2", "sess-2"))

	c.Invalidate(InvalidateFilter{SessionID: "sess-1"})

	_, ok := c.Get("tok-1", "")
	assert.False(t, ok)
	_, ok = c.Get("tok-2", "")
	assert.True(t, ok)
}

func TestCacheInvalidateByAccount(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	// two tokens for the same account (e.g. before and after re-sign-in)
	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))
	c.Put("tok-2", testEntry(clk, "acc-1", "sess-2"))
	c.Put("tok-3", testEntry(clk, "acc-2", "sess-3"))

	c.Invalidate(InvalidateFilter{AccountID: "acc-1"})

	_, ok := c.Get("tok-1", "")
	assert.False(t, ok)
	_, ok = c.Get("tok-2", "")
	assert.False(t, ok)
	_, ok = c.Get("tok-3", "")
	assert.True(t, ok)
}

func TestCacheEmptyFilterIsNoop(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Put("tok-1", testEntry(clk, "acc-1", "sess-1"))
	c.Invalidate(InvalidateFilter{})

	_, ok := c.Get("tok-1", "")
	assert.True(t, ok)
}

func TestCachePruneBoundsMap(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("tok-%d", i), testEntry(clk, "acc-1", "sess-1"))
	}
	clk.Advance(CacheTTL + pruneInterval)

	// any Get past the prune interval sweeps the dead entries
	c.Get("missing", "")

	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	assert.Zero(t, n)
}
