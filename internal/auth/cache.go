package auth

import (
	"sync"
	"time"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

const (
	// CacheTTL shields the store from bursts of requests within the same
	// brief window. Must stay much smaller than SessionTTL.
	CacheTTL = 30 * time.Second

	pruneInterval = time.Minute
)

// CacheEntry is a disposable memo of a successful verification, keyed by the
// raw token string. The store record stays authoritative; an entry is never
// trusted past its own or the session's expiry.
type CacheEntry struct {
	Role             model.Role
	AccountID        string
	SessionID        string
	SessionExpiresAt time.Time

	cacheExpiresAt time.Time
}

// VerificationCache is process-local. With multiple replicas each keeps its
// own cache and invalidation does not propagate: a revoked session may be
// accepted elsewhere for up to CacheTTL. Accepted limitation; a shared cache
// is the mitigation if cross-replica immediacy is ever required.
type VerificationCache struct {
	mu        sync.Mutex
	entries   map[string]CacheEntry
	ttl       time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func NewVerificationCache(ttl time.Duration) *VerificationCache {
	if ttl <= 0 {
		ttl = CacheTTL
	}
	return &VerificationCache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live entry for token, deleting it when expired. A non-empty
// expectedRole that mismatches the entry counts as a miss.
func (c *VerificationCache) Get(token string, expectedRole model.Role) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	e, ok := c.entries[token]
	if !ok {
		return CacheEntry{}, false
	}
	now := c.now()
	if now.After(e.cacheExpiresAt) || now.After(e.SessionExpiresAt) {
		delete(c.entries, token)
		return CacheEntry{}, false
	}
	if expectedRole != "" && e.Role != expectedRole {
		return CacheEntry{}, false
	}
	return e, true
}

// Put records a verification result. Concurrent writers for the same token
// describe the same fact, so last-writer-wins is safe.
func (c *VerificationCache) Put(token string, e CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.cacheExpiresAt = c.now().Add(c.ttl)
	c.entries[token] = e
}

// InvalidateFilter selects entries by session id, account id, or both
// (matching either).
type InvalidateFilter struct {
	SessionID string
	AccountID string
}

// Invalidate removes every matching entry. This is what makes sign-out and
// "signed in elsewhere" take effect immediately instead of after CacheTTL.
func (c *VerificationCache) Invalidate(f InvalidateFilter) {
	if f.SessionID == "" && f.AccountID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, e := range c.entries {
		if (f.SessionID != "" && e.SessionID == f.SessionID) ||
			(f.AccountID != "" && e.AccountID == f.AccountID) {
			delete(c.entries, token)
		}
	}
}

// pruneLocked sweeps expired entries at most once per pruneInterval. Needed
// only to bound memory; Get already refuses stale entries.
func (c *VerificationCache) pruneLocked() {
	now := c.now()
	if now.Sub(c.lastPrune) < pruneInterval {
		return
	}
	c.lastPrune = now
	for token, e := range c.entries {
		if now.After(e.cacheExpiresAt) || now.After(e.SessionExpiresAt) {
			delete(c.entries, token)
		}
	}
}
