package storage

import (
	"context"
	"time"
)

// VolatileStore holds short-lived auth bookkeeping: sign-in attempt counters
// and one-shot realtime ticket redemption marks.
// Implementations: redis.Client, memory.Client (for -dev without Redis).
type VolatileStore interface {
	// CheckSignInRateLimit counts an attempt for loginID and reports
	// whether it is still within the window.
	CheckSignInRateLimit(ctx context.Context, loginID string) (allowed bool, err error)
	// MarkBridgeRedeemed marks a realtime ticket id as used. Returns false
	// when the id was already marked (ticket replay).
	MarkBridgeRedeemed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	Close() error
}
