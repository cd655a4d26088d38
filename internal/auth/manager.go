package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// SessionTTL is how long a persisted session stays valid after sign-in.
const SessionTTL = 7 * 24 * time.Hour

// StoredSession is the authoritative per-account session slot.
type StoredSession struct {
	SessionID string
	ExpiresAt time.Time
}

// SessionStore persists the single session slot per account for one
// principal kind. Implementations: repository.MemberRepository,
// repository.AdminRepository.
//
// FindSession returns (nil, nil) when the account has no active session.
// SetSession must replace the slot in a single atomic write.
// ClearSession with a non-empty expectedSessionID only clears a matching
// slot, so a stale sign-out cannot kill a newer session; it is a no-op when
// nothing matches.
type SessionStore interface {
	FindSession(ctx context.Context, accountID string) (*StoredSession, error)
	SetSession(ctx context.Context, accountID, sessionID string, expiresAt time.Time) error
	ClearSession(ctx context.Context, accountID, expectedSessionID string) error
}

// Identity is what a verified request carries: who, which kind, which session.
type Identity struct {
	Role      model.Role `json:"role"`
	AccountID string     `json:"account_id"`
	SessionID string     `json:"-"`
}

// SessionManager orchestrates sign-in, sign-out and per-request verification
// over the two per-kind stores and the process-local cache.
type SessionManager struct {
	codec   *TokenCodec
	members SessionStore
	admins  SessionStore
	cache   *VerificationCache
	ttl     time.Duration
	now     func() time.Time
}

func NewSessionManager(codec *TokenCodec, members, admins SessionStore, cache *VerificationCache) *SessionManager {
	return &SessionManager{
		codec:   codec,
		members: members,
		admins:  admins,
		cache:   cache,
		ttl:     SessionTTL,
		now:     time.Now,
	}
}

func (m *SessionManager) storeFor(role model.Role) SessionStore {
	switch role {
	case model.RoleAdmin:
		return m.admins
	default:
		return m.members
	}
}

// SignIn mints a fresh session id, persists it (superseding any previous
// session in one atomic write) and returns a bearer token bound to it.
// After it returns exactly one session id is valid for the account; whether
// to refuse instead of supersede is the caller's policy, via ActiveSession.
func (m *SessionManager) SignIn(ctx context.Context, role model.Role, accountID string) (token, sessionID string, err error) {
	now := m.now()
	sessionID = uuid.New().String()
	if err := m.storeFor(role).SetSession(ctx, accountID, sessionID, now.Add(m.ttl)); err != nil {
		return "", "", wrapError(KindDependencyFailure, "persist session", err)
	}
	// whatever was cached for this account describes a superseded session
	m.cache.Invalidate(InvalidateFilter{AccountID: accountID})
	token, err = m.codec.Sign(role, accountID, sessionID)
	if err != nil {
		return "", "", wrapError(KindDependencyFailure, "sign token", err)
	}
	return token, sessionID, nil
}

// ActiveSession returns the account's current unexpired session, nil if
// signed out. Callers use it to reject a sign-in while another session is
// live instead of silently superseding it.
func (m *SessionManager) ActiveSession(ctx context.Context, role model.Role, accountID string) (*StoredSession, error) {
	stored, err := m.storeFor(role).FindSession(ctx, accountID)
	if err != nil {
		return nil, wrapError(KindDependencyFailure, "session lookup", err)
	}
	if stored == nil || stored.SessionID == "" || m.now().After(stored.ExpiresAt) {
		return nil, nil
	}
	return stored, nil
}

// Verify authenticates a bearer token: cache fast path, else decode plus a
// store round-trip, then cache fill. expectedRole "" accepts either kind.
func (m *SessionManager) Verify(ctx context.Context, token string, expectedRole model.Role) (Identity, error) {
	if token == "" {
		return Identity{}, newError(KindUnauthenticated, "no token presented")
	}
	if e, ok := m.cache.Get(token, expectedRole); ok {
		return Identity{Role: e.Role, AccountID: e.AccountID, SessionID: e.SessionID}, nil
	}
	dec, err := m.codec.Decode(token)
	if err != nil {
		return Identity{}, err
	}
	if expectedRole != "" && dec.Role != expectedRole {
		return Identity{}, newError(KindAccessDenied, "wrong principal kind")
	}
	expiresAt, err := m.CheckSession(ctx, dec.Role, dec.AccountID, dec.SessionID)
	if err != nil {
		return Identity{}, err
	}
	m.cache.Put(token, CacheEntry{
		Role:             dec.Role,
		AccountID:        dec.AccountID,
		SessionID:        dec.SessionID,
		SessionExpiresAt: expiresAt,
	})
	return Identity{Role: dec.Role, AccountID: dec.AccountID, SessionID: dec.SessionID}, nil
}

// CheckSession re-validates that sessionID is the account's current,
// unexpired session. It is the authoritative check behind Verify's slow path
// and the bridge's redeem. All expiry comparisons use one "now" read.
func (m *SessionManager) CheckSession(ctx context.Context, role model.Role, accountID, sessionID string) (time.Time, error) {
	now := m.now()
	store := m.storeFor(role)
	stored, err := store.FindSession(ctx, accountID)
	if err != nil {
		return time.Time{}, wrapError(KindDependencyFailure, "session lookup", err)
	}
	if stored == nil || stored.SessionID == "" {
		m.cache.Invalidate(InvalidateFilter{AccountID: accountID})
		return time.Time{}, newError(KindSessionExpired, "no active session")
	}
	if stored.SessionID != sessionID {
		// superseded by a newer sign-in elsewhere
		m.cache.Invalidate(InvalidateFilter{SessionID: sessionID})
		return time.Time{}, newError(KindSessionMismatch, "session superseded")
	}
	if now.After(stored.ExpiresAt) {
		if err := store.ClearSession(ctx, accountID, stored.SessionID); err != nil {
			logger.Errorf("clear expired session account=%s: %v", accountID, err)
		}
		m.cache.Invalidate(InvalidateFilter{AccountID: accountID})
		return time.Time{}, newError(KindSessionExpired, "session expired")
	}
	return stored.ExpiresAt, nil
}

// SignOut clears the persisted session and evicts matching cache entries.
// A non-empty sessionID makes the clear conditional, so signing out a
// session that was already superseded leaves the newer one untouched.
// Idempotent: signing out a signed-out account is a no-op.
func (m *SessionManager) SignOut(ctx context.Context, role model.Role, accountID, sessionID string) error {
	if err := m.storeFor(role).ClearSession(ctx, accountID, sessionID); err != nil {
		return wrapError(KindDependencyFailure, "clear session", err)
	}
	if sessionID != "" {
		m.cache.Invalidate(InvalidateFilter{SessionID: sessionID})
	} else {
		m.cache.Invalidate(InvalidateFilter{AccountID: accountID})
	}
	return nil
}
