package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// BridgeTTL is the realtime ticket lifetime: long enough to finish one
// websocket handshake, nothing more.
const BridgeTTL = 5 * time.Minute

// bridgeScope marks the ticket family. Bearer tokens carry no scope and are
// signed under different secrets, so the two families never interchange.
const bridgeScope = "realtime"

// ProfileSnapshot is the denormalized display profile carried inside a
// realtime ticket, so the channel can greet without another DB read.
type ProfileSnapshot struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type bridgeClaims struct {
	Scope     string          `json:"scope"`
	Role      model.Role      `json:"role"`
	SessionID string          `json:"sid"`
	Profile   ProfileSnapshot `json:"profile"`
	jwt.RegisteredClaims
}

// RedemptionStore marks ticket ids as used so one ticket cannot authenticate
// two connections. Implementations: storage redis/memory clients.
type RedemptionStore interface {
	MarkBridgeRedeemed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// BridgeIdentity is what a redeemed ticket yields.
type BridgeIdentity struct {
	Role      model.Role
	AccountID string
	SessionID string
	Profile   ProfileSnapshot
}

// RealtimeAuthBridge hands an already-verified HTTP session over to the
// realtime transport. Issue gives the HTTP caller a short-lived ticket;
// Redeem re-derives the identity during the websocket handshake and re-checks
// the persisted session, so a ticket outlives neither sign-out nor
// supersession.
type RealtimeAuthBridge struct {
	secret   []byte
	manager  *SessionManager
	redeemed RedemptionStore
	ttl      time.Duration
	now      func() time.Time
}

func NewRealtimeAuthBridge(secret []byte, manager *SessionManager, redeemed RedemptionStore) *RealtimeAuthBridge {
	return &RealtimeAuthBridge{
		secret:   secret,
		manager:  manager,
		redeemed: redeemed,
		ttl:      BridgeTTL,
		now:      time.Now,
	}
}

// Issue mints a ticket for an authenticated caller's current session.
func (b *RealtimeAuthBridge) Issue(role model.Role, accountID, sessionID string, profile ProfileSnapshot) (string, error) {
	now := b.now()
	claims := bridgeClaims{
		Scope:     bridgeScope,
		Role:      role,
		SessionID: sessionID,
		Profile:   profile,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// Redeem verifies a ticket and re-runs the store-based session check. Each
// ticket redeems once; reconnection needs a fresh ticket from the HTTP side.
func (b *RealtimeAuthBridge) Redeem(ctx context.Context, token string) (BridgeIdentity, error) {
	if token == "" {
		return BridgeIdentity{}, newError(KindUnauthenticated, "no ticket presented")
	}
	claims := &bridgeClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil || !parsed.Valid {
		return BridgeIdentity{}, newError(KindInvalidToken, "invalid realtime ticket")
	}
	if claims.Scope != bridgeScope || claims.SessionID == "" || claims.Subject == "" {
		return BridgeIdentity{}, newError(KindInvalidToken, "invalid realtime ticket")
	}
	if claims.Role != model.RoleMember && claims.Role != model.RoleAdmin {
		return BridgeIdentity{}, newError(KindInvalidToken, "invalid realtime ticket")
	}
	if b.redeemed != nil && claims.ID != "" {
		fresh, err := b.redeemed.MarkBridgeRedeemed(ctx, claims.ID, b.ttl)
		if err != nil {
			return BridgeIdentity{}, wrapError(KindDependencyFailure, "mark ticket redeemed", err)
		}
		if !fresh {
			return BridgeIdentity{}, newError(KindInvalidToken, "ticket already redeemed")
		}
	}
	// the ticket's own signature is not authority enough: the session may
	// have been invalidated between issue and redeem
	if _, err := b.manager.CheckSession(ctx, claims.Role, claims.Subject, claims.SessionID); err != nil {
		return BridgeIdentity{}, err
	}
	return BridgeIdentity{
		Role:      claims.Role,
		AccountID: claims.Subject,
		SessionID: claims.SessionID,
		Profile:   claims.Profile,
	}, nil
}
