package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

type fakeRedemption struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeRedemption() *fakeRedemption {
	return &fakeRedemption{seen: make(map[string]bool)}
}

func (f *fakeRedemption) MarkBridgeRedeemed(_ context.Context, jti string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen[jti] {
		return false, nil
	}
	f.seen[jti] = true
	return true, nil
}

type bridgeEnv struct {
	*testEnv
	redemption *fakeRedemption
	bridge     *RealtimeAuthBridge
}

func newBridgeEnv(t *testing.T) *bridgeEnv {
	t.Helper()
	env := newTestEnv(t)
	redemption := newFakeRedemption()
	bridge := NewRealtimeAuthBridge([]byte("ticket-secret"), env.mgr, redemption)
	bridge.now = env.clk.Now
	return &bridgeEnv{testEnv: env, redemption: redemption, bridge: bridge}
}

func TestBridgeIssueRedeem(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	profile := ProfileSnapshot{Name: "Dana", AvatarURL: "/a.png"}
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, profile)
	require.NoError(t, err)

	id, err := env.bridge.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, id.Role)
	assert.Equal(t, "acc-1", id.AccountID)
	assert.Equal(t, sessionID, id.SessionID)
	assert.Equal(t, profile, id.Profile)
}

func TestBridgeTicketRedeemsOnce(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, ProfileSnapshot{})
	require.NoError(t, err)

	_, err = env.bridge.Redeem(ctx, ticket)
	require.NoError(t, err)

	_, err = env.bridge.Redeem(ctx, ticket)
	requireKind(t, err, KindInvalidToken)
}

func TestBridgeRedeemAfterSignOut(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, ProfileSnapshot{})
	require.NoError(t, err)

	// session dies between issue and redeem
	require.NoError(t, env.mgr.SignOut(ctx, model.RoleMember, "acc-1", sessionID))

	_, err = env.bridge.Redeem(ctx, ticket)
	requireKind(t, err, KindSessionExpired)
}

func TestBridgeRedeemSupersededSession(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sid1, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sid1, ProfileSnapshot{})
	require.NoError(t, err)

	_, _, err = env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	_, err = env.bridge.Redeem(ctx, ticket)
	requireKind(t, err, KindSessionMismatch)
}

func TestBridgeTicketExpires(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, ProfileSnapshot{})
	require.NoError(t, err)

	env.clk.Advance(BridgeTTL + time.Minute)
	_, err = env.bridge.Redeem(ctx, ticket)
	requireKind(t, err, KindInvalidToken)
}

func TestBridgeFamiliesDoNotInterchange(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	bearer, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	// a bearer token is not a ticket
	_, err = env.bridge.Redeem(ctx, bearer)
	requireKind(t, err, KindInvalidToken)

	// a ticket is not a bearer token
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, ProfileSnapshot{})
	require.NoError(t, err)
	_, err = env.mgr.Verify(ctx, ticket, "")
	requireKind(t, err, KindInvalidToken)
}

func TestBridgeEmptyTicket(t *testing.T) {
	env := newBridgeEnv(t)
	_, err := env.bridge.Redeem(context.Background(), "")
	requireKind(t, err, KindUnauthenticated)
}

func TestBridgeRedemptionStoreFailure(t *testing.T) {
	env := newBridgeEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	ticket, err := env.bridge.Issue(model.RoleMember, "acc-1", sessionID, ProfileSnapshot{})
	require.NoError(t, err)

	env.redemption.err = errors.New("connection refused")
	_, err = env.bridge.Redeem(ctx, ticket)
	requireKind(t, err, KindDependencyFailure)
}
