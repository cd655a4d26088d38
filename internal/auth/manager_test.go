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

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeStore is an in-memory SessionStore with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*StoredSession
	findErr  error
	setErr   error
	clearErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*StoredSession)}
}

func (s *fakeStore) FindSession(_ context.Context, accountID string) (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	stored, ok := s.sessions[accountID]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (s *fakeStore) SetSession(_ context.Context, accountID, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sessions[accountID] = &StoredSession{SessionID: sessionID, ExpiresAt: expiresAt}
	return nil
}

func (s *fakeStore) ClearSession(_ context.Context, accountID, expectedSessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	stored, ok := s.sessions[accountID]
	if !ok {
		return nil
	}
	if expectedSessionID != "" && stored.SessionID != expectedSessionID {
		return nil
	}
	delete(s.sessions, accountID)
	return nil
}

type testEnv struct {
	clk     *fakeClock
	members *fakeStore
	admins  *fakeStore
	cache   *VerificationCache
	mgr     *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := newFakeClock()
	codec := NewTokenCodec([]byte("member-secret"), []byte("admin-secret"))
	codec.now = clk.Now
	cache := NewVerificationCache(CacheTTL)
	cache.now = clk.Now
	members := newFakeStore()
	admins := newFakeStore()
	mgr := NewSessionManager(codec, members, admins, cache)
	mgr.now = clk.Now
	return &testEnv{clk: clk, members: members, admins: admins, cache: cache, mgr: mgr}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, kind, ae.Kind)
}

func TestSignInVerifyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, sessionID)

	id, err := env.mgr.Verify(ctx, token, model.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, id.Role)
	assert.Equal(t, "acc-1", id.AccountID)
	assert.Equal(t, sessionID, id.SessionID)
}

func TestVerifyEmptyToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.mgr.Verify(context.Background(), "", "")
	requireKind(t, err, KindUnauthenticated)
}

func TestSecondSignInSupersedesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token1, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	token2, sid2, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	_, err = env.mgr.Verify(ctx, token1, "")
	requireKind(t, err, KindSessionMismatch)

	id, err := env.mgr.Verify(ctx, token2, "")
	require.NoError(t, err)
	assert.Equal(t, sid2, id.SessionID)
}

func TestSignOutRevokesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	// prime the cache
	_, err = env.mgr.Verify(ctx, token, "")
	require.NoError(t, err)

	require.NoError(t, env.mgr.SignOut(ctx, model.RoleMember, "acc-1", sessionID))

	// the cached entry must not outlive the sign-out
	_, err = env.mgr.Verify(ctx, token, "")
	requireKind(t, err, KindSessionExpired)
}

func TestSignOutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	require.NoError(t, env.mgr.SignOut(ctx, model.RoleMember, "acc-1", sessionID))
	require.NoError(t, env.mgr.SignOut(ctx, model.RoleMember, "acc-1", sessionID))
}

func TestStaleSignOutLeavesNewerSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token1, sid1, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	token2, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	// signing out the superseded session must not touch the newer one
	require.NoError(t, env.mgr.SignOut(ctx, model.RoleMember, "acc-1", sid1))

	_, err = env.mgr.Verify(ctx, token2, "")
	require.NoError(t, err)
	_, err = env.mgr.Verify(ctx, token1, "")
	requireKind(t, err, KindSessionMismatch)
}

func TestSessionExpiryClearsStoredSlot(t *testing.T) {
	env := newTestEnv(t)
	env.mgr.ttl = time.Hour
	ctx := context.Background()

	token, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	env.clk.Advance(2 * time.Hour)

	_, err = env.mgr.Verify(ctx, token, "")
	requireKind(t, err, KindSessionExpired)

	env.members.mu.Lock()
	_, stillThere := env.members.sessions["acc-1"]
	env.members.mu.Unlock()
	assert.False(t, stillThere, "expired slot should be cleared from the store")
}

func TestVerifyWrongPrincipalKind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	_, err = env.mgr.Verify(ctx, token, model.RoleAdmin)
	requireKind(t, err, KindAccessDenied)
}

func TestVerifyStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	env.members.findErr = errors.New("connection refused")

	_, err = env.mgr.Verify(ctx, token, "")
	requireKind(t, err, KindDependencyFailure)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 503, ae.Status())
}

func TestVerifyCacheFastPathSkipsStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	_, err = env.mgr.Verify(ctx, token, "")
	require.NoError(t, err)

	// store goes down; the cached verification keeps answering
	env.members.findErr = errors.New("connection refused")
	_, err = env.mgr.Verify(ctx, token, "")
	require.NoError(t, err)

	// past the cache window the store failure surfaces
	env.clk.Advance(CacheTTL + time.Second)
	_, err = env.mgr.Verify(ctx, token, "")
	requireKind(t, err, KindDependencyFailure)
}

func TestActiveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	active, err := env.mgr.ActiveSession(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	_, sessionID, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)

	active, err = env.mgr.ActiveSession(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sessionID, active.SessionID)

	env.clk.Advance(SessionTTL + time.Minute)
	active, err = env.mgr.ActiveSession(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAdminAndMemberStoresAreSeparate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// same account id in both stores, sessions must not collide
	mToken, _, err := env.mgr.SignIn(ctx, model.RoleMember, "acc-1")
	require.NoError(t, err)
	aToken, _, err := env.mgr.SignIn(ctx, model.RoleAdmin, "acc-1")
	require.NoError(t, err)

	mid, err := env.mgr.Verify(ctx, mToken, "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, mid.Role)

	aid, err := env.mgr.Verify(ctx, aToken, "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, aid.Role)
}
