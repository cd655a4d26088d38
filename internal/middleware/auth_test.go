package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

type stubStore struct {
	sessions map[string]*auth.StoredSession
	err      error
}

func (s *stubStore) FindSession(_ context.Context, accountID string) (*auth.StoredSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sessions[accountID], nil
}

func (s *stubStore) SetSession(_ context.Context, accountID, sessionID string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.sessions[accountID] = &auth.StoredSession{SessionID: sessionID, ExpiresAt: expiresAt}
	return nil
}

func (s *stubStore) ClearSession(_ context.Context, accountID, expectedSessionID string) error {
	if s.err != nil {
		return s.err
	}
	stored, ok := s.sessions[accountID]
	if ok && (expectedSessionID == "" || stored.SessionID == expectedSessionID) {
		delete(s.sessions, accountID)
	}
	return nil
}

func newTestSessions(members *stubStore) *auth.SessionManager {
	codec := auth.NewTokenCodec([]byte("member-secret"), []byte("admin-secret"))
	cache := auth.NewVerificationCache(auth.CacheTTL)
	return auth.NewSessionManager(codec, members, &stubStore{sessions: map[string]*auth.StoredSession{}}, cache)
}

func authedRequest(t *testing.T, sessions *auth.SessionManager) *http.Request {
	t.Helper()
	token, _, err := sessions.SignIn(context.Background(), model.RoleMember, "acc-1")
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: auth.CookieToken, Value: token})
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRequireAuthPassesIdentity(t *testing.T) {
	members := &stubStore{sessions: map[string]*auth.StoredSession{}}
	sessions := newTestSessions(members)
	r := authedRequest(t, sessions)

	var seen auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequireAuth(sessions, "")(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", seen.AccountID)
	assert.Equal(t, model.RoleMember, seen.Role)
}

func TestRequireAuthNoToken(t *testing.T) {
	sessions := newTestSessions(&stubStore{sessions: map[string]*auth.StoredSession{}})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	RequireAuth(sessions, "")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestRequireAuthWrongRole(t *testing.T) {
	members := &stubStore{sessions: map[string]*auth.StoredSession{}}
	sessions := newTestSessions(members)
	r := authedRequest(t, sessions)

	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	RequireAuth(sessions, model.RoleAdmin)(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuthStoreDown(t *testing.T) {
	members := &stubStore{sessions: map[string]*auth.StoredSession{}}
	sessions := newTestSessions(members)
	r := authedRequest(t, sessions)
	members.err = errors.New("connection refused")

	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	RequireAuth(sessions, "")(next).ServeHTTP(rec, r)

	// a store outage is never reported as "not authorized"
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "authorization temporarily unavailable", body["message"])
}

func TestRequireAuthRevokedSession(t *testing.T) {
	members := &stubStore{sessions: map[string]*auth.StoredSession{}}
	sessions := newTestSessions(members)
	r := authedRequest(t, sessions)

	// session cleared out-of-band (admin action, expiry job)
	require.NoError(t, members.ClearSession(context.Background(), "acc-1", ""))

	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	RequireAuth(sessions, "")(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
