package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/middleware"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
	"github.com/Scoutersq/campus-connect-sub001/internal/repository"
	"github.com/Scoutersq/campus-connect-sub001/internal/storage"
)

type AuthHandler struct {
	members       *repository.MemberRepository
	admins        *repository.AdminRepository
	sessions      *auth.SessionManager
	bridge        *auth.RealtimeAuthBridge
	volatile      storage.VolatileStore
	secureCookies bool
}

func NewAuthHandler(
	members *repository.MemberRepository,
	admins *repository.AdminRepository,
	sessions *auth.SessionManager,
	bridge *auth.RealtimeAuthBridge,
	volatile storage.VolatileStore,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		members:       members,
		admins:        admins,
		sessions:      sessions,
		bridge:        bridge,
		volatile:      volatile,
		secureCookies: secureCookies,
	}
}

type signInRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
	// AllowTakeover selects the policy for an already-active session:
	// true supersedes it, false answers 409.
	AllowTakeover bool `json:"allow_takeover"`
}

func (h *AuthHandler) MemberSignIn(w http.ResponseWriter, r *http.Request) {
	h.signIn(w, r, model.RoleMember)
}

func (h *AuthHandler) AdminSignIn(w http.ResponseWriter, r *http.Request) {
	h.signIn(w, r, model.RoleAdmin)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, role model.Role) {
	defer logger.DeferLogDuration("auth.signIn", time.Now())()
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LoginID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login_id and password are required")
		return
	}

	allowed, err := h.volatile.CheckSignInRateLimit(r.Context(), req.LoginID)
	if err != nil {
		logger.Errorf("sign-in rate limit check login=%s: %v", req.LoginID, err)
		writeError(w, http.StatusServiceUnavailable, "authorization temporarily unavailable")
		return
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many sign-in attempts, try again later")
		return
	}

	accountID, passwordHash, account, err := h.lookupAccount(r, role, req.LoginID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger.Errorf("sign-in lookup login=%s: %v", req.LoginID, err)
		writeError(w, http.StatusServiceUnavailable, "authorization temporarily unavailable")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !req.AllowTakeover {
		active, err := h.sessions.ActiveSession(r.Context(), role, accountID)
		if err != nil {
			middleware.WriteAuthError(w, err)
			return
		}
		if active != nil {
			writeError(w, http.StatusConflict, "already signed in on another device")
			return
		}
	}

	token, sessionID, err := h.sessions.SignIn(r.Context(), role, accountID)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}
	h.setTokenCookie(w, auth.CookieFor(role), token, int(auth.TokenTTL.Seconds()))
	logger.Infof("sign-in role=%s account=%s session=%s", role, accountID, middleware.MaskSessionID(sessionID))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"account": account,
	})
}

func (h *AuthHandler) lookupAccount(r *http.Request, role model.Role, loginID string) (accountID, passwordHash string, public any, err error) {
	switch role {
	case model.RoleAdmin:
		a, err := h.admins.GetByLoginID(r.Context(), loginID)
		if err != nil {
			return "", "", nil, err
		}
		return a.ID, a.PasswordHash, a.ToPublic(), nil
	default:
		m, err := h.members.GetByLoginID(r.Context(), loginID)
		if err != nil {
			return "", "", nil, err
		}
		return m.ID, m.PasswordHash, m.ToPublic(), nil
	}
}

// SignOut ends the caller's own session. Idempotent; conditioned on the
// caller's session id so a stale sign-out never kills a newer session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.SignOut(r.Context(), id.Role, id.AccountID, id.SessionID); err != nil {
		middleware.WriteAuthError(w, err)
		return
	}
	h.setTokenCookie(w, auth.CookieFor(id.Role), "", -1)
	h.setTokenCookie(w, auth.CookieToken, "", -1)
	logger.Infof("sign-out role=%s account=%s session=%s", id.Role, id.AccountID, middleware.MaskSessionID(id.SessionID))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me returns the verified identity with its profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.profileFor(r, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		logger.Errorf("me profile role=%s account=%s: %v", id.Role, id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"role":    id.Role,
		"account": profile,
	})
}

// RealtimeTicket issues a short-lived bridge token for the websocket
// handshake. The ticket inherits the caller's already-verified session.
func (h *AuthHandler) RealtimeTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snapshot, err := h.snapshotFor(r, id)
	if err != nil {
		logger.Errorf("realtime ticket profile role=%s account=%s: %v", id.Role, id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to issue ticket")
		return
	}
	ticket, err := h.bridge.Issue(id.Role, id.AccountID, id.SessionID, snapshot)
	if err != nil {
		logger.Errorf("realtime ticket issue account=%s: %v", id.AccountID, err)
		writeError(w, http.StatusInternalServerError, "failed to issue ticket")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"ticket":     ticket,
		"expires_in": int(auth.BridgeTTL.Seconds()),
	})
}

func (h *AuthHandler) profileFor(r *http.Request, id auth.Identity) (any, error) {
	switch id.Role {
	case model.RoleAdmin:
		a, err := h.admins.GetByID(r.Context(), id.AccountID)
		if err != nil {
			return nil, err
		}
		return a.ToPublic(), nil
	default:
		m, err := h.members.GetByID(r.Context(), id.AccountID)
		if err != nil {
			return nil, err
		}
		return m.ToPublic(), nil
	}
}

func (h *AuthHandler) snapshotFor(r *http.Request, id auth.Identity) (auth.ProfileSnapshot, error) {
	switch id.Role {
	case model.RoleAdmin:
		a, err := h.admins.GetByID(r.Context(), id.AccountID)
		if err != nil {
			return auth.ProfileSnapshot{}, err
		}
		return auth.ProfileSnapshot{Name: a.Name}, nil
	default:
		m, err := h.members.GetByID(r.Context(), id.AccountID)
		if err != nil {
			return auth.ProfileSnapshot{}, err
		}
		return auth.ProfileSnapshot{Name: m.Name, AvatarURL: m.AvatarURL}, nil
	}
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthLegacyGone answers the retired unauthenticated-session routes. The old
// scheme's tokens carry no session binding and fail verification anyway.
func AuthLegacyGone(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusGone, "this sign-in endpoint was retired; use /api/auth/member/sign-in or /api/auth/admin/sign-in")
}
