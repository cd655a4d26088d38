package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// RequireAuth verifies the request's bearer token and puts the identity in
// the context. role "" accepts either principal kind; a concrete role also
// serves as the resolver's role hint.
func RequireAuth(sessions *auth.SessionManager, role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ResolveToken(r, role)
			identity, err := sessions.Verify(r.Context(), token, role)
			if err != nil {
				WriteAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WriteAuthError maps a verification failure to its HTTP status with the
// standard {success:false, message} body. Store failures are logged and
// surface as 503, never as "not authorized".
func WriteAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	msg := "unauthorized"
	var ae *auth.Error
	if errors.As(err, &ae) {
		status = ae.Status()
		msg = ae.Message
		if ae.Kind == auth.KindDependencyFailure {
			logger.Errorf("auth dependency failure: %v", ae)
			msg = "authorization temporarily unavailable"
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
