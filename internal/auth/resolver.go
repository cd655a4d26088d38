package auth

import (
	"net/http"
	"strings"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// Cookie and header names shared with the web clients.
const (
	CookieMemberToken = "cc_member_token"
	CookieAdminToken  = "cc_admin_token"
	CookieToken       = "cc_token"
	HeaderRole        = "X-Client-Role"
)

// CookieFor returns the role-specific cookie name tokens are delivered in.
func CookieFor(role model.Role) string {
	if role == model.RoleAdmin {
		return CookieAdminToken
	}
	return CookieMemberToken
}

// ResolveToken picks the candidate bearer token for a request. With a role
// hint (parameter, or the X-Client-Role header) the role-specific cookie
// wins over the generic one; without a hint the role cookies are tried in a
// fixed order, then the generic cookie, then an Authorization Bearer header.
// Returns "" when the request carries no token at all.
func ResolveToken(r *http.Request, roleHint model.Role) string {
	if roleHint == "" {
		roleHint = model.ParseRole(r.Header.Get(HeaderRole))
	}
	var names []string
	switch roleHint {
	case model.RoleMember:
		names = []string{CookieMemberToken, CookieToken}
	case model.RoleAdmin:
		names = []string{CookieAdminToken, CookieToken}
	default:
		names = []string{CookieMemberToken, CookieAdminToken, CookieToken}
	}
	for _, name := range names {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if roleHint == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
				return tok
			}
		}
	}
	return ""
}
