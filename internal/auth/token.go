package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

// TokenTTL is the bearer token's own expiry horizon. The persisted session
// expiry is enforced separately; revocation never waits for this.
const TokenTTL = 7 * 24 * time.Hour

// Claims is the bearer token claim set. SessionID binds the token to the
// account's single persisted session.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies bearer tokens. Each principal kind has its
// own secret; rotating a secret invalidates every outstanding token of that
// kind at once.
type TokenCodec struct {
	memberSecret []byte
	adminSecret  []byte
	now          func() time.Time
}

func NewTokenCodec(memberSecret, adminSecret []byte) *TokenCodec {
	return &TokenCodec{memberSecret: memberSecret, adminSecret: adminSecret, now: time.Now}
}

func (c *TokenCodec) secretFor(role model.Role) []byte {
	if role == model.RoleAdmin {
		return c.adminSecret
	}
	return c.memberSecret
}

// Sign issues a bearer token for the account under its role's secret,
// embedding the caller-chosen session id.
func (c *TokenCodec) Sign(role model.Role, accountID, sessionID string) (string, error) {
	now := c.now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secretFor(role))
}

// Decoded is the verified content of a bearer token.
type Decoded struct {
	Role      model.Role
	AccountID string
	SessionID string
}

// Decode verifies the token against the member secret, then the
// administrator secret, and returns the first kind that checks out.
// Tokens without a session binding fail even when validly signed: they
// predate the single-session scheme and must not authenticate.
func (c *TokenCodec) Decode(token string) (Decoded, error) {
	for _, role := range [2]model.Role{model.RoleMember, model.RoleAdmin} {
		secret := c.secretFor(role)
		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims,
			func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(c.now),
		)
		if err != nil || !parsed.Valid {
			continue
		}
		if claims.SessionID == "" || claims.Subject == "" {
			return Decoded{}, newError(KindInvalidToken, "token has no session binding")
		}
		return Decoded{Role: role, AccountID: claims.Subject, SessionID: claims.SessionID}, nil
	}
	return Decoded{}, newError(KindInvalidToken, "invalid token")
}
