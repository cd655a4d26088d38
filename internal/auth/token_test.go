package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scoutersq/campus-connect-sub001/internal/model"
)

func newTestCodec(clk *fakeClock) *TokenCodec {
	c := NewTokenCodec([]byte("member-secret"), []byte("admin-secret"))
	c.now = clk.Now
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(newFakeClock())

	token, err := codec.Sign(model.RoleMember, "acc-1", "sess-1")
	require.NoError(t, err)

	dec, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, dec.Role)
	assert.Equal(t, "acc-1", dec.AccountID)
	assert.Equal(t, "sess-1", dec.SessionID)
}

func TestCodecAdminSecret(t *testing.T) {
	codec := newTestCodec(newFakeClock())

	token, err := codec.Sign(model.RoleAdmin, "adm-1", "sess-9")
	require.NoError(t, err)

	dec, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, dec.Role)
	assert.Equal(t, "adm-1", dec.AccountID)
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := newTestCodec(newFakeClock())
	_, err := codec.Decode("not-a-token")
	requireKind(t, err, KindInvalidToken)
}

func TestCodecRejectsForeignSignature(t *testing.T) {
	codec := newTestCodec(newFakeClock())
	other := NewTokenCodec([]byte("other-member"), []byte("other-admin"))
	other.now = codec.now

	token, err := other.Sign(model.RoleMember, "acc-1", "sess-1")
	require.NoError(t, err)

	_, err = codec.Decode(token)
	requireKind(t, err, KindInvalidToken)
}

func TestCodecRejectsTokenWithoutSessionBinding(t *testing.T) {
	clk := newFakeClock()
	codec := newTestCodec(clk)

	// validly signed, but predates the session scheme: no sid claim
	now := clk.Now()
	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acc-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token, err := legacy.SignedString([]byte("member-secret"))
	require.NoError(t, err)

	_, err = codec.Decode(token)
	requireKind(t, err, KindInvalidToken)
}

func TestCodecRejectsExpiredToken(t *testing.T) {
	clk := newFakeClock()
	codec := newTestCodec(clk)

	token, err := codec.Sign(model.RoleMember, "acc-1", "sess-1")
	require.NoError(t, err)

	clk.Advance(TokenTTL + time.Minute)
	_, err = codec.Decode(token)
	requireKind(t, err, KindInvalidToken)
}

func TestCodecRejectsUnsignedAlg(t *testing.T) {
	clk := newFakeClock()
	codec := newTestCodec(clk)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		SessionID: "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	requireKind(t, err, KindInvalidToken)
}
