package jwt_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/token"
	"github.com/jrsteele09/go-session-gateway/token/jwt"
	"github.com/jrsteele09/go-session-gateway/token/keys"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	creator   *jwt.Creator
	inspector *jwt.Inspector
	revoked   *token.RevocationList
	user      *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	signer, err := keys.NewHMACSigner("test-secret", "k1")
	require.NoError(t, err)

	revoked := token.NewRevocationList()
	return &testFixture{
		creator:   jwt.NewCreator("http://issuer.test", 30*time.Minute, signer),
		inspector: jwt.NewInspector("http://issuer.test", signer, revoked),
		revoked:   revoked,
		user:      &users.User{ID: "u-1", Email: "ada@example.com", TenantID: "t-1", Role: users.RoleOwner},
	}
}

func TestCreateAndIntrospect(t *testing.T) {
	f := setupTestFixture(t)

	raw, exp, err := f.creator.CreateAccessToken(f.user)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)
	require.EqualValues(t, 1800, f.creator.ExpiresIn())

	ti, err := f.inspector.Introspect(raw)
	require.NoError(t, err)
	require.True(t, ti.Active)
	require.Equal(t, "ada@example.com", ti.Sub)
	require.Equal(t, "u-1", ti.UserID)
	require.Equal(t, "t-1", ti.TenantID)
	require.NotEmpty(t, ti.JTI)

	// the client-side unverified view agrees with the verified one
	c, err := credentials.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, ti.Sub, c.Subject)
	require.Equal(t, ti.UserID, c.UserID)
}

func TestIntrospect_Rejections(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("empty", func(t *testing.T) {
		ti, err := f.inspector.Introspect("  ")
		require.NoError(t, err)
		require.False(t, ti.Active)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := keys.NewHMACSigner("other-secret", "")
		require.NoError(t, err)
		raw, _, err := jwt.NewCreator("http://issuer.test", time.Minute, other).CreateAccessToken(f.user)
		require.NoError(t, err)

		ti, err := f.inspector.Introspect(raw)
		require.Error(t, err)
		require.False(t, ti.Active)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		signer, err := keys.NewHMACSigner("test-secret", "")
		require.NoError(t, err)
		raw, _, err := jwt.NewCreator("http://elsewhere.test", time.Minute, signer).CreateAccessToken(f.user)
		require.NoError(t, err)

		ti, _ := f.inspector.Introspect(raw)
		require.False(t, ti.Active)
	})

	t.Run("expired", func(t *testing.T) {
		jwt.NowTimeFunc = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, _, err := f.creator.CreateAccessToken(f.user)
		jwt.NowTimeFunc = time.Now
		require.NoError(t, err)

		ti, _ := f.inspector.Introspect(raw)
		require.False(t, ti.Active)
	})

	t.Run("revoked", func(t *testing.T) {
		raw, exp, err := f.creator.CreateAccessToken(f.user)
		require.NoError(t, err)
		ti, err := f.inspector.Introspect(raw)
		require.NoError(t, err)

		f.revoked.Revoke(ti.JTI, exp)
		ti, err = f.inspector.Introspect(raw)
		require.NoError(t, err)
		require.False(t, ti.Active)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{"sub": "x", "iss": "http://issuer.test"})
		raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		ti, _ := f.inspector.Introspect(raw)
		require.False(t, ti.Active)
	})
}

func TestNewHMACSigner_RequiresSecret(t *testing.T) {
	_, err := keys.NewHMACSigner("", "")
	require.Error(t, err)
}
