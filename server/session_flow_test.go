package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/gateway"
	"github.com/jrsteele09/go-session-gateway/server"
	"github.com/jrsteele09/go-session-gateway/session"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, f *testFixture, kv credentials.KV, discover bool) (*session.Machine, *gateway.Gateway) {
	t.Helper()
	vault := credentials.NewVault(kv, credentials.WithLogger(zerolog.Nop()))
	gw, err := gateway.New(f.srv.URL+server.RouteAPIPrefix, vault,
		gateway.WithHTTPClient(f.srv.Client()),
		gateway.WithTimeout(5*time.Second),
		gateway.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	opts := []session.MachineOption{session.WithLogger(zerolog.Nop())}
	if discover {
		ep, err := session.Discover(context.Background(), f.srv.URL, f.srv.Client())
		require.NoError(t, err)
		opts = append(opts, session.WithEndpoints(ep))
	}
	m, err := session.New(gw, vault, opts...)
	require.NoError(t, err)
	return m, gw
}

func TestSessionFlow_LoginAndBootstrap(t *testing.T) {
	f := setupTestFixture(t)
	kv := credentials.NewMemoryKV()
	ctx := context.Background()

	m, _ := newClient(t, f, kv, false)
	require.NoError(t, m.Bootstrap(ctx))
	require.Equal(t, session.Unauthenticated, m.Snapshot().Status)

	user, err := m.Login(ctx, ownerEmail, ownerPassword)
	require.NoError(t, err)
	require.Equal(t, ownerEmail, user.Email)
	require.Equal(t, users.RoleOwner, user.Role)

	// a fresh process over the same store resolves the same user
	again, _ := newClient(t, f, kv, false)
	require.NoError(t, again.Bootstrap(ctx))
	st := again.Snapshot()
	require.Equal(t, session.Authenticated, st.Status)
	require.Equal(t, user.ID, st.User.ID)

	_, err = m.Login(ctx, ownerEmail, "wrong")
	require.True(t, session.IsSignInRequired(err))
}

func TestSessionFlow_RegisterWithDiscovery(t *testing.T) {
	f := setupTestFixture(t)
	m, _ := newClient(t, f, credentials.NewMemoryKV(), true)

	user, err := m.Register(context.Background(), "Grace", "grace@example.com", "C0bolRocks")
	require.NoError(t, err)
	require.Equal(t, "grace@example.com", user.Email)
	require.Equal(t, session.Authenticated, m.Snapshot().Status)

	_, err = m.Register(context.Background(), "Grace", "grace@example.com", "C0bolRocks")
	require.ErrorIs(t, err, session.ErrRegistrationRejected)
}

func TestSessionFlow_TransparentRefresh(t *testing.T) {
	f := setupTestFixtureWithExpiry(t, time.Second)
	kv := credentials.NewMemoryKV()
	ctx := context.Background()

	m, gw := newClient(t, f, kv, true)
	_, err := m.Login(ctx, ownerEmail, ownerPassword)
	require.NoError(t, err)

	before, _, err := kv.Get(credentials.RefreshTokenKey)
	require.NoError(t, err)
	access, _, err := kv.Get(credentials.AccessTokenKey)
	require.NoError(t, err)
	claims, err := credentials.Inspect(access)
	require.NoError(t, err)
	time.Sleep(time.Until(claims.ExpiresAt) + 50*time.Millisecond)

	resp, err := gw.Get(ctx, "/leads")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var leads []server.Lead
	require.NoError(t, json.Unmarshal(resp.Body, &leads))
	require.NotEmpty(t, leads)

	after, _, err := kv.Get(credentials.RefreshTokenKey)
	require.NoError(t, err)
	require.NotEqual(t, before, after, "refresh token rotated")
	require.Equal(t, session.Authenticated, m.Snapshot().Status)
}

func TestSessionFlow_RevokedRefreshForcesLogout(t *testing.T) {
	f := setupTestFixtureWithExpiry(t, time.Second)
	kv := credentials.NewMemoryKV()
	ctx := context.Background()

	m, gw := newClient(t, f, kv, false)
	user, err := m.Login(ctx, ownerEmail, ownerPassword)
	require.NoError(t, err)

	var last session.State
	m.Subscribe(func(st session.State) { last = st })

	require.NoError(t, f.backend.RevokeSessions(user.ID))
	time.Sleep(1100 * time.Millisecond)

	_, err = gw.Get(ctx, "/leads")
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	require.Equal(t, session.Unauthenticated, m.Snapshot().Status)
	require.Equal(t, session.Unauthenticated, last.Status)

	_, ok, err := kv.Get(credentials.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)
}
