package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/jrsteele09/go-session-gateway/server"
	refreshrepofake "github.com/jrsteele09/go-session-gateway/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-gateway/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "Sup3rSecret"
)

// testConfig pins the values tests depend on and defers the rest to the
// environment defaults.
type testConfig struct {
	config.Config
	baseURL string
	expiry  time.Duration
	alg     string
}

func (c testConfig) GetBaseURL() string                  { return c.baseURL }
func (c testConfig) GetTokenIssuer() string              { return c.baseURL }
func (testConfig) GetSigningSecret() string              { return "test-secret" }
func (testConfig) GetSeedAdminEmail() string             { return ownerEmail }
func (testConfig) GetSeedAdminPassword() string          { return ownerPassword }
func (testConfig) GetEnv() string                        { return "TEST" }
func (c testConfig) GetAccessTokenExpiry() time.Duration { return c.expiry }
func (c testConfig) GetSigningAlg() string               { return c.alg }

func (testConfig) GetAllowedOrigins() config.AllowedOrigins {
	return config.AllowedOrigins{"http://localhost:3000": {}}
}

type testFixture struct {
	cfg     testConfig
	srv     *httptest.Server
	backend *server.Server
	users   *fakeuserrepo.FakeUserRepo
	refresh *refreshrepofake.FakeRefreshTokenRepo
}

func setupTestFixture(t *testing.T) *testFixture {
	return setupTestFixtureWith(t, 30*time.Minute, "HS256")
}

func setupTestFixtureWithExpiry(t *testing.T, expiry time.Duration) *testFixture {
	return setupTestFixtureWith(t, expiry, "HS256")
}

func setupTestFixtureWith(t *testing.T, expiry time.Duration, alg string) *testFixture {
	t.Helper()

	f := &testFixture{
		srv:     httptest.NewUnstartedServer(nil),
		users:   fakeuserrepo.NewFakeUserRepo(),
		refresh: refreshrepofake.NewFakeRefreshTokenRepo(),
	}
	f.cfg = testConfig{
		Config:  config.New(),
		baseURL: "http://" + f.srv.Listener.Addr().String(),
		expiry:  expiry,
		alg:     alg,
	}

	backend, err := server.New(f.cfg, server.Repos{Users: f.users, RefreshTokens: f.refresh},
		server.WithLogger(zerolog.Nop()), server.WithRouteLog(nil))
	require.NoError(t, err)
	f.backend = backend
	f.srv.Config.Handler = backend
	f.srv.Start()
	t.Cleanup(f.srv.Close)
	return f
}

func (f *testFixture) url(path string) string {
	return f.srv.URL + path
}

func (f *testFixture) postForm(t *testing.T, path string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.srv.Client().PostForm(f.url(path), form)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *testFixture) postJSON(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := f.srv.Client().Post(f.url(path), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *testFixture) getWithToken(t *testing.T, path, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.url(path), nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// signIn runs the password grant for the seeded owner.
func (f *testFixture) signIn(t *testing.T) server.TokenResponse {
	t.Helper()
	resp, err := f.srv.Client().PostForm(f.url(server.RouteAuthToken), url.Values{
		"grant_type": {"password"},
		"username":   {ownerEmail},
		"password":   {ownerPassword},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr server.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	return tr
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(body) == 0 {
		return nil
	}
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
