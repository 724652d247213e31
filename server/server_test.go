package server_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-gateway/server"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew_SeedsOwnerOnce(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, ownerPassword, f.backend.SeededPassword())
	require.Equal(t, 1, f.users.Count())

	owner, err := f.users.GetByEmail(ownerEmail)
	require.NoError(t, err)
	require.Equal(t, users.RoleOwner, owner.Role)
	require.NotEmpty(t, owner.TenantID)

	again, err := server.New(f.cfg, server.Repos{Users: f.users, RefreshTokens: f.refresh},
		server.WithLogger(zerolog.Nop()), server.WithRouteLog(nil))
	require.NoError(t, err)
	require.Empty(t, again.SeededPassword())
	require.Equal(t, 1, f.users.Count())
}

func TestToken_PasswordGrant(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("form body", func(t *testing.T) {
		tr := f.signIn(t)
		require.NotEmpty(t, tr.AccessToken)
		require.NotEmpty(t, tr.RefreshToken)
		require.Equal(t, "bearer", tr.TokenType)
		require.EqualValues(t, 1800, tr.ExpiresIn)
	})

	t.Run("json body", func(t *testing.T) {
		resp, body := f.postJSON(t, server.RouteAuthToken,
			`{"username":"`+ownerEmail+`","password":"`+ownerPassword+`"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, body := f.postForm(t, server.RouteAuthToken, url.Values{
			"grant_type": {"password"},
			"username":   {ownerEmail},
			"password":   {"nope"},
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid_grant", body["error"])
		require.Equal(t, "Incorrect email or password", body["detail"])
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := f.postForm(t, server.RouteAuthToken, url.Values{
			"username": {"ghost@example.com"},
			"password": {ownerPassword},
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unsupported grant", func(t *testing.T) {
		resp, body := f.postForm(t, server.RouteAuthToken, url.Values{"grant_type": {"client_credentials"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "unsupported_grant_type", body["error"])
	})

	t.Run("records last login", func(t *testing.T) {
		owner, err := f.users.GetByEmail(ownerEmail)
		require.NoError(t, err)
		require.NotNil(t, owner.LastLoginAt)
	})
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	tr := f.signIn(t)

	resp, body := f.getWithToken(t, server.RouteAuthMe, tr.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var u users.User
	require.NoError(t, json.Unmarshal(body, &u))
	require.Equal(t, ownerEmail, u.Email)
	require.Equal(t, users.RoleOwner, u.Role)
	require.NotContains(t, string(body), "password")

	resp, _ = f.getWithToken(t, server.RouteAuthMe, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	resp, _ = f.getWithToken(t, server.RouteAuthMe, "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_ExpiredAccessToken(t *testing.T) {
	f := setupTestFixtureWithExpiry(t, time.Second)
	tr := f.signIn(t)

	require.Eventually(t, func() bool {
		resp, _ := f.getWithToken(t, server.RouteAuthMe, tr.AccessToken)
		return resp.StatusCode == http.StatusUnauthorized
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	f := setupTestFixture(t)
	tr := f.signIn(t)

	resp, body := f.postForm(t, server.RouteAuthRefresh, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tr.RefreshToken},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEqual(t, tr.RefreshToken, body["refresh_token"])

	next, _ := body["access_token"].(string)
	resp, _ = f.getWithToken(t, server.RouteAuthMe, next)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.postForm(t, server.RouteAuthRefresh, url.Values{"refresh_token": {tr.RefreshToken}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_grant", body["error"])
}

func TestToken_RefreshGrant(t *testing.T) {
	f := setupTestFixture(t)
	tr := f.signIn(t)

	resp, body := f.postForm(t, server.RouteAuthToken, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tr.RefreshToken},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["access_token"])
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.postJSON(t, server.RouteAuthRegister,
		`{"name":"Ada","email":"ada@example.com","password":"Analyt1cal"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "ada@example.com", body["email"])
	require.Equal(t, "owner", body["role"])

	owner, err := f.users.GetByEmail(ownerEmail)
	require.NoError(t, err)
	require.NotEqual(t, owner.TenantID, body["tenant_id"], "each registration gets its own tenant")

	t.Run("duplicate email", func(t *testing.T) {
		resp, body := f.postJSON(t, server.RouteAuthRegister,
			`{"name":"Ada","email":"ADA@example.com","password":"Analyt1cal"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "Email already registered", body["detail"])
	})

	t.Run("weak password", func(t *testing.T) {
		resp, body := f.postJSON(t, server.RouteAuthRegister,
			`{"name":"Bob","email":"bob@example.com","password":"short"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body["detail"], "at least 8 characters")
	})

	t.Run("missing name", func(t *testing.T) {
		resp, _ := f.postJSON(t, server.RouteAuthRegister,
			`{"email":"carol@example.com","password":"Analyt1cal"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t)
	tr := f.signIn(t)

	req, err := http.NewRequest(http.MethodPost, f.url(server.RouteAuthRevoke),
		stringsReader(url.Values{"refresh_token": {tr.RefreshToken}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tr.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.getWithToken(t, server.RouteAuthMe, tr.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, f.refresh.Len())
}

func TestLeads_RequireToken(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.getWithToken(t, server.RouteLeads, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := f.getWithToken(t, server.RouteLeads, f.signIn(t).AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var leads []server.Lead
	require.NoError(t, json.Unmarshal(body, &leads))
	require.Len(t, leads, 2)
	require.NotEmpty(t, leads[0].TenantID)
}

func TestWellKnownOpenIDConfig(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.getWithToken(t, server.RouteWellKnownOpenIDConfig, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Equal(t, f.srv.URL, doc["issuer"])
	require.Equal(t, f.srv.URL+server.RouteAuthToken, doc["token_endpoint"])
	require.Equal(t, f.srv.URL+server.RouteAuthRefresh, doc["refresh_endpoint"])
	require.Equal(t, f.srv.URL+server.RouteAuthMe, doc["userinfo_endpoint"])
}

func TestPreflight(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.url(server.RouteAuthToken), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestJWKS_EmptyForSharedSecret(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.getWithToken(t, server.RouteWellKnownJWKS, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"keys":[]}`, string(body))
}

func TestRS256Backend(t *testing.T) {
	f := setupTestFixtureWith(t, 30*time.Minute, "RS256")

	tr := f.signIn(t)
	resp, _ := f.getWithToken(t, server.RouteAuthMe, tr.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.getWithToken(t, server.RouteWellKnownJWKS, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set map[string][]map[string]any
	require.NoError(t, json.Unmarshal(body, &set))
	require.Len(t, set["keys"], 1)
	require.Equal(t, "RS256", set["keys"][0]["alg"])
}
