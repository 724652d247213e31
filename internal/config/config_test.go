package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "API_BASE_URL", "SESSION_REQUEST_TIMEOUT_SECONDS", "TOKEN_SIGNING_ALG", "OIDC_ISSUER_URL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	c := config.New()

	require.Equal(t, ":8000", c.GetPort())
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, "HS256", c.GetSigningAlg())
	require.Empty(t, c.GetIssuerURL())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_URL", "https://api.example.com/v2/")
	t.Setenv("SESSION_REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("ACCESS_TOKEN_EXPIRY_MINUTES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com/v2", c.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Minute, c.GetAccessTokenExpiry())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("http://a.test"))
	require.True(t, origins.IsAllowedOrigin("http://b.test"))
	require.Len(t, origins, 2)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "absent.env")))
	})

	t.Run("values are loaded", func(t *testing.T) {
		path := filepath.Join(dir, "good.env")
		require.NoError(t, os.WriteFile(path, []byte("SESSION_GATEWAY_DOTENV_TEST=loaded\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("SESSION_GATEWAY_DOTENV_TEST") })

		require.NoError(t, config.LoadDotEnv(path))
		require.Equal(t, "loaded", os.Getenv("SESSION_GATEWAY_DOTENV_TEST"))
	})

	t.Run("malformed file is reported", func(t *testing.T) {
		path := filepath.Join(dir, "bad.env")
		require.NoError(t, os.WriteFile(path, []byte("BAD-KEY=1\n"), 0o600))

		require.Error(t, config.LoadDotEnv(path))
	})
}
