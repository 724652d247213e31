package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Endpoints locates the backend's authentication endpoints. Paths are
// resolved against the gateway's base URL; absolute URLs are used as is.
type Endpoints struct {
	TokenPath    string
	RefreshPath  string
	IdentityPath string
	RegisterPath string
}

// DefaultEndpoints returns the paths served by the bundled backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		TokenPath:    "/auth/token",
		RefreshPath:  "/auth/refresh",
		IdentityPath: "/auth/me",
		RegisterPath: "/auth/register",
	}
}

// providerExtras are the non-standard discovery fields published by the
// backend.
type providerExtras struct {
	RefreshEndpoint      string `json:"refresh_endpoint"`
	RegistrationEndpoint string `json:"registration_endpoint"`
}

// Discover reads the issuer's OpenID discovery document and returns the
// endpoints it advertises. Fields the document omits keep their defaults,
// except the refresh endpoint which falls back to the token endpoint as
// plain OAuth2 servers expect.
func Discover(ctx context.Context, issuer string, client *http.Client) (Endpoints, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("[Discover] discovery failed for %s: %w", issuer, err)
	}

	var extras providerExtras
	if err := provider.Claims(&extras); err != nil {
		return Endpoints{}, fmt.Errorf("[Discover] reading discovery document: %w", err)
	}

	ep := DefaultEndpoints()
	if tokenURL := provider.Endpoint().TokenURL; tokenURL != "" {
		ep.TokenPath = tokenURL
		ep.RefreshPath = tokenURL
	}
	if extras.RefreshEndpoint != "" {
		ep.RefreshPath = extras.RefreshEndpoint
	}
	if userInfo := provider.UserInfoEndpoint(); userInfo != "" {
		ep.IdentityPath = userInfo
	}
	if extras.RegistrationEndpoint != "" {
		ep.RegisterPath = extras.RegistrationEndpoint
	}
	return ep, nil
}
