package server

// Route path constants
const (
	RouteAPIPrefix = "/api/v1"

	RouteAuthToken    = RouteAPIPrefix + "/auth/token"
	RouteAuthRefresh  = RouteAPIPrefix + "/auth/refresh"
	RouteAuthMe       = RouteAPIPrefix + "/auth/me"
	RouteAuthRegister = RouteAPIPrefix + "/auth/register"
	RouteAuthRevoke   = RouteAPIPrefix + "/auth/revoke"

	// Sample tenant data behind a bearer token
	RouteLeads = RouteAPIPrefix + "/leads"

	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteHealth                = "/healthz"
)
