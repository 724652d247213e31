package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-gateway/token/keys"
)

// WellKnownOpenIDConfig publishes the endpoint layout. refresh_endpoint and
// registration_endpoint are extensions read by session.Discover.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		base := s.config.GetBaseURL()
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                                s.config.GetTokenIssuer(),
			"token_endpoint":                        base + RouteAuthToken,
			"refresh_endpoint":                      base + RouteAuthRefresh,
			"userinfo_endpoint":                     base + RouteAuthMe,
			"registration_endpoint":                 base + RouteAuthRegister,
			"revocation_endpoint":                   base + RouteAuthRevoke,
			"jwks_uri":                              base + RouteWellKnownJWKS,
			"grant_types_supported":                 []string{"password", "refresh_token"},
			"response_types_supported":              []string{"token"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{s.signer.GetSigningMethod().Alg()},
			"token_endpoint_auth_methods_supported": []string{"none"},
		})
	}
}

// JWKS publishes the verification keys. A shared-secret signer has none.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		set := keys.JWKS{Keys: []keys.JWK{}}
		if pub, ok := s.signer.(keys.KeySetPublisher); ok {
			set = pub.JWKS()
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		writeJSON(w, http.StatusOK, set)
	}
}
