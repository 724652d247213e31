package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-gateway/internal/middleware"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteFunc("GET "+RouteWellKnownOpenIDConfig, middleware.Chain(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteWellKnownJWKS, middleware.Chain(s.JWKS(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteAuthToken, middleware.Chain(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, middleware.Chain(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, middleware.Chain(s.RegisterHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteAuthMe, middleware.Chain(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAuthRevoke, middleware.Chain(s.RevokeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteLeads, middleware.Chain(s.LeadsHandler(), s.APIMiddleware(s.RequireAuth())...))

	// preflight for every API path
	s.RegisterRouteFunc("OPTIONS /", middleware.Chain(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}

// APIMiddleware is the chain every JSON endpoint runs behind, followed by mw.
func (s *Server) APIMiddleware(mw ...middleware.Func) []middleware.Func {
	chain := []middleware.Func{
		middleware.Logging(s.logger),
		middleware.Recover(s.logger),
		middleware.Cors(s.config),
	}
	return append(chain, mw...)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
