// Package shell is the HTTP host of the application's views. It mounts the
// route table behind route guards and offers the sign in and sign out
// endpoints that drive the session machine.
package shell

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-gateway/gateway"
	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/jrsteele09/go-session-gateway/internal/middleware"
	"github.com/jrsteele09/go-session-gateway/routeguard"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteLogin         = "/login"
	RouteLogout        = "/logout"
	RouteWhoAmI        = "/whoami"
	RouteNotAuthorized = "/not-authorized"
	RouteMetrics       = "/metrics"
	RouteAPIProxy      = "/api/"

	defaultLanding = "/dashboard"
)

// Session is what the shell needs from *session.Machine.
type Session interface {
	routeguard.Source
	Login(ctx context.Context, email, password string) (*users.User, error)
	Logout()
}

// API issues authenticated backend calls; *gateway.Gateway in production.
type API interface {
	Get(ctx context.Context, path string) (*gateway.Response, error)
}

type Shell struct {
	session   Session
	api       API
	routes    []routeguard.Route
	redirects routeguard.Redirects
	cors      config.CorsConfig
	gatherer  prometheus.Gatherer
	logger    zerolog.Logger
	mux       *http.ServeMux
}

type Option func(*Shell)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

func WithRoutes(routes []routeguard.Route) Option {
	return func(s *Shell) { s.routes = routes }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Shell) { s.gatherer = g }
}

func WithCors(c config.CorsConfig) Option {
	return func(s *Shell) { s.cors = c }
}

func New(sess Session, api API, opts ...Option) *Shell {
	s := &Shell{
		session:   sess,
		api:       api,
		routes:    routeguard.DefaultRoutes(),
		redirects: routeguard.DefaultRedirects(),
		logger:    log.With().Str("component", "shell").Logger(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Shell) chain(h http.HandlerFunc, mw ...middleware.Func) http.HandlerFunc {
	base := []middleware.Func{
		middleware.Logging(s.logger),
		middleware.Recover(s.logger),
		middleware.FrameSecurity,
	}
	return middleware.Chain(h, append(base, mw...)...)
}

func (s *Shell) initRoutes() {
	s.mux.HandleFunc("GET "+RouteLogin, s.chain(s.LoginPageHandler()))
	s.mux.HandleFunc("POST "+RouteLogin, s.chain(s.LoginSubmitHandler()))
	s.mux.HandleFunc("POST "+RouteLogout, s.chain(s.LogoutHandler()))
	s.mux.HandleFunc("GET "+RouteWhoAmI, s.chain(s.WhoAmIHandler()))
	s.mux.HandleFunc("GET "+RouteNotAuthorized, s.chain(s.NotAuthorizedHandler()))

	apiMW := []middleware.Func{routeguard.Middleware(s.session, routeguard.Authenticated(), s.redirects)}
	if s.cors != nil {
		apiMW = append([]middleware.Func{middleware.Cors(s.cors)}, apiMW...)
	}
	s.mux.HandleFunc("GET "+RouteAPIProxy+"{path...}", s.chain(s.APIProxyHandler(), apiMW...))

	if s.gatherer != nil {
		s.mux.Handle("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	for _, route := range s.routes {
		guard := routeguard.Middleware(s.session, route.Guard(), s.redirects)
		s.mux.HandleFunc("GET "+route.Path, s.chain(s.PageHandler(route), guard))
	}
	if !s.hasRoute("/") {
		s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, defaultLanding, http.StatusSeeOther)
		})
	}
}

func (s *Shell) hasRoute(path string) bool {
	for _, r := range s.routes {
		if r.Path == path {
			return true
		}
	}
	return false
}

// safeNext keeps post-login redirects on this host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultLanding
	}
	return next
}
