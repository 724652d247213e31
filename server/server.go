// Package server is the development identity backend. It serves the token,
// refresh, identity and registration endpoints the session gateway talks
// to, with HS256 access tokens and rotating opaque refresh tokens.
package server

import (
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/jrsteele09/go-session-gateway/internal/middleware"
	"github.com/jrsteele09/go-session-gateway/token"
	"github.com/jrsteele09/go-session-gateway/token/jwt"
	"github.com/jrsteele09/go-session-gateway/token/keys"
	"github.com/jrsteele09/go-session-gateway/token/refresh"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Repos are the stores the backend keeps its state in.
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	repos     Repos
	logger    zerolog.Logger
	routeLog  io.Writer
	signer    keys.Signer
	creator   *jwt.Creator
	inspector *jwt.Inspector
	refresh   *refresh.Manager
	revoked   *token.RevocationList

	seededPassword string
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRouteLog sets where the route table is printed in DEV. Nil disables it.
func WithRouteLog(w io.Writer) Option {
	return func(s *Server) { s.routeLog = w }
}

func New(cfg config.Config, repos Repos, opts ...Option) (*Server, error) {
	signer, err := keys.NewSigner(cfg.GetSigningAlg(), cfg.GetSigningSecret(), cfg.GetSigningKeyFile(), "dev")
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create token signer")
	}

	revoked := token.NewRevocationList()
	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		repos:     repos,
		logger:    log.With().Str("component", "server").Logger(),
		routeLog:  os.Stdout,
		signer:    signer,
		creator:   jwt.NewCreator(cfg.GetTokenIssuer(), cfg.GetAccessTokenExpiry(), signer),
		inspector: jwt.NewInspector(cfg.GetTokenIssuer(), signer, revoked),
		refresh:   refresh.NewManager(repos.RefreshTokens, cfg.GetRefreshTokenLength(), cfg.GetRefreshTokenExpiry()),
		revoked:   revoked,
	}
	for _, opt := range opts {
		opt(s)
	}

	generated, err := s.InitialiseSystem()
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to initialise the system")
	}
	s.seededPassword = generated

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SeededPassword is the owner password created at startup, or "" when the
// owner already existed.
func (s *Server) SeededPassword() string {
	return s.seededPassword
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" || s.routeLog == nil {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		middleware.LogRoute(s.routeLog, method, path)
	}
}

// RevokeSessions invalidates every refresh token of the user. Access tokens
// already issued stay valid until they expire.
func (s *Server) RevokeSessions(userID string) error {
	return errors.Wrap(s.refresh.RevokeUser(userID), "[Server RevokeSessions]")
}
