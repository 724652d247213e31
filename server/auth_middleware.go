package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-gateway/token/jwt"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyToken stores the verified access token of the request
const ContextKeyToken ContextKey = "token"

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				writeJSONError(w, "unauthorized", "Not authenticated", http.StatusUnauthorized)
				return
			}

			ti, err := s.inspector.Introspect(raw)
			if err != nil || !ti.Active {
				if err != nil {
					s.logger.Debug().Err(err).Msg("access token rejected")
				}
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeJSONError(w, "invalid_token", "Could not validate credentials", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyToken, ti)))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, raw, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func tokenFromContext(ctx context.Context) *jwt.TokenIntrospection {
	ti, _ := ctx.Value(ContextKeyToken).(*jwt.TokenIntrospection)
	return ti
}
