// Package middleware holds the net/http middleware shared by the dev
// backend and the app shell.
package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/rs/zerolog"
)

type Func = func(http.HandlerFunc) http.HandlerFunc

// Chain wraps h so that mw[0] runs first.
func Chain(h http.HandlerFunc, mw ...Func) http.HandlerFunc {
	chained := h
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen),
	http.MethodPost:   color.New(color.FgBlue),
	http.MethodPut:    color.New(color.FgCyan),
	http.MethodDelete: color.New(color.FgYellow),
	http.MethodPatch:  color.New(color.FgMagenta),
}

var otherMethod = color.New(color.FgHiBlack)

// LogRoute writes one "[ METHOD ] path" line with the method coloured.
func LogRoute(w io.Writer, method, path string) {
	c, ok := methodColors[method]
	if !ok {
		c = otherMethod
	}
	fmt.Fprintf(w, "[%s] %s\n", c.Sprintf(" %-7s", method), path)
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every request at debug level, and 5xx responses as errors.
func Logging(logger zerolog.Logger) Func {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r)

			ev := logger.Debug()
			if rec.status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("request_id", r.Header.Get("X-Request-ID")).
				Msg("request")
		}
	}
}

// Recover turns a handler panic into a 500.
func Recover(logger zerolog.Logger) Func {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					logger.Error().
						Interface("panic", rv).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("recovered from panic")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next(w, r)
		}
	}
}

// FrameSecurity prevents pages from being embedded by other sites.
func FrameSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

// Cors answers preflight requests and tags responses for allowed origins.
// A "*" entry allows any origin without credentials.
func Cors(cfg config.CorsConfig) Func {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next(w, r)
				return
			}

			allowed := cfg.GetAllowedOrigins()
			isAllowed := allowed.IsAllowedOrigin(origin)
			isWildcard := allowed.IsAllowedOrigin("*")

			switch {
			case isAllowed:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			case isWildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				if isAllowed || isWildcard {
					w.Header().Set("Access-Control-Allow-Methods", cfg.GetAllowedMethods())
					w.Header().Set("Access-Control-Allow-Headers", cfg.GetAllowedHeaders())
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
				// the browser blocks the real request when no headers were set
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next(w, r)
		}
	}
}
