package routeguard

import (
	"net/http"
	"net/url"
)

// Redirects are the targets used by Middleware.
type Redirects struct {
	Login     string
	Forbidden string
}

func DefaultRedirects() Redirects {
	return Redirects{Login: "/login", Forbidden: "/not-authorized"}
}

// Middleware evaluates g on every request. A session that is still loading
// is answered with 503 and Retry-After so the client asks again.
func Middleware(src Source, g Guard, to Redirects) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch g.Evaluate(src.Snapshot()) {
			case Render:
				next(w, r)
			case Wait:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session is loading", http.StatusServiceUnavailable)
			case RedirectForbidden:
				http.Redirect(w, r, to.Forbidden, http.StatusSeeOther)
			default:
				target := to.Login + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
			}
		}
	}
}
