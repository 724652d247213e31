package shell

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-session-gateway/capability"
	"github.com/jrsteele09/go-session-gateway/gateway"
	"github.com/jrsteele09/go-session-gateway/routeguard"
	"github.com/jrsteele09/go-session-gateway/session"
	"github.com/jrsteele09/go-session-gateway/users"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>{{.Title}}</title></head>
<body>
{{if .User}}<nav>
{{range .Menu}}<a href="{{.Path}}">{{.Title}}</a>
{{end}}<form method="post" action="/logout"><button>Sign out {{.User.Name}}</button></form>
</nav>{{end}}
<h1>{{.Title}}</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Login}}<form method="post" action="/login">
<input type="hidden" name="next" value="{{.Next}}">
<input name="email" type="email" value="{{.Email}}" required>
<input name="password" type="password" required>
<button>Sign in</button>
</form>{{end}}
</body>
</html>
`))

type pageData struct {
	Title string
	User  *users.User
	Menu  []routeguard.Route
	Error string
	Login bool
	Next  string
	Email string
}

func (s *Shell) render(w http.ResponseWriter, status int, data pageData) {
	if data.User != nil {
		data.Menu = s.menu(data.User)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
	}
}

// menu lists the routes the user may open. Admin entries only show up for
// roles that can reach them.
func (s *Shell) menu(u *users.User) []routeguard.Route {
	var out []routeguard.Route
	for _, r := range s.routes {
		if r.Public || r.Capability == "" || capability.Visible(u, r.Capability) {
			out = append(out, r)
		}
	}
	return out
}

// PageHandler renders a route's view. The route guard has already run.
func (s *Shell) PageHandler(route routeguard.Route) http.HandlerFunc {
	title := route.Title
	if title == "" {
		title = route.Path
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		s.render(w, http.StatusOK, pageData{Title: title, User: s.session.Snapshot().User})
	}
}

func (s *Shell) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := safeNext(r.URL.Query().Get("next"))
		if s.session.Snapshot().Status == session.Authenticated {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
		s.render(w, http.StatusOK, pageData{Title: "Sign in", Login: true, Next: next})
	}
}

func (s *Shell) LoginSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.PostForm.Get("email")
		next := safeNext(r.PostForm.Get("next"))

		_, err := s.session.Login(r.Context(), email, r.PostForm.Get("password"))
		if err == nil {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}

		status, msg := http.StatusBadGateway, "The service is unavailable, please try again"
		if session.IsSignInRequired(err) {
			status, msg = http.StatusUnauthorized, "Incorrect email or password"
		}
		s.logger.Info().Err(err).Str("email", email).Msg("sign in failed")
		s.render(w, status, pageData{Title: "Sign in", Login: true, Next: next, Email: email, Error: msg})
	}
}

func (s *Shell) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout()
		http.Redirect(w, r, s.redirects.Login, http.StatusSeeOther)
	}
}

func (s *Shell) NotAuthorizedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.render(w, http.StatusForbidden, pageData{
			Title: "Not authorized",
			User:  s.session.Snapshot().User,
			Error: "You do not have access to this page.",
		})
	}
}

type whoAmI struct {
	Status string      `json:"status"`
	User   *users.User `json:"user,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// WhoAmIHandler reports the current session state as JSON.
func (s *Shell) WhoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := s.session.Snapshot()
		out := whoAmI{Status: st.Status.String(), User: st.User}
		if st.Reason != nil {
			out.Reason = st.Reason.Error()
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// APIProxyHandler forwards GET /api/<path> to the backend through the
// gateway, so the browser never holds the tokens.
func (s *Shell) APIProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := "/" + r.PathValue("path")
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		resp, err := s.api.Get(r.Context(), path)
		switch {
		case errors.Is(err, gateway.ErrSessionExpired):
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		case err != nil:
			s.logger.Warn().Err(err).Str("path", path).Msg("backend call failed")
			http.Error(w, "backend unavailable", http.StatusBadGateway)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(resp.Body)
	}
}
