package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/pkg/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// TokenResponse is the OAuth2 token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// tokenRequest carries both grants. Form and JSON bodies are accepted.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

func parseTokenRequest(r *http.Request) (tokenRequest, error) {
	var req tokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.Wrap(err, "invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, errors.Wrap(err, "invalid form body")
		}
		req = tokenRequest{
			GrantType:    r.PostForm.Get("grant_type"),
			Username:     r.PostForm.Get("username"),
			Password:     r.PostForm.Get("password"),
			RefreshToken: r.PostForm.Get("refresh_token"),
		}
	}
	if req.Username == "" {
		req.Username = req.Email
	}
	if req.GrantType == "" {
		req.GrantType = "password"
		if req.RefreshToken != "" && req.Username == "" {
			req.GrantType = "refresh_token"
		}
	}
	return req, nil
}

// TokenHandler serves the password grant, and the refresh_token grant for
// clients that only know the token endpoint.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseTokenRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		switch req.GrantType {
		case "password":
			s.passwordGrant(w, req)
		case "refresh_token":
			s.refreshGrant(w, req)
		default:
			writeJSONError(w, "unsupported_grant_type", "Unsupported grant type: "+req.GrantType, http.StatusBadRequest)
		}
	}
}

// RefreshHandler exchanges a refresh token for a new pair. The presented
// token is consumed.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseTokenRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		s.refreshGrant(w, req)
	}
}

func (s *Server) passwordGrant(w http.ResponseWriter, req tokenRequest) {
	if req.Username == "" || req.Password == "" {
		writeJSONError(w, "invalid_request", "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.repos.Users.GetByEmail(req.Username)
	if err != nil || !users.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.logger.Info().Str("email", req.Username).Msg("sign in rejected")
		writeJSONError(w, "invalid_grant", "Incorrect email or password", http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		writeJSONError(w, "invalid_grant", "Account is disabled", http.StatusUnauthorized)
		return
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.repos.Users.Update(user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	s.issueTokens(w, user, "")
}

func (s *Server) refreshGrant(w http.ResponseWriter, req tokenRequest) {
	if req.RefreshToken == "" {
		writeJSONError(w, "invalid_request", "refresh_token is required", http.StatusBadRequest)
		return
	}

	rt, next, err := s.refresh.Rotate(req.RefreshToken)
	if err != nil {
		writeJSONError(w, "invalid_grant", "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := s.repos.Users.GetByID(rt.UserID)
	if err != nil || !user.IsActive {
		_ = s.refresh.Revoke(next)
		writeJSONError(w, "invalid_grant", "Account is no longer available", http.StatusUnauthorized)
		return
	}
	s.issueTokens(w, user, next)
}

// issueTokens writes a token response for user. refreshToken is created
// when empty.
func (s *Server) issueTokens(w http.ResponseWriter, user *users.User, refreshToken string) {
	access, _, err := s.creator.CreateAccessToken(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create access token")
		writeJSONError(w, "server_error", "Failed to issue tokens", http.StatusInternalServerError)
		return
	}
	if refreshToken == "" {
		if refreshToken, err = s.refresh.Create(user.ID, user.TenantID); err != nil {
			s.logger.Error().Err(err).Msg("failed to create refresh token")
			writeJSONError(w, "server_error", "Failed to issue tokens", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		ExpiresIn:    s.creator.ExpiresIn(),
	})
}

// MeHandler returns the user behind the bearer token.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ti := tokenFromContext(r.Context())
		user, err := s.repos.Users.GetByID(ti.UserID)
		if err != nil || !user.IsActive {
			writeJSONError(w, "invalid_token", "Could not validate credentials", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler creates the owner of a new tenant.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Invalid JSON body", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		req.Name = strings.TrimSpace(req.Name)

		if req.Name == "" || !strings.Contains(req.Email, "@") {
			writeJSONError(w, "invalid_request", "A name and a valid email are required", http.StatusBadRequest)
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			writeJSONError(w, "server_error", "Registration failed", http.StatusInternalServerError)
			return
		}

		now := time.Now().UTC()
		user := &users.User{
			Email:        req.Email,
			Name:         req.Name,
			Role:         users.RoleOwner,
			TenantID:     uuid.New().String(),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
			PasswordHash: hash,
		}
		if err := s.repos.Users.Create(user); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				writeJSONError(w, "invalid_request", "Email already registered", http.StatusBadRequest)
				return
			}
			s.logger.Error().Err(err).Msg("failed to create user")
			writeJSONError(w, "server_error", "Registration failed", http.StatusInternalServerError)
			return
		}

		s.logger.Info().Str("user_id", user.ID).Str("tenant_id", user.TenantID).Msg("registered")
		writeJSON(w, http.StatusCreated, user)
	}
}

// RevokeHandler revokes the presented access token and, when given, the
// refresh token in the body.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ti := tokenFromContext(r.Context())
		s.revoked.Revoke(ti.JTI, ti.Exp)

		if req, err := parseTokenRequest(r); err == nil && req.RefreshToken != "" {
			if err := s.refresh.Revoke(req.RefreshToken); err != nil {
				s.logger.Warn().Err(err).Msg("failed to revoke refresh token")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Lead is a row of the sample tenant data.
type Lead struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	TenantID string `json:"tenant_id"`
}

// LeadsHandler returns fixed sample rows scoped to the caller's tenant.
func (s *Server) LeadsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ti := tokenFromContext(r.Context())
		writeJSON(w, http.StatusOK, []Lead{
			{ID: "lead-1", Name: "Acme Ltd", Status: "new", TenantID: ti.TenantID},
			{ID: "lead-2", Name: "Globex", Status: "contacted", TenantID: ti.TenantID},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the OAuth2 error shape plus "detail", which is what
// the gateway surfaces to users.
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
		"detail":            description,
	})
}
