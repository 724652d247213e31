package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/pkg/errors"
)

const seedAdminName = "System Administrator"

// InitialiseSystem seeds the owner account of the first tenant when the
// user store is empty. It returns the password when one was set, so that
// it can be shown once; "" means nothing was created.
func (s *Server) InitialiseSystem() (string, error) {
	if s.repos.Users.Count() > 0 {
		return "", nil
	}

	email := s.config.GetSeedAdminEmail()
	password := s.config.GetSeedAdminPassword()
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return "", errors.Wrap(err, "[server InitialiseSystem] failed to generate password")
		}
		password = generated
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, "[server InitialiseSystem] failed to hash password")
	}

	now := time.Now().UTC()
	owner := &users.User{
		Email:        email,
		Name:         seedAdminName,
		Role:         users.RoleOwner,
		TenantID:     uuid.New().String(),
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
		PasswordHash: hash,
	}
	if err := s.repos.Users.Create(owner); err != nil && !apperrors.Is(err, apperrors.ErrConflict) {
		return "", errors.Wrap(err, "[server InitialiseSystem] failed to create owner")
	}

	s.logger.Info().
		Str("email", email).
		Str("tenant_id", owner.TenantID).
		Str("issuer", s.config.GetTokenIssuer()).
		Msg("seeded owner account")
	return password, nil
}

// generatePassword returns a random password that also passes
// users.ValidatePasswordStrength.
func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%sAa1", base64.RawURLEncoding.EncodeToString(b)), nil
}
