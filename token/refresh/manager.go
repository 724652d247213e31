package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrInvalidToken is returned for unknown, expired or already rotated
// refresh tokens.
var ErrInvalidToken = errors.New("invalid refresh token")

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	length int
	expiry time.Duration
	lock   sync.Mutex
}

// NewManager creates a new refresh token manager. length is the number of
// random bytes per token.
func NewManager(repo Repo, length int, expiry time.Duration) *Manager {
	if length <= 0 {
		length = 32
	}
	return &Manager{
		repo:   repo,
		length: length,
		expiry: expiry,
	}
}

// Create generates a new refresh token for the user and stores it
func (m *Manager) Create(userID, tenantID string) (string, error) {
	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:    tokenStr,
		UserID:   userID,
		TenantID: tenantID,
		Iat:      NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate consumes token and issues its replacement. A token can be rotated
// exactly once; presenting it again fails with ErrInvalidToken.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, "", ErrInvalidToken
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, "", fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if m.IsExpired(rt) {
		return nil, "", errors.Wrapf(ErrInvalidToken, "refresh token expired")
	}

	next, err := m.Create(rt.UserID, rt.TenantID)
	if err != nil {
		return nil, "", err
	}
	return rt, next, nil
}

// RevokeUser deletes every refresh token held by the user
func (m *Manager) RevokeUser(userID string) error {
	return m.repo.DeleteByUserID(userID)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.expiry > 0 && NowTimeFunc().Sub(rt.Iat) > m.expiry
}

// Revoke deletes a single refresh token. Unknown tokens are not an error.
func (m *Manager) Revoke(token string) error {
	if err := m.repo.Delete(token); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	return nil
}
