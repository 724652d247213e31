// Package token holds the access token revocation list of the dev backend.
package token

import (
	"sync"
	"time"
)

// RevocationList remembers revoked access token ids until the tokens would
// have expired anyway.
type RevocationList struct {
	revoked map[string]time.Time // jti to token expiry
	now     func() time.Time
	mu      sync.RWMutex
}

func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke adds jti. Tokens that have already expired are not recorded.
func (c *RevocationList) Revoke(jti string, exp time.Time) {
	if jti == "" || !c.now().Before(exp) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *RevocationList) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

// Prune drops entries whose tokens have expired and returns how many
// remain.
func (c *RevocationList) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for jti, exp := range c.revoked {
		if !now.Before(exp) {
			delete(c.revoked, jti)
		}
	}
	return len(c.revoked)
}
