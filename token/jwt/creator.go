package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-gateway/token/keys"
	"github.com/jrsteele09/go-session-gateway/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator issues access tokens
type Creator struct {
	issuer string
	expiry time.Duration
	signer keys.Signer
}

func NewCreator(issuer string, expiry time.Duration, signer keys.Signer) *Creator {
	return &Creator{
		issuer: issuer,
		expiry: expiry,
		signer: signer,
	}
}

// CreateAccessToken creates a bearer access token for user. The subject is
// the user's email, as the identity endpoint looks users up by it.
func (c *Creator) CreateAccessToken(user *users.User) (string, time.Time, error) {
	now := NowTimeFunc()
	exp := now.Add(c.expiry)
	claims := jwtlib.MapClaims{
		"iss":       c.issuer,            // The issuer of the token
		"sub":       user.Email,          // Subject: the user's login
		"user_id":   user.ID,             // Stable user identifier
		"tenant_id": user.TenantID,       // Tenant the user belongs to
		"role":      string(user.Role),   // Informational only; /auth/me is authoritative
		"iat":       now.Unix(),          // Issued At
		"exp":       exp.Unix(),          // Expiry
		"jti":       uuid.New().String(), // Unique token ID for revocation
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, exp, nil
}

// ExpiresIn is the lifetime of issued tokens in whole seconds.
func (c *Creator) ExpiresIn() int64 {
	return int64(c.expiry / time.Second)
}
