package credentials

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the informational content of a JWT access token.
type Claims struct {
	Subject   string
	UserID    string
	TenantID  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token's exp has passed at now. Tokens
// without an exp never expire.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes the claims of a JWT access token WITHOUT verifying its
// signature. The result is for display only and must never be used to make
// an authorization decision; that is the backend's job.
func Inspect(access string) (Claims, error) {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(access, claims); err != nil {
		return Claims{}, fmt.Errorf("[Inspect] access token is not a JWT: %w", err)
	}

	c := Claims{
		UserID:   stringClaim(claims, "user_id"),
		TenantID: stringClaim(claims, "tenant_id"),
	}
	c.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

func stringClaim(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
