package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-gateway/token/keys"
)

// TokenIntrospection is the verified content of an access token.
// The 'active' field indicates the state of the token - if it's false, other fields may not be populated.
type TokenIntrospection struct {
	Active   bool      `json:"active"`
	Sub      string    `json:"sub,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	TenantID string    `json:"tenant_id,omitempty"`
	Iss      string    `json:"iss,omitempty"`
	JTI      string    `json:"jti,omitempty"`
	Exp      time.Time `json:"-"`
}

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Inspector handles JWT token introspection and validation
type Inspector struct {
	issuer         string
	signer         keys.Signer
	revokedChecker RevokedChecker
}

func NewInspector(issuer string, signer keys.Signer, revokedChecker RevokedChecker) *Inspector {
	return &Inspector{
		issuer:         issuer,
		signer:         signer,
		revokedChecker: revokedChecker,
	}
}

// Introspect verifies rawToken. An invalid, expired or revoked token is
// reported as inactive, with the parse error when there is one.
func (i *Inspector) Introspect(rawToken string) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &TokenIntrospection{Active: false}, nil
	}

	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, i.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil || !token.Valid {
		return &TokenIntrospection{Active: false}, err
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return &TokenIntrospection{Active: false}, errors.New("error extracting claims from token")
	}

	ti := &TokenIntrospection{Active: true}
	ti.Sub, _ = claims["sub"].(string)
	ti.UserID, _ = claims["user_id"].(string)
	ti.TenantID, _ = claims["tenant_id"].(string)
	ti.Iss, _ = claims["iss"].(string)
	ti.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ti.Exp = exp.Time
	}

	if ti.JTI != "" && i.revokedChecker != nil && i.revokedChecker.IsRevoked(ti.JTI) {
		ti.Active = false
	}
	return ti, nil
}
