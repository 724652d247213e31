package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

const rsaKeyBits = 2048

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`           // Key type
	Use string `json:"use,omitempty"` // sig
	Kid string `json:"kid,omitempty"` // Key ID
	Alg string `json:"alg,omitempty"` // Algorithm
	N   string `json:"n,omitempty"`   // Modulus
	E   string `json:"e,omitempty"`   // Exponent
}

// KeySetPublisher is implemented by signers whose verification keys can be
// published.
type KeySetPublisher interface {
	JWKS() JWKS
}

// RSASigner implements Signer with RS256.
type RSASigner struct {
	kid string
	key *rsa.PrivateKey
}

var (
	_ Signer          = (*RSASigner)(nil)
	_ KeySetPublisher = (*RSASigner)(nil)
)

// NewRSASigner generates a fresh key. Tokens it signs do not survive a
// restart.
func NewRSASigner(kid string) (*RSASigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return &RSASigner{kid: kid, key: key}, nil
}

// LoadRSASigner reads a PKCS#1 or PKCS#8 PEM private key from path.
func LoadRSASigner(kid, path string) (*RSASigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &RSASigner{kid: kid, key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not RSA", path)
	}
	return &RSASigner{kid: kid, key: key}, nil
}

func (s *RSASigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *RSASigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &s.key.PublicKey, nil
}

func (s *RSASigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodRS256
}

func (s *RSASigner) JWKS() JWKS {
	pub := s.key.PublicKey
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Kid: s.kid,
		Alg: jwt.SigningMethodRS256.Alg(),
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}

// MarshalPrivateKeyPEM encodes the key so LoadRSASigner can read it back.
func (s *RSASigner) MarshalPrivateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(s.key),
	})
}

// NewSigner picks the signer for alg: "HS256" uses secret, "RS256" loads
// keyFile or generates a key when keyFile is empty.
func NewSigner(alg, secret, keyFile, kid string) (Signer, error) {
	switch alg {
	case "", jwt.SigningMethodHS256.Alg():
		return NewHMACSigner(secret, kid)
	case jwt.SigningMethodRS256.Alg():
		if keyFile != "" {
			return LoadRSASigner(kid, keyFile)
		}
		return NewRSASigner(kid)
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}
