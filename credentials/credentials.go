// Package credentials persists the access/refresh token pair between
// process runs. Tokens are opaque strings; nothing here interprets them
// except Inspect, which is informational only.
package credentials

// Storage keys. They match the keys used by the browser client so that a
// shared store can be read by either.
const (
	AccessTokenKey  = "es_agent_token"
	RefreshTokenKey = "es_agent_refresh_token"
)

// Pair is the credential pair issued by the token endpoint.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether p carries no access token.
func (p Pair) Empty() bool {
	return p.AccessToken == ""
}

// Reader is the read-only view of the store handed to the request gateway.
type Reader interface {
	// Load returns the stored pair. ok is false when no access token is
	// stored.
	Load() (pair Pair, ok bool, err error)
}

// Store is the read/write view owned by the session machine.
type Store interface {
	Reader
	Save(p Pair) error
	Clear() error
}

// KV is a durable string key/value backend.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Put(values map[string]string) error
	Delete(keys ...string) error
}
