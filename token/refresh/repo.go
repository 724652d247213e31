package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string). All other fields are
// server-side metadata used for validation and token refresh operations.
type StoredRefreshToken struct {
	Token    string    // The actual random token string (sent to client)
	UserID   string    // Server-side metadata
	TenantID string    // Server-side metadata
	Iat      time.Time // Server-side metadata (issued at time)
}

// Repo manages server-side storage of refresh token metadata.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteByUserID(userID string) error
}
