package refresh

import (
	"time"
)

// StoredRefreshToken is the backend-side record behind an opaque refresh
// token. The client only ever sees Token.
type StoredRefreshToken struct {
	Token  string    // The actual random token string (sent to client)
	UserID string    // Owner of the session
	Iat    time.Time // Issued at time
}

// Repo stores refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
}
