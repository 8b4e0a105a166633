package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoCredentials is returned by Load when nothing has been stored.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials are what the console keeps between invocations.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Store persists the admin's credentials.
type Store interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, c *Credentials) error
	Clear(ctx context.Context) error
}

// TokenLooksValid is the cheap pre-flight check done before attaching a token:
// non-empty and shaped like a JWT (contains a dot).
func TokenLooksValid(token string) bool {
	return token != "" && strings.Contains(token, ".")
}
