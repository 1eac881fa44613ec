package ports

import (
	"context"
	"time"
)

// StoredCredentials are the tokens a BFF session holds server-side. The
// identity token is set at login; the access token replaces it as the active
// credential after a successful tenant exchange.
type StoredCredentials struct {
	IdentityToken string `json:"identity_token"`
	AccessToken   string `json:"access_token,omitempty"`
}

// ActiveToken returns the credential the pipeline should authenticate with:
// the tenant-scoped access token when present, the identity token otherwise.
func (s *StoredCredentials) ActiveToken() string {
	if s == nil {
		return ""
	}
	if s.AccessToken != "" {
		return s.AccessToken
	}
	return s.IdentityToken
}

// SessionStore is the server-side BFF session storage.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*StoredCredentials, error)
	Put(ctx context.Context, sessionID string, creds *StoredCredentials, ttl time.Duration) error
	Evict(ctx context.Context, sessionID string) error
}
