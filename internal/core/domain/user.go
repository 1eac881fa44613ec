package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User models a registered identity. Password hashes exist only for the
// built-in demo identity provider; production deployments delegate to an
// external IdP.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	MFAEnabled   bool      `json:"mfa_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity resolved for one request.
// Immutable once resolved.
type Principal struct {
	Subject string
	Email   string
	// UserID is the local user id when the credential carries a "uid" claim;
	// uuid.Nil otherwise (callers fall back to an email lookup).
	UserID uuid.UUID
	// RawToken is the credential as presented, needed by the exchange endpoint.
	RawToken string
	Claims   jwt.MapClaims
	Expiry   time.Time
}

// HasTenantScope reports whether the active credential already carries tenant
// claims, i.e. it is an access credential rather than an identity credential.
func (p *Principal) HasTenantScope() bool {
	if p == nil || p.Claims == nil {
		return false
	}
	v, ok := p.Claims["tenant_id"].(string)
	return ok && v != ""
}

// StringClaim returns a string claim by name, or "" when absent.
func (p *Principal) StringClaim(name string) string {
	if p == nil || p.Claims == nil {
		return ""
	}
	v, _ := p.Claims[name].(string)
	return v
}
