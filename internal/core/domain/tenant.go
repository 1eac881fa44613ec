package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantType classifies the organizational context a tenant represents.
type TenantType string

const (
	TenantConsumer      TenantType = "CONSUMER"
	TenantSmallBusiness TenantType = "SMALL_BUSINESS"
	TenantCommercial    TenantType = "COMMERCIAL"
	TenantInvestment    TenantType = "INVESTMENT"
	TenantTrust         TenantType = "TRUST"
)

// ParseTenantType validates a raw tenant type value.
func ParseTenantType(s string) (TenantType, error) {
	switch TenantType(s) {
	case TenantConsumer, TenantSmallBusiness, TenantCommercial, TenantInvestment, TenantTrust:
		return TenantType(s), nil
	}
	return "", ErrInvalidTenantType
}

// MembershipRole is the role a user holds within one tenant.
type MembershipRole string

const (
	RoleOwner    MembershipRole = "OWNER"
	RoleAdmin    MembershipRole = "ADMIN"
	RoleOperator MembershipRole = "OPERATOR"
	RoleViewer   MembershipRole = "VIEWER"
)

// ParseMembershipRole validates a raw role value.
func ParseMembershipRole(s string) (MembershipRole, error) {
	switch MembershipRole(s) {
	case RoleOwner, RoleAdmin, RoleOperator, RoleViewer:
		return MembershipRole(s), nil
	}
	return "", ErrInvalidRole
}

// MembershipStatus is the lifecycle state of a membership record.
type MembershipStatus string

const (
	MembershipInvited   MembershipStatus = "INVITED"
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipSuspended MembershipStatus = "SUSPENDED"
	MembershipRevoked   MembershipStatus = "REVOKED"
)

// Membership links a user to a tenant with a role. Tenant attributes are
// denormalized onto the record so a single lookup resolves the full scope.
type Membership struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	TenantName string           `json:"tenant_name"`
	TenantType TenantType       `json:"tenant_type"`
	Role       MembershipRole   `json:"role"`
	Status     MembershipStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TenantInfo is the resolved tenant scope for one request. It is a transient
// projection of a membership plus claims already present in the active
// credential; it is never persisted.
type TenantInfo struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	TenantName string         `json:"tenant_name,omitempty"`
	TenantType TenantType     `json:"tenant_type"`
	Role       MembershipRole `json:"role"`
	UserID     uuid.UUID      `json:"user_id,omitempty"`
	UserEmail  string         `json:"user_email,omitempty"`
}
