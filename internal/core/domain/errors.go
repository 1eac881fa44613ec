package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated    = errors.New("no authenticated principal")
	ErrUserNotFound       = errors.New("user not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTenantType  = errors.New("invalid tenant type")
	ErrInvalidRole        = errors.New("invalid membership role")
	ErrTenantScopeMissing = errors.New("no tenant context resolved")
)

// TenantAccessDeniedError signals that the subject lacks an ACTIVE membership
// for the requested tenant. The same error covers both "tenant does not exist"
// and "access denied" so callers cannot probe for tenant existence.
type TenantAccessDeniedError struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
}

func (e *TenantAccessDeniedError) Error() string {
	return fmt.Sprintf("user %s does not have access to tenant %s", e.UserID, e.TenantID)
}

// PolicyDeniedError signals that the policy decision engine rejected an action.
type PolicyDeniedError struct {
	Action string
	Reason string
	// RiskScore is the score at decision time; nil when risk evaluation was
	// skipped for the request.
	RiskScore *int
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("policy denied action %q: %s", e.Action, e.Reason)
}

// PolicyUnavailableError signals that the decision engine itself failed
// (network error, timeout). It is deliberately distinct from PolicyDeniedError
// so audit records can tell "denied" from "engine unreachable".
type PolicyUnavailableError struct {
	Err error
}

func (e *PolicyUnavailableError) Error() string {
	return fmt.Sprintf("policy engine unavailable: %v", e.Err)
}

func (e *PolicyUnavailableError) Unwrap() error { return e.Err }

// TokenExchangeError signals a failed context-switch: a malformed or expired
// identity credential, or an engine failure during the exchange.
type TokenExchangeError struct {
	Code    string
	Message string
	Err     error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed (%s): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("token exchange failed (%s): %s", e.Code, e.Message)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }
