// Package reqctx holds the per-request mutable context bag the authorization
// pipeline builds up stage by stage. The bag lives on the request's own
// echo.Context, never on a shared object, so concurrent requests cannot
// observe each other's tenant or risk state. The correlation middleware owns
// the bag's lifecycle and clears it on every exit path.
package reqctx

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/core/domain"
)

const contextKey = "identity.reqctx"

// Bag is the per-request state. Fields are filled in pipeline order:
// correlation, principal, tenant, risk.
type Bag struct {
	CorrelationID string
	SessionID     string
	Principal     *domain.Principal
	Tenant        *domain.TenantInfo
	// RiskScore is nil when risk evaluation was skipped (unauthenticated
	// request). Absent is not zero.
	RiskScore *int
	Start     time.Time
}

// New creates a bag at pipeline entry.
func New(correlationID, sessionID string) *Bag {
	return &Bag{
		CorrelationID: correlationID,
		SessionID:     sessionID,
		Start:         time.Now(),
	}
}

// Attach stores the bag on the request context.
func Attach(c echo.Context, b *Bag) {
	c.Set(contextKey, b)
}

// From returns the request's bag, or nil when the pipeline has not run
// (direct handler tests, exempt paths).
func From(c echo.Context) *Bag {
	b, _ := c.Get(contextKey).(*Bag)
	return b
}

// Clear removes the bag. Called unconditionally at pipeline exit so a pooled
// connection's next request never sees stale tenant or risk state.
func Clear(c echo.Context) {
	c.Set(contextKey, (*Bag)(nil))
}

// Principal returns the resolved principal, or nil.
func Principal(c echo.Context) *domain.Principal {
	if b := From(c); b != nil {
		return b.Principal
	}
	return nil
}

// Tenant returns the resolved tenant scope, or nil.
func Tenant(c echo.Context) *domain.TenantInfo {
	if b := From(c); b != nil {
		return b.Tenant
	}
	return nil
}

// RiskScore returns the computed risk score, or nil when evaluation was
// skipped.
func RiskScore(c echo.Context) *int {
	if b := From(c); b != nil {
		return b.RiskScore
	}
	return nil
}

// CorrelationID returns the request's correlation id, or "".
func CorrelationID(c echo.Context) string {
	if b := From(c); b != nil {
		return b.CorrelationID
	}
	return ""
}
