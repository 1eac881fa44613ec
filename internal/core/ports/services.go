package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anybank/identity-platform/internal/core/domain"
)

// RiskRequest carries the per-request signals the risk engine reads.
type RiskRequest struct {
	IPAddress string
	UserAgent string
	Path      string
	// ForwardedFor is the raw X-Forwarded-For header, used for proxy-chain
	// detection.
	ForwardedFor string
	Now          time.Time
}

// RiskResult is the computed score plus the per-signal breakdown.
type RiskResult struct {
	Score   int
	Factors map[string]int
}

// RiskService computes a 0-100 risk score for an authenticated request.
type RiskService interface {
	Evaluate(ctx context.Context, req RiskRequest, userID uuid.UUID) (RiskResult, error)
}

// VelocityTracker counts requests per user inside a sliding window.
type VelocityTracker interface {
	Hit(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ExchangeResult is a successful context switch.
type ExchangeResult struct {
	AccessToken string
	ExpiresIn   int
	Tenant      domain.TenantInfo
}

// ExchangeService validates an identity credential against membership records
// and mints a tenant-scoped access credential.
type ExchangeService interface {
	Exchange(ctx context.Context, identityToken string, targetTenantID uuid.UUID, riskScore *int) (*ExchangeResult, error)
}

// IdentityService is the built-in demo identity provider: it verifies
// passwords and issues unscoped identity credentials.
type IdentityService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// DebugEventSink receives best-effort observability events.
type DebugEventSink interface {
	Emit(event domain.DebugEvent)
}

// AuditRecorder accepts one audit record per request. Implementations must
// never propagate failures to the caller.
type AuditRecorder interface {
	Record(ctx context.Context, rec *domain.AuditRecord)
}
