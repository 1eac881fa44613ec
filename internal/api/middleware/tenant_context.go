package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// TenantContext resolves the active tenant scope for the authenticated
// principal using two strategies in order:
//
//  1. claims already present in a tenant-scoped access credential, parsed and
//     trusted with no lookup (the fast path after a token exchange);
//  2. the X-Tenant-ID header plus a live ACTIVE-membership lookup, for
//     clients that hold only an identity credential.
//
// Resolution fails soft: a missing header, missing membership, or malformed
// value leaves the tenant context absent; later stages and handlers treat
// "no tenant context" as a denial condition for tenant-scoped resources.
func TenantContext(users ports.UserRepository, memberships ports.MembershipRepository, events ports.DebugEventSink, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bag := reqctx.From(c)
			if bag == nil || bag.Principal == nil {
				return next(c)
			}

			info := tenantFromClaims(bag.Principal, log)
			if info == nil {
				info = tenantFromHeader(c, bag.Principal, users, memberships, log)
			}

			if info != nil {
				bag.Tenant = info
				emitTenantEvent(events, bag.CorrelationID, info, c)
			}
			return next(c)
		}
	}
}

// tenantFromClaims trusts the scoped credential's own claims. Malformed
// values are treated as absent rather than aborting the request.
func tenantFromClaims(p *domain.Principal, log zerolog.Logger) *domain.TenantInfo {
	if !p.HasTenantScope() {
		return nil
	}

	raw := p.StringClaim("tenant_id")
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn().Str("tenant_id", raw).Msg("malformed tenant_id claim, treating as absent")
		return nil
	}

	tenantType := domain.TenantConsumer
	if v := p.StringClaim("tenant_type"); v != "" {
		if parsed, err := domain.ParseTenantType(v); err == nil {
			tenantType = parsed
		} else {
			log.Warn().Str("tenant_type", v).Msg("malformed tenant_type claim, using default")
		}
	}

	role := domain.RoleViewer
	if v := p.StringClaim("role"); v != "" {
		if parsed, err := domain.ParseMembershipRole(v); err == nil {
			role = parsed
		} else {
			log.Warn().Str("role", v).Msg("malformed role claim, using default")
		}
	}

	return &domain.TenantInfo{
		TenantID:   tenantID,
		TenantType: tenantType,
		Role:       role,
		UserID:     p.UserID,
		UserEmail:  p.Email,
	}
}

// tenantFromHeader re-derives the scope from X-Tenant-ID and a membership
// lookup when the credential carries no tenant claims.
func tenantFromHeader(c echo.Context, p *domain.Principal, users ports.UserRepository, memberships ports.MembershipRepository, log zerolog.Logger) *domain.TenantInfo {
	raw := c.Request().Header.Get(HeaderTenantID)
	if raw == "" {
		return nil
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn().Str("tenant_id", raw).Msg("malformed tenant id header, treating as absent")
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	userID := p.UserID
	email := p.Email
	if userID == uuid.Nil {
		user, err := users.FindByEmail(ctx, p.Email)
		if err != nil {
			log.Warn().Err(err).Str("email", p.Email).Msg("user lookup failed during tenant resolution")
			return nil
		}
		userID = user.ID
		email = user.Email
	}

	m, err := memberships.FindActive(ctx, userID, tenantID)
	if err != nil {
		log.Debug().Err(err).
			Str("tenant_id", tenantID.String()).
			Str("user_id", userID.String()).
			Msg("no active membership, tenant context absent")
		return nil
	}

	return &domain.TenantInfo{
		TenantID:   m.TenantID,
		TenantName: m.TenantName,
		TenantType: m.TenantType,
		Role:       m.Role,
		UserID:     userID,
		UserEmail:  email,
	}
}

func emitTenantEvent(events ports.DebugEventSink, correlationID string, info *domain.TenantInfo, c echo.Context) {
	if events == nil {
		return
	}
	userID := info.UserID
	tenantID := info.TenantID
	events.Emit(domain.DebugEvent{
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		Type:          domain.EventAuth,
		Action:        "tenant_context_extracted",
		Actor: &domain.EventActor{
			UserID:   &userID,
			Email:    info.UserEmail,
			TenantID: &tenantID,
			Role:     string(info.Role),
		},
		Details: map[string]any{
			"tenant_id": info.TenantID.String(),
			"role":      string(info.Role),
			"path":      c.Request().URL.Path,
			"method":    c.Request().Method,
		},
	})
}
