package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/metrics"
	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

var mutatingMethods = map[string]struct{}{
	"POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
}

// PolicyConfig selects which requests reach the decision engine.
type PolicyConfig struct {
	// SensitivePaths are patterns gated by policy when hit with a mutating
	// method: a trailing "/" makes a prefix pattern, "*" matches one path
	// segment, anything else matches exactly.
	SensitivePaths []string
}

// Policy gates sensitive mutating requests on the external decision engine.
// Read-only and non-sensitive paths skip evaluation entirely. If no tenant
// context was resolved the check is skipped as well; handlers independently
// reject tenant-scoped operations lacking context. An engine failure is
// surfaced as PolicyUnavailableError, never as an implicit allow or deny.
func Policy(client ports.PolicyClient, cfg PolicyConfig, events ports.DebugEventSink, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bag := reqctx.From(c)
			if bag == nil || !requiresPolicyCheck(c.Request().Method, c.Request().URL.Path, cfg.SensitivePaths) {
				return next(c)
			}
			if bag.Tenant == nil {
				log.Debug().Str("path", c.Request().URL.Path).Msg("no tenant context, policy check skipped")
				return next(c)
			}

			input := buildPolicyInput(c, bag)
			decision, err := client.Decide(c.Request().Context(), input)
			if err != nil {
				metrics.PolicyEngineErrors.Inc()
				return &domain.PolicyUnavailableError{Err: err}
			}

			if !decision.Allowed {
				metrics.AuthzDecisions.WithLabelValues("deny").Inc()
				reason := decision.Reason
				if reason == "" {
					reason = "access denied by policy"
				}
				emitPolicyEvent(events, bag, input, false, reason)
				return &domain.PolicyDeniedError{
					Action:    input.Action,
					Reason:    reason,
					RiskScore: bag.RiskScore,
				}
			}

			metrics.AuthzDecisions.WithLabelValues("allow").Inc()
			emitPolicyEvent(events, bag, input, true, "")
			return next(c)
		}
	}
}

func requiresPolicyCheck(method, path string, patterns []string) bool {
	if _, ok := mutatingMethods[method]; !ok {
		return false
	}
	for _, p := range patterns {
		if pathMatches(path, p) {
			return true
		}
	}
	return false
}

func pathMatches(path, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}
	if !strings.Contains(pattern, "*") {
		return path == pattern
	}

	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(pathSegs) != len(patSegs) {
		return false
	}
	for i, seg := range patSegs {
		if seg != "*" && seg != pathSegs[i] {
			return false
		}
	}
	return true
}

// buildPolicyInput snapshots the request fresh; risk score and resource id
// vary per call, so inputs are never cached.
func buildPolicyInput(c echo.Context, bag *reqctx.Bag) domain.PolicyInput {
	riskScore := 0
	if bag.RiskScore != nil {
		riskScore = *bag.RiskScore
	}

	path := c.Request().URL.Path
	method := c.Request().Method

	return domain.PolicyInput{
		User: domain.PolicyUser{
			ID:    bag.Tenant.UserID,
			Email: bag.Tenant.UserEmail,
			Role:  bag.Tenant.Role,
		},
		Tenant: domain.PolicyTenant{
			ID:   bag.Tenant.TenantID,
			Type: bag.Tenant.TenantType,
		},
		Action: MapAction(method, path),
		Resource: domain.PolicyResource{
			Type: ResourceType(path),
			ID:   ResourceID(path),
		},
		Context: domain.PolicyContext{
			Channel:       "WEB",
			IPAddress:     c.RealIP(),
			UserAgent:     c.Request().UserAgent(),
			RiskScore:     riskScore,
			IsTestTraffic: c.Request().Header.Get(HeaderRequestSource) == "test",
		},
	}
}

// MapAction names the business action a request performs, for policy input
// and audit records.
func MapAction(method, path string) string {
	switch {
	case strings.Contains(path, "/transfer"):
		return "internal_transfer"
	case strings.Contains(path, "/auth/exchange"):
		return "context_switch"
	case strings.Contains(path, "/admin/users"):
		return "manage_users"
	case strings.Contains(path, "/accounts") && method == "GET":
		return "view_balance"
	case strings.Contains(path, "/transactions"):
		return "view_transactions"
	case strings.Contains(path, "/tenants") && method == "GET":
		return "view_tenants"
	case strings.Contains(path, "/auth"):
		return "authentication"
	}
	return strings.ToLower(method) + "_api_request"
}

// ResourceType classifies the resource a path addresses.
func ResourceType(path string) string {
	switch {
	case strings.Contains(path, "/accounts"):
		return "account"
	case strings.Contains(path, "/tenants"):
		return "tenant"
	case strings.Contains(path, "/users"):
		return "user"
	case strings.Contains(path, "/auth"):
		return "auth"
	}
	return "api"
}

// ResourceID extracts the UUID following a known resource segment, if any.
func ResourceID(path string) *uuid.UUID {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		switch segments[i] {
		case "accounts", "tenants", "users":
			if id, err := uuid.Parse(segments[i+1]); err == nil {
				return &id
			}
			return nil
		}
	}
	return nil
}

func emitPolicyEvent(events ports.DebugEventSink, bag *reqctx.Bag, input domain.PolicyInput, allowed bool, reason string) {
	if events == nil {
		return
	}
	userID := input.User.ID
	tenantID := input.Tenant.ID
	details := map[string]any{
		"action":     input.Action,
		"allowed":    allowed,
		"risk_score": input.Context.RiskScore,
	}
	if reason != "" {
		details["reason"] = reason
	}
	events.Emit(domain.DebugEvent{
		CorrelationID: bag.CorrelationID,
		Type:          domain.EventPolicy,
		Action:        "policy_decision",
		Actor: &domain.EventActor{
			UserID:   &userID,
			Email:    input.User.Email,
			TenantID: &tenantID,
			Role:     string(input.User.Role),
		},
		Details: details,
	})
}
