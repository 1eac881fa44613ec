package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/api/metrics"
	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// auditExemptPrefixes lists operational endpoints that produce no audit
// records. Narrower than the authentication exemptions: login and logout
// attempts ARE audited, failures included.
var auditExemptPrefixes = []string{
	"/health",
	"/metrics",
	"/swagger",
	"/debug",
}

func isAuditExempt(path string) bool {
	for _, p := range auditExemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Audit records the outcome of the full pipeline, exactly once per request,
// whether the handler succeeded, failed, panicked, or a later stage
// short-circuited the request. Errors from inner stages are rendered here
// (via the registered error handler) so the final response status is known
// when the record is built. Recording is best-effort: a failing audit backend
// never affects the primary response.
func Audit(recorder ports.AuditRecorder, events ports.DebugEventSink) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bag := reqctx.From(c)
			if bag == nil || isAuditExempt(c.Request().URL.Path) {
				return next(c)
			}

			recorded := false
			record := func(status int) {
				if recorded {
					return
				}
				recorded = true
				duration := time.Since(bag.Start)
				rec := buildAuditRecord(c, bag, status)
				recorder.Record(c.Request().Context(), rec)
				metrics.AuditRecords.WithLabelValues(string(rec.Outcome)).Inc()
				emitAuditEvent(events, c, bag, rec, status, duration)
			}
			// A panicking handler must still leave a record. The panic is
			// rethrown for the outer recovery middleware to render the 500.
			defer func() {
				if r := recover(); r != nil {
					record(http.StatusInternalServerError)
					panic(r)
				}
			}()

			if err := next(c); err != nil {
				// Render now so the outcome below reflects the final status.
				c.Error(err)
			}
			record(c.Response().Status)
			return nil
		}
	}
}

func buildAuditRecord(c echo.Context, bag *reqctx.Bag, status int) *domain.AuditRecord {
	path := c.Request().URL.Path
	method := c.Request().Method

	rec := &domain.AuditRecord{
		ID:            uuid.New(),
		Action:        MapAction(method, path),
		ResourceType:  ResourceType(path),
		ResourceID:    ResourceID(path),
		Outcome:       domain.OutcomeFromStatus(status),
		RiskScore:     bag.RiskScore,
		IPAddress:     c.RealIP(),
		UserAgent:     c.Request().UserAgent(),
		CorrelationID: bag.CorrelationID,
		Metadata: map[string]any{
			"path":        path,
			"method":      method,
			"status_code": status,
		},
		CreatedAt: time.Now(),
	}
	if bag.Tenant != nil {
		userID := bag.Tenant.UserID
		tenantID := bag.Tenant.TenantID
		if userID != uuid.Nil {
			rec.UserID = &userID
		}
		rec.TenantID = &tenantID
	} else if bag.Principal != nil && bag.Principal.UserID != uuid.Nil {
		userID := bag.Principal.UserID
		rec.UserID = &userID
	}
	return rec
}

func emitAuditEvent(events ports.DebugEventSink, c echo.Context, bag *reqctx.Bag, rec *domain.AuditRecord, status int, duration time.Duration) {
	if events == nil {
		return
	}

	// Traffic-origin tag distinguishes synthetic test traffic from real users.
	source := c.Request().Header.Get(HeaderRequestSource)
	if source == "" {
		source = "user"
	}

	details := map[string]any{
		"action":         rec.Action,
		"resource_type":  rec.ResourceType,
		"outcome":        string(rec.Outcome),
		"status_code":    status,
		"duration_ms":    duration.Milliseconds(),
		"path":           c.Request().URL.Path,
		"method":         c.Request().Method,
		"request_source": source,
	}
	if rec.RiskScore != nil {
		details["risk_score"] = *rec.RiskScore
	}

	var actor *domain.EventActor
	if bag.Tenant != nil {
		userID := bag.Tenant.UserID
		tenantID := bag.Tenant.TenantID
		actor = &domain.EventActor{
			UserID:   &userID,
			Email:    bag.Tenant.UserEmail,
			TenantID: &tenantID,
			Role:     string(bag.Tenant.Role),
		}
	}

	events.Emit(domain.DebugEvent{
		CorrelationID: bag.CorrelationID,
		Type:          domain.EventAudit,
		Action:        "audit_logged",
		Actor:         actor,
		Details:       details,
	})
}
