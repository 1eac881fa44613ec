package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/metrics"
	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// Risk annotates the request with a 0-100 risk score for the policy stage.
// When the user id cannot be resolved (unauthenticated request) the stage is
// skipped entirely: the score stays absent, which is not the same as zero.
// This stage never blocks a request.
func Risk(risk ports.RiskService, users ports.UserRepository, events ports.DebugEventSink, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bag := reqctx.From(c)
			if bag == nil || bag.Principal == nil {
				return next(c)
			}

			userID := resolveUserID(c.Request().Context(), bag, users, log)
			if userID == uuid.Nil {
				return next(c)
			}

			req := ports.RiskRequest{
				IPAddress:    c.RealIP(),
				UserAgent:    c.Request().UserAgent(),
				Path:         c.Request().URL.Path,
				ForwardedFor: c.Request().Header.Get("X-Forwarded-For"),
				Now:          time.Now(),
			}
			result, err := risk.Evaluate(c.Request().Context(), req, userID)
			if err != nil {
				log.Warn().Err(err).Msg("risk evaluation failed, score stays absent")
				return next(c)
			}

			score := result.Score
			bag.RiskScore = &score
			metrics.RiskScore.Observe(float64(score))
			emitRiskEvent(events, bag, result, c)

			return next(c)
		}
	}
}

func resolveUserID(ctx context.Context, bag *reqctx.Bag, users ports.UserRepository, log zerolog.Logger) uuid.UUID {
	if bag.Tenant != nil && bag.Tenant.UserID != uuid.Nil {
		return bag.Tenant.UserID
	}
	if bag.Principal.UserID != uuid.Nil {
		return bag.Principal.UserID
	}
	if bag.Principal.Email == "" {
		return uuid.Nil
	}
	user, err := users.FindByEmail(ctx, bag.Principal.Email)
	if err != nil {
		log.Debug().Err(err).Str("email", bag.Principal.Email).Msg("user id unresolved, skipping risk evaluation")
		return uuid.Nil
	}
	return user.ID
}

func emitRiskEvent(events ports.DebugEventSink, bag *reqctx.Bag, result ports.RiskResult, c echo.Context) {
	if events == nil {
		return
	}
	details := map[string]any{
		"risk_score": result.Score,
		"path":       c.Request().URL.Path,
		"method":     c.Request().Method,
		"ip":         c.RealIP(),
		"user_agent": c.Request().UserAgent(),
	}
	for name, pts := range result.Factors {
		details["factor_"+name] = pts
	}

	actor := &domain.EventActor{Email: bag.Principal.Email}
	if bag.Tenant != nil {
		userID := bag.Tenant.UserID
		tenantID := bag.Tenant.TenantID
		actor.UserID = &userID
		actor.TenantID = &tenantID
		actor.Role = string(bag.Tenant.Role)
	}

	events.Emit(domain.DebugEvent{
		Timestamp:     time.Now(),
		CorrelationID: bag.CorrelationID,
		Type:          domain.EventAPI,
		Action:        "risk_score_calculated",
		Actor:         actor,
		Details:       details,
	})
}
