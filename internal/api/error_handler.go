package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Path      string         `json:"path"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the pipeline's error taxonomy to deterministic HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the uniform envelope {code, message, details?, timestamp, path}
//     regardless of which stage raised the error.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		body.Timestamp = time.Now()
		body.Path = c.Request().URL.Path
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Code:    codeForStatus(he.Code),
			Message: fmt.Sprintf("%v", he.Message),
		}
	}

	var tad *domain.TenantAccessDeniedError
	if errors.As(err, &tad) {
		return http.StatusForbidden, errorResponse{
			Code:    "TENANT_ACCESS_DENIED",
			Message: "you do not have access to this organization",
			Details: map[string]any{
				"user_id":   tad.UserID.String(),
				"tenant_id": tad.TenantID.String(),
			},
		}
	}

	var pd *domain.PolicyDeniedError
	if errors.As(err, &pd) {
		details := map[string]any{
			"action": pd.Action,
			"reason": pd.Reason,
		}
		if pd.RiskScore != nil {
			details["risk_score"] = *pd.RiskScore
		}
		return http.StatusForbidden, errorResponse{
			Code:    "POLICY_DENIED",
			Message: pd.Reason,
			Details: details,
		}
	}

	var pu *domain.PolicyUnavailableError
	if errors.As(err, &pu) {
		log.Error().Err(pu.Err).Msg("policy engine unreachable")
		return http.StatusServiceUnavailable, errorResponse{
			Code:    "POLICY_UNAVAILABLE",
			Message: "authorization decision engine is unavailable",
		}
	}

	var te *domain.TokenExchangeError
	if errors.As(err, &te) {
		return http.StatusBadRequest, errorResponse{
			Code:    te.Code,
			Message: te.Message,
		}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "invalid credentials",
		}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusUnauthorized, errorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "invalid credentials",
		}
	case errors.Is(err, domain.ErrTenantScopeMissing):
		return http.StatusForbidden, errorResponse{
			Code:    "TENANT_CONTEXT_REQUIRED",
			Message: "a tenant context is required for this operation",
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{
		Code:    "INTERNAL",
		Message: "internal server error",
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_FAILED"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "ACCESS_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
