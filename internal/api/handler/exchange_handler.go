package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/metrics"
	"github.com/anybank/identity-platform/internal/api/middleware"
	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// ExchangeHandler implements the token exchange endpoint: it trades an
// unscoped identity credential for a tenant-scoped access credential.
type ExchangeHandler struct {
	exchange   ports.ExchangeService
	sessions   ports.SessionStore
	sessionTTL time.Duration
	log        zerolog.Logger
}

func NewExchangeHandler(exchange ports.ExchangeService, sessions ports.SessionStore, sessionTTL time.Duration, log zerolog.Logger) *ExchangeHandler {
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &ExchangeHandler{
		exchange:   exchange,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		log:        log,
	}
}

type exchangeRequest struct {
	TargetTenantID string `json:"targetTenantId" validate:"required,uuid4"`
}

type exchangeResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int               `json:"expires_in"`
	Tenant      domain.TenantInfo `json:"tenant"`
}

// Exchange mints a tenant-scoped access credential.
//
// @Summary      Exchange identity credential for tenant scope
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      exchangeRequest  true  "Target tenant"
// @Success      200   {object}  exchangeResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Router       /api/auth/exchange [post]
func (h *ExchangeHandler) Exchange(c echo.Context) error {
	principal := reqctx.Principal(c)
	if principal == nil {
		return domain.ErrUnauthenticated
	}

	var req exchangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	targetID, err := uuid.Parse(req.TargetTenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "targetTenantId must be a UUID")
	}

	result, err := h.exchange.Exchange(c.Request().Context(), principal.RawToken, targetID, reqctx.RiskScore(c))
	if err != nil {
		h.recordOutcome(err)
		return err
	}
	metrics.TokenExchanges.WithLabelValues("success").Inc()

	// A BFF session keeps holding the tokens server-side: store the scoped
	// credential so subsequent cookie requests carry the new scope.
	h.updateSession(c, result.AccessToken)

	return c.JSON(http.StatusOK, exchangeResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   result.ExpiresIn,
		Tenant:      result.Tenant,
	})
}

func (h *ExchangeHandler) recordOutcome(err error) {
	var accessDenied *domain.TenantAccessDeniedError
	var policyDenied *domain.PolicyDeniedError
	switch {
	case errors.As(err, &accessDenied), errors.As(err, &policyDenied):
		metrics.TokenExchanges.WithLabelValues("denied").Inc()
	default:
		metrics.TokenExchanges.WithLabelValues("failed").Inc()
	}
}

func (h *ExchangeHandler) updateSession(c echo.Context, accessToken string) {
	cookie, err := c.Cookie(middleware.SessionCookie)
	if err != nil || cookie.Value == "" {
		return
	}
	ctx := c.Request().Context()
	creds, err := h.sessions.Get(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			h.log.Warn().Err(err).Msg("session lookup failed during exchange")
		}
		return
	}
	creds.AccessToken = accessToken
	if err := h.sessions.Put(ctx, cookie.Value, creds, h.sessionTTL); err != nil {
		h.log.Warn().Err(err).Msg("session update failed during exchange")
	}
}
