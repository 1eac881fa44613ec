package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/api/middleware"
	"github.com/anybank/identity-platform/internal/api/reqctx"
	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// BFFHandler implements the browser-facing session endpoints. Tokens never
// reach the browser: they live in the server-side session store and the
// browser only holds an opaque HttpOnly cookie.
type BFFHandler struct {
	identity   ports.IdentityService
	sessions   ports.SessionStore
	sessionTTL time.Duration
	secure     bool
	log        zerolog.Logger
}

func NewBFFHandler(identity ports.IdentityService, sessions ports.SessionStore, sessionTTL time.Duration, secureCookies bool, log zerolog.Logger) *BFFHandler {
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &BFFHandler{
		identity:   identity,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		secure:     secureCookies,
		log:        log,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      userSummary `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type userSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
}

// Login authenticates a user and opens a BFF session.
//
// @Summary      Login and open a session
// @Tags         bff
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Router       /bff/auth/login [post]
func (h *BFFHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidCredentials) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	sessionID := uuid.NewString()
	creds := &ports.StoredCredentials{IdentityToken: token}
	if err := h.sessions.Put(c.Request().Context(), sessionID, creds, h.sessionTTL); err != nil {
		return err
	}

	c.SetCookie(h.sessionCookie(sessionID, h.sessionTTL))
	h.log.Info().Str("email", user.Email).Str("correlation_id", reqctx.CorrelationID(c)).Msg("session opened")

	return c.JSON(http.StatusOK, loginResponse{
		User:      userSummary{ID: user.ID, Email: user.Email, Name: user.DisplayName},
		ExpiresAt: time.Now().Add(h.sessionTTL),
	})
}

// Logout evicts the server-side session and expires the cookie.
//
// @Summary      Logout
// @Tags         bff
// @Produce      json
// @Success      204
// @Router       /bff/auth/logout [post]
func (h *BFFHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Evict(c.Request().Context(), cookie.Value); err != nil {
			h.log.Warn().Err(err).Msg("session eviction failed")
		}
	}
	c.SetCookie(h.sessionCookie("", -time.Hour))
	return c.NoContent(http.StatusNoContent)
}

type sessionStatusResponse struct {
	Active        bool `json:"active"`
	TenantScoped  bool `json:"tenant_scoped"`
	Authenticated bool `json:"authenticated"`
}

// Session reports whether the caller currently holds a live session.
//
// @Summary      Session status
// @Tags         bff
// @Produce      json
// @Success      200  {object}  sessionStatusResponse
// @Router       /bff/auth/session [get]
func (h *BFFHandler) Session(c echo.Context) error {
	resp := sessionStatusResponse{}
	cookie, err := c.Cookie(middleware.SessionCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusOK, resp)
	}
	creds, err := h.sessions.Get(c.Request().Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			h.log.Warn().Err(err).Msg("session lookup failed")
		}
		return c.JSON(http.StatusOK, resp)
	}
	resp.Active = true
	resp.Authenticated = reqctx.Principal(c) != nil
	resp.TenantScoped = creds.AccessToken != ""
	return c.JSON(http.StatusOK, resp)
}

func (h *BFFHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
