// Package middleware implements the per-request authorization pipeline as an
// ordered chain of echo middlewares. The order is enforced by construction in
// the router: Correlation, SessionAuth, TenantContext, Risk, Audit (wrapper),
// Policy, then the business handler. Each stage reads state the previous one
// wrote into the request's reqctx bag.
package middleware

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/api/reqctx"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderSessionID     = "X-Session-ID"
	HeaderTenantID      = "X-Tenant-ID"
	HeaderRequestSource = "X-Request-Source"

	// SessionCookie names the BFF session cookie.
	SessionCookie = "bff_session"
)

// requestCounter is the only shared mutable state across concurrent requests.
var requestCounter atomic.Int64

// Correlation assigns or propagates the request's correlation id, attaches it
// to the response, and owns the reqctx bag for the rest of the pipeline. It
// never fails: absent any inbound signal it falls back to a synthetic id.
// The bag is cleared on every exit path, success or panic, so a reused
// connection never carries stale tenant or risk state into the next request.
func Correlation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := extractSessionID(c)
			correlationID := c.Request().Header.Get(HeaderCorrelationID)
			if correlationID == "" {
				correlationID = synthesizeCorrelationID(sessionID)
			}

			bag := reqctx.New(correlationID, sessionID)
			reqctx.Attach(c, bag)
			defer reqctx.Clear(c)

			c.Response().Header().Set(HeaderCorrelationID, correlationID)

			return next(c)
		}
	}
}

// synthesizeCorrelationID builds sess_{sessionId}_req_{n}, or
// req_{unixMillis}_{n} when no session exists. Uniqueness holds per process
// only, which is enough for tracing.
func synthesizeCorrelationID(sessionID string) string {
	n := requestCounter.Add(1)
	if sessionID != "" {
		return fmt.Sprintf("sess_%s_req_%d", sessionID, n)
	}
	return fmt.Sprintf("req_%d_%d", time.Now().UnixMilli(), n)
}

func extractSessionID(c echo.Context) string {
	if sid := c.Request().Header.Get(HeaderSessionID); sid != "" {
		return sid
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
