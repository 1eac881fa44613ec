package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/service"
)

const defaultEventLimit = 100

// DebugHandler exposes the in-memory observability event ring. Intended for
// development and demos, not for production traffic.
type DebugHandler struct {
	events *service.DebugEventService
}

func NewDebugHandler(events *service.DebugEventService) *DebugHandler {
	return &DebugHandler{events: events}
}

type debugEventsResponse struct {
	Count  int                 `json:"count"`
	Events []domain.DebugEvent `json:"events"`
}

// Events returns recent pipeline events, newest first.
//
// @Summary      Recent debug events
// @Tags         debug
// @Produce      json
// @Param        limit  query     int  false  "Maximum events to return"
// @Success      200    {object}  debugEventsResponse
// @Router       /debug/events [get]
func (h *DebugHandler) Events(c echo.Context) error {
	limit := defaultEventLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	events := h.events.Recent(limit)
	return c.JSON(http.StatusOK, debugEventsResponse{
		Count:  len(events),
		Events: events,
	})
}
