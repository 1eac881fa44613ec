package domain

import (
	"time"

	"github.com/google/uuid"
)

// DebugEventType groups observability events by pipeline stage.
type DebugEventType string

const (
	EventAPI           DebugEventType = "API"
	EventAuth          DebugEventType = "AUTH"
	EventPolicy        DebugEventType = "POLICY"
	EventAudit         DebugEventType = "AUDIT"
	EventContextSwitch DebugEventType = "CONTEXT_SWITCH"
)

// DebugEvent is a best-effort observability record emitted by pipeline stages
// for replay and debugging. Emission failures never affect the request.
type DebugEvent struct {
	ID            uuid.UUID      `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Type          DebugEventType `json:"type"`
	Action        string         `json:"action"`
	Actor         *EventActor    `json:"actor,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// EventActor identifies who triggered an event, as far as the pipeline had
// resolved it at emission time.
type EventActor struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	Role     string     `json:"role,omitempty"`
}
