package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditOutcome is the terminal classification of a request.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "SUCCESS"
	OutcomeDenied  AuditOutcome = "DENIED"
	OutcomeError   AuditOutcome = "ERROR"
)

// OutcomeFromStatus maps the final HTTP status of a request to an outcome:
// 2xx SUCCESS, 403 DENIED, anything else ERROR.
func OutcomeFromStatus(status int) AuditOutcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == 403:
		return OutcomeDenied
	default:
		return OutcomeError
	}
}

// AuditRecord is one append-only entry per request. Records are never mutated
// or deleted once written.
type AuditRecord struct {
	ID            uuid.UUID      `json:"id"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	TenantID      *uuid.UUID     `json:"tenant_id,omitempty"`
	Action        string         `json:"action"`
	ResourceType  string         `json:"resource_type"`
	ResourceID    *uuid.UUID     `json:"resource_id,omitempty"`
	Outcome       AuditOutcome   `json:"outcome"`
	RiskScore     *int           `json:"risk_score,omitempty"`
	IPAddress     string         `json:"ip_address"`
	UserAgent     string         `json:"user_agent"`
	CorrelationID string         `json:"correlation_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
