package domain

import "github.com/google/uuid"

// PolicyInput is the immutable snapshot submitted to the policy decision
// engine. It is built fresh for every evaluation; the risk score and resource
// id vary per call, so inputs must never be cached across requests.
type PolicyInput struct {
	User     PolicyUser     `json:"user"`
	Tenant   PolicyTenant   `json:"tenant"`
	Action   string         `json:"action"`
	Resource PolicyResource `json:"resource"`
	Context  PolicyContext  `json:"context"`
}

type PolicyUser struct {
	ID    uuid.UUID      `json:"id"`
	Email string         `json:"email"`
	Role  MembershipRole `json:"role"`
}

type PolicyTenant struct {
	ID   uuid.UUID  `json:"id"`
	Type TenantType `json:"type"`
}

type PolicyResource struct {
	Type string     `json:"type"`
	ID   *uuid.UUID `json:"id,omitempty"`
}

type PolicyContext struct {
	Channel       string `json:"channel"`
	IPAddress     string `json:"ip"`
	UserAgent     string `json:"userAgent"`
	RiskScore     int    `json:"riskScore"`
	IsTestTraffic bool   `json:"isTestTraffic"`
}

// PolicyDecision is the engine's verdict.
type PolicyDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
