// Package metrics defines and registers all custom Prometheus metrics for the
// identity platform's authorization pipeline. It is the single source of
// truth for metric names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// AuthzDecisions counts policy decisions by verdict.
// Label:
//   - decision: "allow" or "deny"
var AuthzDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of policy engine decisions, by verdict.",
	},
	[]string{"decision"},
)

// PolicyEngineErrors counts failed calls to the external decision engine
// (network errors, timeouts). These are distinct from denials.
var PolicyEngineErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_engine_errors_total",
		Help:      "Total number of policy engine calls that failed outright.",
	},
)

// RiskScore observes computed risk scores for authenticated requests.
var RiskScore = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "risk_score",
		Help:      "Distribution of computed per-request risk scores.",
		Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditRecords counts audit records produced, by outcome.
// Label:
//   - outcome: SUCCESS, DENIED, or ERROR
var AuditRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_records_total",
		Help:      "Total number of audit records produced, by outcome.",
	},
	[]string{"outcome"},
)

// AuditDropped counts records the async recorder had to drop because a worker
// queue was full. Audit is best-effort relative to the primary response.
var AuditDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit records dropped due to full queues.",
	},
)

// ── Token exchange metrics ────────────────────────────────────────────────────

// TokenExchanges counts context-switch attempts.
// Label:
//   - result: "success", "denied", or "error"
var TokenExchanges = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_exchanges_total",
		Help:      "Total number of tenant token exchanges, by result.",
	},
	[]string{"result"},
)
