package ports

import (
	"context"

	"github.com/anybank/identity-platform/internal/core/domain"
)

// PolicyClient submits a policy input to the external decision engine.
// A transport or timeout failure is returned as an error, never interpreted
// as an implicit allow or deny.
type PolicyClient interface {
	Decide(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error)
}
