package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anybank/identity-platform/internal/core/domain"
)

// UserRepository looks up registered identities.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// MembershipRepository resolves (user, tenant) scope grants.
type MembershipRepository interface {
	// FindActive returns the ACTIVE membership for (userID, tenantID), or
	// domain.ErrMembershipNotFound. Non-ACTIVE rows behave as absent.
	FindActive(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error)
	// ListActiveForUser returns all ACTIVE memberships for a user.
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error)
}

// AuditRepository is the append-only audit trail plus the history queries the
// risk engine reads.
type AuditRepository interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
	CountRecentActions(ctx context.Context, userID uuid.UUID, action string, outcome domain.AuditOutcome, since time.Time) (int64, error)
	RecentIPs(ctx context.Context, userID uuid.UUID, since time.Time, limit int64) ([]string, error)
	SeenUserAgent(ctx context.Context, userID uuid.UUID, userAgent string, since time.Time) (bool, error)
}
