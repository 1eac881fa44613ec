package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

type stubAuditRepo struct {
	appendFn      func(ctx context.Context, rec *domain.AuditRecord) error
	countFn       func(ctx context.Context, userID uuid.UUID, action string, outcome domain.AuditOutcome, since time.Time) (int64, error)
	recentIPsFn   func(ctx context.Context, userID uuid.UUID, since time.Time, limit int64) ([]string, error)
	seenAgentFn   func(ctx context.Context, userID uuid.UUID, userAgent string, since time.Time) (bool, error)
}

func (s *stubAuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, rec)
}

func (s *stubAuditRepo) CountRecentActions(ctx context.Context, userID uuid.UUID, action string, outcome domain.AuditOutcome, since time.Time) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, userID, action, outcome, since)
}

func (s *stubAuditRepo) RecentIPs(ctx context.Context, userID uuid.UUID, since time.Time, limit int64) ([]string, error) {
	if s.recentIPsFn == nil {
		return nil, nil
	}
	return s.recentIPsFn(ctx, userID, since, limit)
}

func (s *stubAuditRepo) SeenUserAgent(ctx context.Context, userID uuid.UUID, userAgent string, since time.Time) (bool, error) {
	if s.seenAgentFn == nil {
		return true, nil
	}
	return s.seenAgentFn(ctx, userID, userAgent, since)
}

type stubVelocity struct {
	hitFn func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (s *stubVelocity) Hit(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.hitFn == nil {
		return 1, nil
	}
	return s.hitFn(ctx, userID)
}

type stubUsers struct {
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

type stubMemberships struct {
	active map[string]*domain.Membership // key userID|tenantID
}

func membershipKey(userID, tenantID uuid.UUID) string {
	return userID.String() + "|" + tenantID.String()
}

func (s *stubMemberships) FindActive(_ context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	if m, ok := s.active[membershipKey(userID, tenantID)]; ok {
		return m, nil
	}
	return nil, domain.ErrMembershipNotFound
}

func (s *stubMemberships) ListActiveForUser(_ context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	var out []domain.Membership
	for _, m := range s.active {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type stubPolicy struct {
	decideFn func(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error)
	inputs   []domain.PolicyInput
}

func (s *stubPolicy) Decide(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error) {
	s.inputs = append(s.inputs, input)
	if s.decideFn == nil {
		return domain.PolicyDecision{Allowed: true}, nil
	}
	return s.decideFn(ctx, input)
}

var _ ports.AuditRepository = (*stubAuditRepo)(nil)
var _ ports.VelocityTracker = (*stubVelocity)(nil)
var _ ports.UserRepository = (*stubUsers)(nil)
var _ ports.MembershipRepository = (*stubMemberships)(nil)
var _ ports.PolicyClient = (*stubPolicy)(nil)
