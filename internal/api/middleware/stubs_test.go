package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

type stubUserRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.findByEmailFn == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.findByEmailFn(ctx, email)
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.findByIDFn == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.findByIDFn(ctx, id)
}

type stubMembershipRepo struct {
	findActiveFn func(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error)
	lookups      int
}

func (s *stubMembershipRepo) FindActive(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	s.lookups++
	if s.findActiveFn == nil {
		return nil, domain.ErrMembershipNotFound
	}
	return s.findActiveFn(ctx, userID, tenantID)
}

func (s *stubMembershipRepo) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	return nil, nil
}

type stubSessionStore struct {
	mu      sync.Mutex
	data    map[string]*ports.StoredCredentials
	evicted []string
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{data: map[string]*ports.StoredCredentials{}}
}

func (s *stubSessionStore) Get(ctx context.Context, sessionID string) (*ports.StoredCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return creds, nil
}

func (s *stubSessionStore) Put(ctx context.Context, sessionID string, creds *ports.StoredCredentials, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = creds
	return nil
}

func (s *stubSessionStore) Evict(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	s.evicted = append(s.evicted, sessionID)
	return nil
}

type stubPolicyClient struct {
	decideFn func(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error)
	calls    int
}

func (s *stubPolicyClient) Decide(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error) {
	s.calls++
	if s.decideFn == nil {
		return domain.PolicyDecision{Allowed: true}, nil
	}
	return s.decideFn(ctx, input)
}

type stubRiskService struct {
	evaluateFn func(ctx context.Context, req ports.RiskRequest, userID uuid.UUID) (ports.RiskResult, error)
	calls      int
}

func (s *stubRiskService) Evaluate(ctx context.Context, req ports.RiskRequest, userID uuid.UUID) (ports.RiskResult, error) {
	s.calls++
	if s.evaluateFn == nil {
		return ports.RiskResult{}, nil
	}
	return s.evaluateFn(ctx, req, userID)
}

type stubRecorder struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
}

func (s *stubRecorder) Record(_ context.Context, rec *domain.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *stubRecorder) all() []*domain.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

type stubEventSink struct {
	mu     sync.Mutex
	events []domain.DebugEvent
}

func (s *stubEventSink) Emit(event domain.DebugEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}
