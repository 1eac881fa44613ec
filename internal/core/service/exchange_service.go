package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// ExchangeConfig tunes credential minting.
type ExchangeConfig struct {
	JWTSecret string
	// AccessTokenTTL is the nominal lifetime of a minted access credential.
	// The effective expiry is additionally capped by the identity
	// credential's remaining lifetime.
	AccessTokenTTL time.Duration
}

// ExchangeService implements the Unscoped -> Scoped(tenant) transition: it
// validates an identity credential, checks the ACTIVE membership for the
// target tenant, optionally confirms the switch with the policy engine, and
// mints a tenant-scoped access credential.
type ExchangeService struct {
	users       ports.UserRepository
	memberships ports.MembershipRepository
	policy      ports.PolicyClient
	events      ports.DebugEventSink
	cfg         ExchangeConfig
	log         zerolog.Logger
}

func NewExchangeService(
	users ports.UserRepository,
	memberships ports.MembershipRepository,
	policy ports.PolicyClient,
	events ports.DebugEventSink,
	cfg ExchangeConfig,
	log zerolog.Logger,
) *ExchangeService {
	if cfg.AccessTokenTTL <= 0 || cfg.AccessTokenTTL > time.Hour {
		cfg.AccessTokenTTL = time.Hour
	}
	return &ExchangeService{
		users:       users,
		memberships: memberships,
		policy:      policy,
		events:      events,
		cfg:         cfg,
		log:         log,
	}
}

func (s *ExchangeService) Exchange(ctx context.Context, identityToken string, targetTenantID uuid.UUID, riskScore *int) (*ports.ExchangeResult, error) {
	claims, expiry, err := s.parseIdentityToken(identityToken)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	membership, err := s.memberships.FindActive(ctx, user.ID, targetTenantID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			// Same denial whether the tenant exists or access is missing.
			return nil, &domain.TenantAccessDeniedError{UserID: user.ID, TenantID: targetTenantID}
		}
		return nil, err
	}

	if err := s.checkSwitchPolicy(ctx, user, membership, riskScore); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.cfg.AccessTokenTTL)
	if expiresAt.After(expiry) {
		expiresAt = expiry
	}

	token, err := s.mintAccessToken(claims, user, membership, expiresAt)
	if err != nil {
		return nil, &domain.TokenExchangeError{Code: "MINT_FAILED", Message: "could not mint access credential", Err: err}
	}

	tenant := domain.TenantInfo{
		TenantID:   membership.TenantID,
		TenantName: membership.TenantName,
		TenantType: membership.TenantType,
		Role:       membership.Role,
		UserID:     user.ID,
		UserEmail:  user.Email,
	}
	s.emitSwitchEvent(user, tenant)

	return &ports.ExchangeResult{
		AccessToken: token,
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
		Tenant:      tenant,
	}, nil
}

// parseIdentityToken verifies the credential and rejects already-scoped
// tokens: the only way back to Unscoped is the original identity credential,
// there is no tenant-to-tenant exchange.
func (s *ExchangeService) parseIdentityToken(raw string) (jwt.MapClaims, time.Time, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, time.Time{}, &domain.TokenExchangeError{Code: "IDENTITY_TOKEN_EXPIRED", Message: "identity credential has expired"}
	case err != nil, !tkn.Valid:
		return nil, time.Time{}, &domain.TokenExchangeError{Code: "INVALID_IDENTITY_TOKEN", Message: "identity credential is malformed or invalid", Err: err}
	}

	if v, _ := claims["tenant_id"].(string); v != "" {
		return nil, time.Time{}, &domain.TokenExchangeError{Code: "SCOPED_CREDENTIAL", Message: "exchange requires an unscoped identity credential"}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, time.Time{}, &domain.TokenExchangeError{Code: "INVALID_IDENTITY_TOKEN", Message: "identity credential has no expiry"}
	}
	return claims, exp.Time, nil
}

func (s *ExchangeService) resolveUser(ctx context.Context, claims jwt.MapClaims) (*domain.User, error) {
	if uid, _ := claims["uid"].(string); uid != "" {
		if id, err := uuid.Parse(uid); err == nil {
			if user, err := s.users.FindByID(ctx, id); err == nil {
				return user, nil
			}
		}
	}
	email, _ := claims["email"].(string)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, &domain.TokenExchangeError{Code: "UNKNOWN_SUBJECT", Message: "credential subject is not a registered user"}
		}
		return nil, err
	}
	return user, nil
}

// checkSwitchPolicy consults the decision engine about the switch itself.
// An unreachable engine fails the exchange rather than allowing it silently.
func (s *ExchangeService) checkSwitchPolicy(ctx context.Context, user *domain.User, m *domain.Membership, riskScore *int) error {
	if s.policy == nil {
		return nil
	}
	score := 0
	if riskScore != nil {
		score = *riskScore
	}
	tenantID := m.TenantID
	decision, err := s.policy.Decide(ctx, domain.PolicyInput{
		User:     domain.PolicyUser{ID: user.ID, Email: user.Email, Role: m.Role},
		Tenant:   domain.PolicyTenant{ID: m.TenantID, Type: m.TenantType},
		Action:   "context_switch",
		Resource: domain.PolicyResource{Type: "tenant", ID: &tenantID},
		Context:  domain.PolicyContext{Channel: "WEB", RiskScore: score},
	})
	if err != nil {
		return &domain.TokenExchangeError{Code: "POLICY_UNAVAILABLE", Message: "policy engine unavailable during exchange", Err: err}
	}
	if !decision.Allowed {
		reason := decision.Reason
		if reason == "" {
			reason = "context switch not permitted by policy"
		}
		return &domain.PolicyDeniedError{Action: "context_switch", Reason: reason, RiskScore: riskScore}
	}
	return nil
}

func (s *ExchangeService) mintAccessToken(identity jwt.MapClaims, user *domain.User, m *domain.Membership, expiresAt time.Time) (string, error) {
	sub, _ := identity["sub"].(string)
	claims := jwt.MapClaims{
		"sub":         sub,
		"email":       user.Email,
		"uid":         user.ID.String(),
		"tenant_id":   m.TenantID.String(),
		"tenant_type": string(m.TenantType),
		"role":        string(m.Role),
		"iat":         time.Now().Unix(),
		"exp":         expiresAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *ExchangeService) emitSwitchEvent(user *domain.User, tenant domain.TenantInfo) {
	if s.events == nil {
		return
	}
	userID := user.ID
	tenantID := tenant.TenantID
	s.events.Emit(domain.DebugEvent{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Type:      domain.EventContextSwitch,
		Action:    "tenant_switch",
		Actor: &domain.EventActor{
			UserID:   &userID,
			Email:    user.Email,
			TenantID: &tenantID,
			Role:     string(tenant.Role),
		},
		Details: map[string]any{
			"tenant_id":   tenant.TenantID.String(),
			"tenant_name": tenant.TenantName,
			"tenant_type": string(tenant.TenantType),
			"role":        string(tenant.Role),
		},
	})
}
