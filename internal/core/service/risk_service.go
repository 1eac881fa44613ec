package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anybank/identity-platform/internal/core/domain"
	"github.com/anybank/identity-platform/internal/core/ports"
)

// Signal weights. Each signal contributes at most once per request; the total
// is clamped to [0,100].
const (
	weightNewDevice    = 30
	weightGeoMismatch  = 25
	weightOffHours     = 15
	weightHighVelocity = 20
	weightFailedAuth   = 10 // per attempt
	weightVPNProxy     = 15

	maxRiskScore = 100
)

// RiskConfig tunes the individual signals.
type RiskConfig struct {
	// OffHoursStart/End bound the normal-activity window; access outside
	// [End, Start) local time scores as off-hours.
	OffHoursStart int `env:"RISK_OFF_HOURS_START, default=22"`
	OffHoursEnd   int `env:"RISK_OFF_HOURS_END,   default=6"`
	// VelocityThreshold is the request count inside the tracker's window
	// above which the velocity signal fires.
	VelocityThreshold int64 `env:"RISK_VELOCITY_THRESHOLD, default=50"`
	// FailedAuthWindow is how far back failed logins count.
	FailedAuthWindow time.Duration `env:"RISK_FAILED_AUTH_WINDOW, default=15m"`
	// DeviceHistoryWindow is how far back a user agent counts as known.
	DeviceHistoryWindow time.Duration `env:"RISK_DEVICE_HISTORY_WINDOW, default=720h"`
}

// RiskService sums independent weighted signals from the current request and
// recent audit history into a 0-100 score. It only annotates context; it
// never blocks a request by itself.
type RiskService struct {
	history  ports.AuditRepository
	velocity ports.VelocityTracker
	cfg      RiskConfig
	log      zerolog.Logger
}

func NewRiskService(history ports.AuditRepository, velocity ports.VelocityTracker, cfg RiskConfig, log zerolog.Logger) *RiskService {
	return &RiskService{history: history, velocity: velocity, cfg: cfg, log: log}
}

// Evaluate computes the score for an authenticated request. History lookups
// fail soft: a signal whose collaborator errors contributes nothing.
func (s *RiskService) Evaluate(ctx context.Context, req ports.RiskRequest, userID uuid.UUID) (ports.RiskResult, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	factors := make(map[string]int)
	score := 0
	add := func(name string, pts int) {
		factors[name] = pts
		score += pts
	}

	if s.isNewDevice(ctx, req.UserAgent, userID, now) {
		add("new_device", weightNewDevice)
	}
	if s.isGeoInconsistent(ctx, req.IPAddress, userID, now) {
		add("geo_mismatch", weightGeoMismatch)
	}
	if s.isOffHours(now) {
		add("off_hours", weightOffHours)
	}
	if s.isHighVelocity(ctx, userID) {
		add("high_velocity", weightHighVelocity)
	}
	if n := s.recentFailedAttempts(ctx, userID, now); n > 0 {
		add("failed_attempts", n*weightFailedAuth)
	}
	if isProxyChain(req.ForwardedFor) {
		add("vpn_proxy", weightVPNProxy)
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	factors["total"] = score

	s.log.Debug().
		Int("score", score).
		Str("path", req.Path).
		Str("user_id", userID.String()).
		Msg("risk score computed")

	return ports.RiskResult{Score: score, Factors: factors}, nil
}

// isNewDevice: an empty user agent is always unrecognized; otherwise the
// fingerprint must appear in the user's recent audit history.
func (s *RiskService) isNewDevice(ctx context.Context, userAgent string, userID uuid.UUID, now time.Time) bool {
	if strings.TrimSpace(userAgent) == "" {
		return true
	}
	seen, err := s.history.SeenUserAgent(ctx, userID, userAgent, now.Add(-s.cfg.DeviceHistoryWindow))
	if err != nil {
		s.log.Warn().Err(err).Msg("device history lookup failed, skipping signal")
		return false
	}
	return !seen
}

// isGeoInconsistent approximates geolocation drift by comparing the /16
// prefix of the current address against recently recorded ones.
func (s *RiskService) isGeoInconsistent(ctx context.Context, ip string, userID uuid.UUID, now time.Time) bool {
	if ip == "" {
		return false
	}
	recent, err := s.history.RecentIPs(ctx, userID, now.Add(-s.cfg.DeviceHistoryWindow), 20)
	if err != nil {
		s.log.Warn().Err(err).Msg("ip history lookup failed, skipping signal")
		return false
	}
	if len(recent) == 0 {
		return false
	}
	current := ipPrefix(ip)
	for _, r := range recent {
		if ipPrefix(r) == current {
			return false
		}
	}
	return true
}

func (s *RiskService) isOffHours(now time.Time) bool {
	h := now.Hour()
	return h >= s.cfg.OffHoursStart || h < s.cfg.OffHoursEnd
}

func (s *RiskService) isHighVelocity(ctx context.Context, userID uuid.UUID) bool {
	if s.velocity == nil {
		return false
	}
	n, err := s.velocity.Hit(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("velocity tracking failed, skipping signal")
		return false
	}
	return n > s.cfg.VelocityThreshold
}

func (s *RiskService) recentFailedAttempts(ctx context.Context, userID uuid.UUID, now time.Time) int {
	n, err := s.history.CountRecentActions(ctx, userID, "login", domain.OutcomeDenied, now.Add(-s.cfg.FailedAuthWindow))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed-auth lookup failed, skipping signal")
		return 0
	}
	return int(n)
}

// isProxyChain flags requests that arrived through more than two forwarding
// hops, a cheap stand-in for a VPN/anonymizing-proxy signature.
func isProxyChain(forwardedFor string) bool {
	if forwardedFor == "" {
		return false
	}
	return len(strings.Split(forwardedFor, ",")) > 2
}

func ipPrefix(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) < 2 {
		return ip
	}
	return parts[0] + "." + parts[1]
}
