package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/anybank/identity-platform/internal/core/service"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret        string        `env:"JWT_SECRET"`
	IdentityTokenTTL time.Duration `env:"IDENTITY_TOKEN_TTL, default=8h"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,   default=1h"`
	SessionTTL       time.Duration `env:"SESSION_TTL,        default=12h"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Policy PolicyConfig
	Risk   service.RiskConfig
	Audit  AuditConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_platform"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type PolicyConfig struct {
	// URL is the decision endpoint of the external policy engine.
	URL     string        `env:"OPA_URL,        default=http://localhost:8181/v1/data/bank/authz"`
	Timeout time.Duration `env:"POLICY_TIMEOUT, default=2s"`
	// SensitivePaths lists the request patterns that must pass a policy
	// check. A trailing slash matches by prefix, "*" matches one segment.
	SensitivePaths []string `env:"POLICY_SENSITIVE_PATHS, default=/api/accounts/*/transfer,/api/admin/"`
}

type AuditConfig struct {
	Workers        int           `env:"AUDIT_WORKERS,         default=4"`
	VelocityWindow time.Duration `env:"RISK_VELOCITY_WINDOW,  default=1m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
