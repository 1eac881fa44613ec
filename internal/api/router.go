package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/anybank/identity-platform/internal/api/handler"
	"github.com/anybank/identity-platform/internal/api/middleware"
	"github.com/anybank/identity-platform/internal/core/ports"
	"github.com/anybank/identity-platform/internal/core/service"
	"github.com/anybank/identity-platform/internal/pkg/config"
	mongodb "github.com/anybank/identity-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/anybank/identity-platform/internal/infrastructure/db/redis"
	"github.com/anybank/identity-platform/internal/infrastructure/policy"
)

// Dependencies carries the externally-built collaborators the router wires
// handlers and middleware from.
type Dependencies struct {
	Mongo    *mongo.Database
	Redis    *redis.Client
	Recorder ports.AuditRecorder
	Events   *service.DebugEventService
	Log      zerolog.Logger
}

// NewRouter builds the Echo instance with the full authorization pipeline.
//
// Middleware order is load-bearing: correlation must run first so every later
// stage can tag its output, audit must wrap policy so denials are still
// recorded, and policy must be the last gate before handlers.
func NewRouter(cfg *config.Config, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Repositories and services ---
	users := mongodb.NewUserRepository(deps.Mongo)
	memberships := mongodb.NewMembershipRepository(deps.Mongo)
	sessions := redisdb.NewSessionStore(deps.Redis)
	velocity := redisdb.NewVelocityTracker(deps.Redis, cfg.Audit.VelocityWindow)

	auditRepo := mongodb.NewAuditRepository(deps.Mongo)
	riskService := service.NewRiskService(auditRepo, velocity, cfg.Risk, deps.Log)
	policyClient := policy.NewOPAClient(policy.Config{URL: cfg.Policy.URL, Timeout: cfg.Policy.Timeout}, deps.Log)
	identityService := service.NewIdentityService(users, cfg.JWTSecret, cfg.IdentityTokenTTL)
	exchangeService := service.NewExchangeService(users, memberships, policyClient, deps.Events,
		service.ExchangeConfig{JWTSecret: cfg.JWTSecret, AccessTokenTTL: cfg.AccessTokenTTL}, deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Authorization pipeline ---
	e.Use(middleware.Correlation())
	e.Use(middleware.SessionAuth(cfg.JWTSecret, sessions, deps.Log))
	e.Use(middleware.TenantContext(users, memberships, deps.Events, deps.Log))
	e.Use(middleware.Risk(riskService, users, deps.Events, deps.Log))
	e.Use(middleware.Audit(deps.Recorder, deps.Events))
	e.Use(middleware.Policy(policyClient, middleware.PolicyConfig{SensitivePaths: cfg.Policy.SensitivePaths}, deps.Events, deps.Log))

	// --- BFF session endpoints (anonymous) ---
	secureCookies := cfg.Env == "production"
	bffHandler := handler.NewBFFHandler(identityService, sessions, cfg.SessionTTL, secureCookies, deps.Log)
	bff := e.Group("/bff/auth")
	bff.POST("/login", bffHandler.Login)
	bff.POST("/logout", bffHandler.Logout)
	bff.GET("/session", bffHandler.Session)

	// --- Authenticated API ---
	api := e.Group("/api", middleware.RequireAuth())
	exchangeHandler := handler.NewExchangeHandler(exchangeService, sessions, cfg.SessionTTL, deps.Log)
	api.POST("/auth/exchange", exchangeHandler.Exchange)

	meHandler := handler.NewMeHandler(users, memberships)
	api.GET("/me", meHandler.Me)

	accountHandler := handler.NewAccountHandler()
	api.POST("/accounts/:accountId/transfer", accountHandler.Transfer)

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	debugHandler := handler.NewDebugHandler(deps.Events)
	e.GET("/debug/events", debugHandler.Events)

	return e
}
