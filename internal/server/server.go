// Package server wires the HTTP surface of the Linker API: routing,
// middleware, authentication, and the realtime notification plumbing.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"linker/internal/cache"
	"linker/internal/config"
	"linker/internal/database"
	"linker/internal/featureflags"
	"linker/internal/middleware"
	"linker/internal/modeswitch"
	"linker/internal/notifications"
	"linker/internal/repository"
	"linker/internal/service"
	"linker/internal/token"
	"linker/internal/verification"
)

// Server bundles the fiber app with every dependency the handlers need.
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	app    *fiber.App

	promMiddleware fiber.Handler

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	userRepo    repository.UserRepository
	personaRepo repository.PersonaRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	issuer   *token.IssuerService
	verifier *verification.Service

	userService    *service.UserService
	personaService *service.PersonaService
	modeService    *service.ModeService
}

// NewServer connects to the database and Redis using the given config and
// builds a fully wired server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.ConnectReadReplica(cfg); err != nil {
		middleware.Logger.Warn("read replica unavailable, reads go to primary", "error", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient()), nil
}

// NewServerWithDeps builds a server from pre-constructed infrastructure.
// Tests use this to inject sqlmock and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	shutdownCtx, shutdownFn := context.WithCancel(context.Background())

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		shutdownCtx: shutdownCtx,
		shutdownFn:  shutdownFn,
	}

	s.userRepo = repository.NewUserRepository(db)
	s.personaRepo = repository.NewPersonaRepository(db)

	s.notifier = notifications.NewNotifier(redisClient)
	s.hub = notifications.NewHub()
	s.featureFlags = featureflags.NewManager(cfg.FeatureFlags)

	s.issuer = token.NewIssuer(cfg.JWTSecret, cfg.PersonaTokenTTL, redisClient)
	s.verifier = verification.NewService(s.userRepo)

	registry := modeswitch.NewRegistry(s.personaRepo, s.verifier, s.issuer, cfg.ProfessionalHome, cfg.AnonymousHome)

	s.userService = service.NewUserService(s.userRepo, s.verifier)
	s.personaService = service.NewPersonaService(s.personaRepo, s.notifier)
	s.modeService = service.NewModeService(registry, s.featureFlags, s.notifier)

	// Deleting a persona forces any session using it back to professional
	// mode, locally and (via Redis) on every other instance.
	s.personaService.OnPersonaRemoved(s.modeService.HandlePersonaRemoved)

	s.app = fiber.New(fiber.Config{
		AppName:               "linker-api",
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: cfg.Env == "production",
	})

	prom := middleware.InitMetrics("linker-api")
	prom.RegisterAt(s.app, "/metrics")
	s.promMiddleware = middleware.MetricsMiddleware(prom)

	s.SetupMiddleware()
	s.SetupRoutes()

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware installs the global middleware chain. Order matters:
// recovery first, then request identity, then everything that logs or
// measures.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(middleware.ContextMiddleware())
	s.app.Use(s.promMiddleware)
	s.app.Use(middleware.TracingMiddleware())
	s.app.Use(helmet.New())
	s.app.Use(middleware.StructuredLogger())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))
}

// SetupRoutes registers every HTTP endpoint.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.LivenessCheck)
	s.app.Get("/health/live", s.LivenessCheck)
	s.app.Get("/health/ready", s.ReadinessCheck)

	api := s.app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Linker API Metrics"}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Credential-scoped surface: authenticated by the persona credential
	// itself, deliberately blind to the owning account.
	anonymous := api.Group("/anonymous", middleware.AnonymousScope(s.issuer))
	anonymous.Get("/session", s.GetAnonymousSession)

	protected := api.Group("", middleware.AuthRequired(s.config))

	users := protected.Group("/users")
	users.Get("", s.AdminRequired, s.AdminListUsers)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeleteMyAccount)
	users.Get("/me/verification", s.GetMyVerification)
	users.Post("/me/verification", s.RequestVerification)
	users.Post("/:id/verify", s.AdminRequired, s.AdminSetVerification)

	personas := protected.Group("/personas")
	personas.Get("", s.ListPersonas)
	personas.Post("", s.CreatePersona)
	personas.Put("/:id", s.UpdatePersona)
	personas.Delete("/:id", s.DeletePersona)
	personas.Post("/:id/switch", s.SwitchPersona)
	personas.Post("/exit", s.ExitAnonymous)

	protected.Get("/mode", s.GetMode)
	protected.Get("/flags", s.GetFeatureFlags)

	contexts := protected.Group("/context")
	contexts.Get("", s.GetContext)
	contexts.Post("/snapshot", s.SnapshotContext)
	contexts.Get("/drafts", s.ListDrafts)
	contexts.Post("/drafts", s.SaveDraft)
	contexts.Get("/searches", s.ListSearches)
	contexts.Post("/searches", s.RecordSearch)
	contexts.Post("/viewed", s.MarkViewed)

	protected.Get("/ws", s.WebSocketUpgrade, s.WebSocketHandler())
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadinessCheck reports whether the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok", "redis": "ok"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unreachable"
		healthy = false
	}
	if s.redis == nil || s.redis.Ping(ctx).Err() != nil {
		checks["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded", "checks": checks,
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "checks": checks})
}

// AdminRequired allows only accounts with the admin flag past this point.
func (s *Server) AdminRequired(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
	if err != nil || !user.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin access required",
		})
	}
	return c.Next()
}

// Start launches the realtime plumbing and begins serving.
func (s *Server) Start() error {
	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		middleware.Logger.Error("notification hub wiring failed", "error", err)
	}
	err := s.notifier.StartPersonaEventSubscriber(s.shutdownCtx, func(ev notifications.PersonaEvent) {
		if ev.Type == notifications.EventPersonaRemoved {
			s.modeService.HandlePersonaRemoved(s.shutdownCtx, ev.UserID, ev.PersonaID)
		}
	})
	if err != nil {
		middleware.Logger.Error("persona event subscriber failed", "error", err)
	}

	return s.app.Listen(":" + s.config.Port)
}

// Shutdown drains connections and stops background subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()
	_ = s.hub.Shutdown(ctx)
	return s.app.ShutdownWithContext(ctx)
}
