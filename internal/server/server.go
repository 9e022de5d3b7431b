// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "atelier/docs" // swagger docs
	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/mailer"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"
	"atelier/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	projectRepo    repository.ProjectRepository
	roleRepo       repository.RoleRepository
	membershipRepo repository.MembershipRepository

	sessions *session.Store

	tenantService     *service.TenantService
	roleService       *service.RoleService
	membershipService *service.MembershipService
	inviteService     *service.InviteService
	projectService    *service.ProjectService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	s := newServer(cfg, db, redisClient)
	s.promMiddleware = middleware.InitMetrics("atelier-api")
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	s := newServer(cfg, db, redisClient)
	s.promMiddleware = middleware.InitMetrics("atelier-api")
	return s, nil
}

// newServer wires repositories and services. Prometheus registration is left
// to the exported constructors so tests can build servers repeatedly.
func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		userRepo:       repository.NewUserRepository(db),
		tenantRepo:     repository.NewTenantRepository(db),
		projectRepo:    repository.NewProjectRepository(db),
		roleRepo:       repository.NewRoleRepository(db),
		membershipRepo: repository.NewMembershipRepository(db),
		sessions:       session.NewStore(redisClient),
	}

	s.roleService = service.NewRoleService(s.roleRepo, s.tenantRepo, s.membershipRepo)
	s.tenantService = service.NewTenantService(s.tenantRepo, s.membershipRepo, s.roleService, s.sessions)
	s.membershipService = service.NewMembershipService(s.membershipRepo, s.tenantRepo, s.projectRepo, s.userRepo)
	s.projectService = service.NewProjectService(s.projectRepo, s.tenantRepo, s.membershipRepo)

	var passcodes service.PasscodeStore
	if redisClient != nil {
		passcodes = service.NewRedisPasscodeStore(redisClient)
	}
	s.inviteService = service.NewInviteService(
		s.userRepo, s.tenantRepo, s.membershipRepo,
		passcodes, mailer.FromConfig(cfg, middleware.Logger), middleware.Logger,
	)

	return s
}

// Sessions exposes the active-tenant store for callers that subscribe to
// selection changes.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Atelier Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/passcode", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "passcode"), s.PasscodeSignIn)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	if s.demoBypassEnabled() {
		auth.Post("/demo", s.DemoSignIn)
	}

	// Public space lookup by short code
	api.Get("/spaces/code/:code", s.GetSpaceByCode)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Active space session
	sess := protected.Group("/session")
	sess.Get("/active-space", s.GetActiveSpace)
	sess.Put("/active-space", s.SelectActiveSpace)

	// Space routes
	spaces := protected.Group("/spaces")
	spaces.Get("/", s.ListSpaces)
	spaces.Post("/", s.CreateSpace)

	// Define specific /:id/:resource routes BEFORE generic /:id route
	spaces.Get("/:id/members", s.ListMembers)
	spaces.Post("/:id/members", s.AddMember)
	spaces.Put("/:id/members/:memberId/roles", s.SetMemberRoles)
	spaces.Put("/:id/members/:memberId/tier", s.SetMemberTier)
	spaces.Delete("/:id/members/:memberId", s.RemoveMember)

	spaces.Get("/:id/roles", s.ListRoles)
	spaces.Post("/:id/roles", s.AddCustomRole)
	spaces.Put("/:id/roles", s.BulkSetRolesEnabled)
	spaces.Put("/:id/roles/:roleId", s.SetRoleEnabled)
	spaces.Delete("/:id/roles/:roleId", s.DeleteCustomRole)

	spaces.Get("/:id/permissions", s.GetPermissionTable)
	spaces.Put("/:id/permissions", s.SetPermissionOverlay)

	spaces.Post("/:id/invites", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "invite"), s.InviteMember)

	spaces.Get("/:id/projects", s.ListProjects)
	spaces.Post("/:id/projects", s.CreateProject)

	// Generic /:id routes must be last
	spaces.Get("/:id", s.GetSpace)
	spaces.Put("/:id", s.UpdateSpace)
	spaces.Delete("/:id", s.DeleteSpace)

	// Project routes
	projects := protected.Group("/projects")
	projects.Get("/:id/members", s.ListProjectMembers)
	projects.Post("/:id/members", s.AddProjectMember)
	projects.Put("/:id/members/:memberId/tier", s.SetProjectMemberTier)
	projects.Delete("/:id/members/:memberId", s.RemoveProjectMember)
	projects.Put("/:id", s.UpdateProject)
	projects.Delete("/:id", s.DeleteProject)
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Passcode invites and session persistence need Redis.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// DemoSessionCookie carries the dev-only bypass user id. It is honored only
// when demoBypassEnabled reports true.
const DemoSessionCookie = "demo_session"

// demoBypassEnabled gates the demo session: opt-in via config and never in
// production, whatever the config says.
func (s *Server) demoBypassEnabled() bool {
	return s.config.DemoBypass && s.config.Env != "production" && s.config.Env != "prod"
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.demoBypassEnabled() {
			if cookie := c.Cookies(DemoSessionCookie); cookie != "" {
				if uid, err := strconv.ParseUint(cookie, 10, 32); err == nil && uid > 0 {
					c.Locals("userID", uint(uid))
					ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(uid))
					c.SetUserContext(ctx)
					return c.Next()
				}
			}
		}

		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "atelier-api" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "atelier-client" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" {
			if s.redis != nil {
				isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
				if err == nil && isBlacklisted > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
		}

		c.Locals("userID", uint(userID))
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Atelier API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
