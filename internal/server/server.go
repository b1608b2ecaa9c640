// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/jobs"
	"agora/internal/middleware"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config            *config.Config
	db                *gorm.DB
	redis             *redis.Client
	promMiddleware    *fiberprometheus.FiberPrometheus
	userRepo          repository.UserRepository
	communityRepo     repository.CommunityRepository
	communityService  *service.CommunityService
	membershipService *service.MembershipService
	banService        *service.BanService
	moderationService *service.ModerationService
	banExpiry         *jobs.BanExpiryJob
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	communityRepo := repository.NewCommunityRepository(db)

	server := &Server{
		config:            cfg,
		db:                db,
		redis:             redisClient,
		promMiddleware:    observability.NewHTTPMetrics("agora-api"),
		userRepo:          userRepo,
		communityRepo:     communityRepo,
		communityService:  service.NewCommunityService(db, communityRepo),
		membershipService: service.NewMembershipService(db),
		banService:        service.NewBanService(db),
		moderationService: service.NewModerationService(db),
		banExpiry:         jobs.NewBanExpiryJob(db),
	}

	middleware.InitMiddleware(cfg)
	return server, nil
}

// StartBanExpirySweeper launches the ban expiry sweep loop. It returns once
// the loop goroutine is running; cancelling ctx stops the loop.
func (s *Server) StartBanExpirySweeper(ctx context.Context) {
	go s.banExpiry.RunScheduled(ctx, s.config.SweepInterval)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Agora Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)

	// Public community routes (viewer-aware when a token is supplied)
	communities := api.Group("/communities", s.OptionalAuth)
	communities.Get("/", s.GetCommunities)
	communities.Get("/trending", s.GetTrendingCommunities)
	communities.Get("/letter/:letter", s.GetCommunitiesByLetter)
	communities.Get("/:slug/rules", s.GetCommunityRules)
	communities.Get("/:slug/flairs", s.GetCommunityFlairs)
	communities.Get("/:slug", s.GetCommunityBySlug)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Community lifecycle
	managed := protected.Group("/communities")
	managed.Post("/", middleware.RateLimit(
		s.redis, 2, 10*time.Minute, "create_community"), s.CreateCommunity)
	managed.Put("/:slug", s.UpdateCommunity)
	managed.Delete("/:slug", s.DeleteCommunity)

	// Membership
	managed.Post("/:slug/join", middleware.RateLimit(
		s.redis, 10, time.Minute, "join_community"), s.JoinCommunity)
	managed.Post("/:slug/leave", s.LeaveCommunity)
	managed.Get("/:slug/role", s.GetMyRole)
	managed.Get("/:slug/governance", s.GetGovernance)

	// Pending join requests
	managed.Get("/:slug/requests", s.GetPendingRequests)
	managed.Post("/:slug/requests/:userId/approve", s.ApproveJoinRequest)
	managed.Post("/:slug/requests/:userId/reject", s.RejectJoinRequest)

	// Bans
	managed.Get("/:slug/bans", s.GetBans)
	managed.Post("/:slug/bans", s.BanUser)
	managed.Delete("/:slug/bans/:userId", s.UnbanUser)

	// Moderators
	managed.Post("/:slug/moderators/invite", s.InviteModerator)
	managed.Post("/:slug/moderators/respond", s.AnswerModeratorInvite)
	managed.Delete("/:slug/moderators/:userId", s.RemoveModerator)

	// Rules and flairs
	managed.Post("/:slug/rules", s.CreateCommunityRule)
	managed.Delete("/:slug/rules/:ruleId", s.DeleteCommunityRule)
	managed.Post("/:slug/flairs", s.CreateCommunityFlair)
	managed.Delete("/:slug/flairs/:flairId", s.DeleteCommunityFlair)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/communities", s.GetMyCommunities)
	users.Get("/me/pending", s.GetMyPendingRequests)
	users.Get("/me/banned-from", s.GetMyBans)
	users.Get("/me/moderated", s.GetMyModeratedCommunities)
	users.Get("/me/invites", s.GetMyModeratorInvites)
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
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
