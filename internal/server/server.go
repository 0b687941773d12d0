// Package server contains the HTTP handlers for the portfolio API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"portfolio/internal/cache"
	"portfolio/internal/captcha"
	"portfolio/internal/config"
	"portfolio/internal/database"
	"portfolio/internal/geo"
	"portfolio/internal/mailer"
	"portfolio/internal/middleware"
	"portfolio/internal/models"
	"portfolio/internal/notifications"
	"portfolio/internal/observability"
	"portfolio/internal/repository"
	"portfolio/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// dbRetryInterval throttles reconnect attempts after the database was unreachable.
const dbRetryInterval = 30 * time.Second

// weatherRateLimit is the per-IP budget of weather lookups per minute.
const weatherRateLimit = 30

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *database.Handle
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	tracingShutdown func(context.Context) error
	notifier        *notifications.Notifier
	contactService  *service.ContactService
	likeService     *service.LikeService
	weatherService  *service.WeatherService
}

// NewServer creates a new server instance with all dependencies. An unreachable
// database does not stop startup; the connection is retried on use.
func NewServer(cfg *config.Config) (*Server, error) {
	tracingShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "portfolio-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	redisClient, err := cache.NewClient(cfg.RedisURL, cfg.RedisToken)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}

	db := database.NewHandle(func() (*gorm.DB, error) {
		return database.Connect(cfg)
	}, dbRetryInterval)
	if _, err := db.DB(); err != nil {
		middleware.Logger.Warn("Database unavailable; contact submissions fail until it is reachable",
			"driver", cfg.DBDriver, "error", err.Error())
	}

	server, err := newServer(cfg, db, redisClient)
	if err != nil {
		return nil, err
	}
	server.tracingShutdown = tracingShutdown
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// db may be nil; redisClient may not.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	return newServer(cfg, database.Static(db), redisClient)
}

func newServer(cfg *config.Config, db *database.Handle, redisClient *redis.Client) (*Server, error) {
	if redisClient == nil {
		return nil, errors.New("redis client is required")
	}

	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("portfolio-api"),
		notifier:       notifications.NewNotifier(redisClient),
	}

	server.contactService = service.NewContactService(
		middleware.NewFixedWindowLimiter(redisClient, "contact", cfg.ContactRateLimit, window),
		captcha.NewTurnstileVerifier(cfg.TurnstileSecretKey, cfg.TurnstileVerifyURL),
		mailer.New(mailer.SettingsFromConfig(cfg)),
		geo.NewResolver(cfg.GeoLookupURL, redisClient),
		repository.NewSubmissionLogFromSource(db),
	)
	server.likeService = service.NewLikeService(
		repository.NewLikeRepository(redisClient),
		middleware.NewFixedWindowLimiter(redisClient, "like", cfg.LikeRateLimit, window),
		server.notifier,
	)
	server.weatherService = service.NewWeatherService(cfg.WeatherAPIURL, redisClient)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,OPTIONS",
		MaxAge:       86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return s.respondWithError(c, models.NewRateLimitError())
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

	api.Post("/contact", s.SubmitContact)

	posts := api.Group("/posts")
	posts.Post("/:postId/like", s.ToggleLike)
	posts.Get("/:postId/likes", s.GetLikes)

	// Each weather lookup may reach Open-Meteo; bound per-IP fan-out.
	api.Get("/weather", middleware.RateLimit(s.redis, weatherRateLimit, time.Minute, "weather"), s.GetWeather)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Portfolio API",
		BodyLimit: 64 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
				return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err), !s.config.IsProduction())
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.notifier.StartLikeSubscriber(s.shutdownCtx, func(e models.LikeEvent) {
		middleware.Logger.Info("Like event", "post_id", e.PostID, "count", e.Count, "liked", e.Liked)
	}); err != nil {
		log.Printf("failed to start like subscriber: %v", err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the subscriber goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if err := s.db.Close(); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	// Flush pending spans
	if s.tracingShutdown != nil {
		if terr := s.tracingShutdown(ctx); terr != nil {
			log.Printf("error shutting down tracer: %v", terr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis backs every endpoint
// and is required; the database only backs the submission log and is reported.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if db, err := s.db.DB(); err != nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if dbStatus != "healthy" {
		overallStatus = "degraded"
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
