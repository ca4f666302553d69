// Package httpapi is a reference external adapter exposing internal/facade
// over HTTP with Gin, in the same shape as the teacher's internal/api
// package (APIServer wrapping a gin.Engine, grouped route registration,
// logging/recovery/CORS middleware). It sits outside the five core
// subsystems: nothing under internal/facade, internal/patterns,
// internal/callgraph, internal/reachability, internal/scoring, or
// internal/gates imports it, and no test in those packages depends on a
// live listener.
package httpapi

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftco/drift/internal/facade"
	"github.com/driftco/drift/internal/middleware"
)

// Server wraps the Gin router bound to a facade.Facade backend.
type Server struct {
	router      *gin.Engine
	handler     *Handler
	logger      *slog.Logger
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a Server serving f over HTTP.
func NewServer(f facade.Facade, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(), logger)

	router := gin.New()
	router.Use(loggingMiddleware(logger))
	router.Use(recoveryMiddleware(logger))
	router.Use(corsMiddleware())
	router.Use(rateLimitMiddleware(limiter))

	srv := &Server{
		router:      router,
		handler:     NewHandler(f, logger),
		logger:      logger,
		rateLimiter: limiter,
	}
	srv.setupRoutes()
	return srv
}

// Close releases background resources (the rate limiter's cleanup loop).
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handler.Health)
		v1.POST("/scan", s.handler.Scan)
		v1.POST("/analyze", s.handler.Analyze)

		patternsGroup := v1.Group("/patterns")
		{
			patternsGroup.GET("", s.handler.ListPatterns)
			patternsGroup.GET("/:id", s.handler.GetPattern)
			patternsGroup.POST("/:id/approve", s.handler.ApprovePattern)
			patternsGroup.POST("/:id/ignore", s.handler.IgnorePattern)
			patternsGroup.POST("/:id/revert", s.handler.RevertPattern)
			patternsGroup.DELETE("/:id", s.handler.DeletePattern)
		}

		v1.GET("/conventions", s.handler.ListConventions)

		reach := v1.Group("/reachability")
		{
			reach.GET("/forward/:functionId", s.handler.ForwardReach)
			reach.GET("/backward/:functionId", s.handler.BackwardReach)
		}

		analyses := v1.Group("/analyses")
		{
			analyses.POST("/:kind", s.handler.Analyze2)
		}

		gatesGroup := v1.Group("/gates")
		{
			gatesGroup.POST("/check", s.handler.GateCheck)
			gatesGroup.GET("/violations", s.handler.GateViolations)
		}

		v1.POST("/simulate", s.handler.Simulate)

		backups := v1.Group("/backups")
		{
			backups.POST("", s.handler.CreateBackup)
			backups.GET("", s.handler.ListBackups)
			backups.POST("/:id/restore", s.handler.RestoreBackup)
			backups.DELETE("/:id", s.handler.DeleteBackup)
		}

		config := v1.Group("/config")
		{
			config.GET("", s.handler.GetConfig)
			config.PUT("", s.handler.UpdateConfig)
		}
	}

	s.logger.Info("httpapi routes configured")
}

// Router returns the underlying Gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	s.logger.Info("starting httpapi server", slog.String("address", addr))
	return s.router.Run(addr)
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("httpapi panic recovered",
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.Any("panic", r),
				)
				c.JSON(500, gin.H{"error": "internal_server_error", "message": "an unexpected error occurred"})
			}
		}()
		c.Next()
	}
}

// rateLimitMiddleware enforces middleware.RateLimiter's anonymous tier
// keyed by client IP; every httpapi caller is unauthenticated until an
// API-key scheme is wired in, so TierAnonymous is the only tier reached
// today.
func rateLimitMiddleware(limiter *middleware.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetAt := limiter.Allow(c.ClientIP(), middleware.TierAnonymous)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))
		if !allowed {
			c.JSON(429, gin.H{"error": "rate_limited", "message": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
