// Package api wires together all HTTP routes for the trips management backend.
//
// Route grouping philosophy:
//   - The trip board (GET /api/v1/trips) and trip submission (POST /api/v1/trips)
//     use optional authentication. Employees browse the shared booking board and
//     submit requests from the intranet; a bearer token enriches the request with
//     the caller's account but is not required to read the board.
//   - Everything that mutates another user's data requires authentication, and
//     approval/optimization/management routes additionally require an admin or
//     super admin role.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/api/admin"
	"github.com/NganNgoVoThanh/trips-management/internal/api/joinrequests"
	"github.com/NganNgoVoThanh/trips-management/internal/api/optimize"
	"github.com/NganNgoVoThanh/trips-management/internal/api/setup"
	"github.com/NganNgoVoThanh/trips-management/internal/api/trips"
	"github.com/NganNgoVoThanh/trips-management/internal/auth"
	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/jobs"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/notify"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	cleanupJob   *jobs.TempCleanupJob
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.cleanupJob != nil {
		bg.cleanupJob.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. The identity verifier is
// injected so deployments can plug the corporate IdP behind the same interface
// the dev-mode verifier implements.
func NewRouter(cfg *config.Config, db *sql.DB, verifier auth.IdentityVerifier, logger *slog.Logger) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	tripRepo := repositories.NewTripRepository(db)

	// Wrap *sql.DB with sqlx for the repositories that use struct scanning
	sqlxDB := sqlx.NewDb(db, "postgres")

	sender := notify.NewEmailSender(&cfg.Notifications, logger)

	// Start the TEMP shadow cleanup job
	tempMaxAge := time.Duration(cfg.Optimizer.TempMaxAgeDays) * 24 * time.Hour
	optimizerSvc := services.NewOptimizerService(db, tempMaxAge, logger)
	cleanupJob := jobs.NewTempCleanupJob(optimizerSvc, tripRepo, &cfg.Optimizer, logger)
	go cleanupJob.Start(context.Background())
	logger.Info("temp cleanup job started", "interval_hours", cfg.Optimizer.CleanupIntervalHours)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	tripHandlers := trips.NewHandlers(db, sender, logger)
	joinHandlers := joinrequests.NewHandlers(db, sqlxDB, sender, logger)
	optimizeHandlers := optimize.NewHandlers(db, &cfg.Optimizer, sender, logger)
	authHandlers := admin.NewAuthHandlers(cfg, db, verifier, logger)
	grantHandlers := admin.NewAdminGrantHandlers(db, logger)
	userHandlers := admin.NewUserHandlers(db)
	locationHandlers := admin.NewLocationHandlers(db)
	auditLogHandlers := admin.NewAuditLogHandlers(db)
	statsHandlers := admin.NewStatsHandlers(sqlxDB)
	setupHandlers := setup.NewHandlers(db, logger)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(generalRateLimitConfig(cfg))

	apiV1 := router.Group("/api/v1")
	{
		// First-run setup endpoints. Status is public; the bootstrap claim is
		// gated by the one-time token and shares the strict auth rate limit.
		apiV1.GET("/setup/status", setupHandlers.Status)
		apiV1.POST("/setup/bootstrap-admin",
			middleware.RateLimitMiddleware(authRateLimiter),
			setupHandlers.BootstrapAdmin)

		// Login endpoint (no auth required, strictly rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/login", authHandlers.Login)
		}

		// Shared booking board and trip submission. A bearer token is optional:
		// anonymous callers see the RAW board, authenticated employees get
		// their own requests and admins get the management view.
		boardGroup := apiV1.Group("")
		boardGroup.Use(middleware.OptionalAuthMiddleware(userRepo))
		boardGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		{
			boardGroup.GET("/trips", tripHandlers.List)
			boardGroup.POST("/trips", tripHandlers.Create)
		}

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(userRepo))
		authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticatedGroup.Use(middleware.AuditMiddleware(auditRepo, &cfg.Audit, logger))
		{
			// Session endpoints
			authenticatedGroup.POST("/auth/refresh", authHandlers.Refresh)
			authenticatedGroup.GET("/auth/me", authHandlers.Me)

			// Trip detail and self-service cancellation
			authenticatedGroup.GET("/trips/:id", tripHandlers.Get)
			authenticatedGroup.POST("/trips/:id/cancel", tripHandlers.Cancel)

			// Join requests (owners and trip organizers)
			authenticatedGroup.POST("/join-requests", joinHandlers.Create)
			authenticatedGroup.GET("/join-requests", joinHandlers.List)
			authenticatedGroup.GET("/join-requests/:id", joinHandlers.Get)
			authenticatedGroup.POST("/join-requests/:id/cancel", joinHandlers.Cancel)

			// Office locations (read-only for regular users)
			authenticatedGroup.GET("/locations", locationHandlers.List)

			// Admin endpoints - require admin role (location scoping is
			// enforced inside the services via the actor's scope)
			adminGroup := authenticatedGroup.Group("")
			adminGroup.Use(middleware.RequireAdmin())
			{
				adminGroup.POST("/trips/:id/approve", tripHandlers.Approve)
				adminGroup.POST("/trips/:id/reject", tripHandlers.Reject)

				adminGroup.POST("/join-requests/:id/approve", joinHandlers.Approve)
				adminGroup.POST("/join-requests/:id/reject", joinHandlers.Reject)

				adminGroup.POST("/optimize/groups", optimizeHandlers.Propose)
				adminGroup.GET("/optimize/groups", optimizeHandlers.List)
				adminGroup.GET("/optimize/groups/:id", optimizeHandlers.Get)
				adminGroup.POST("/optimize/groups/:id/approve", optimizeHandlers.Approve)
				adminGroup.POST("/optimize/groups/:id/reject", optimizeHandlers.Reject)
				adminGroup.POST("/optimize/cleanup", optimizeHandlers.Cleanup)

				adminGroup.GET("/admin/stats/dashboard", statsHandlers.Dashboard)
				adminGroup.GET("/admin/stats/trips-per-day", statsHandlers.TripsPerDay)
				adminGroup.GET("/admin/audit-logs", auditLogHandlers.List)

				adminGroup.GET("/admin/users", userHandlers.List)
				adminGroup.GET("/admin/users/:id", userHandlers.Get)

				adminGroup.POST("/admin/locations", locationHandlers.Create)
				adminGroup.PUT("/admin/locations/:id", locationHandlers.Update)
			}

			// Admin role management - super admin only
			superAdminGroup := authenticatedGroup.Group("/admin/manage/admins")
			superAdminGroup.Use(middleware.RequireSuperAdmin())
			{
				superAdminGroup.GET("", grantHandlers.List)
				superAdminGroup.POST("", grantHandlers.Grant)
				superAdminGroup.POST("/revoke", grantHandlers.Revoke)
			}
		}
	}

	bg := &BackgroundServices{
		cleanupJob:   cleanupJob,
		rateLimiters: []*middleware.RateLimiter{authRateLimiter, generalRateLimiter},
	}

	return router, bg
}

// generalRateLimitConfig builds the rate limit config from the application
// configuration, falling back to defaults for unset values.
func generalRateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rlc := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		rlc.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		rlc.BurstSize = cfg.Security.RateLimiting.Burst
	}
	return rlc
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. Unlike the
// liveness probe (/health), the database check runs with the request context
// so a Kubernetes readiness gate fails fast when the pool is saturated.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", requestID),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
