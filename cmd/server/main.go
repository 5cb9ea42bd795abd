// @title           Trips Management API
// @version         1.0.0
// @description     Corporate trip booking and approval backend with ride optimization, join requests, and audited admin access
// @contact.name    Support
// @contact.email   support@example.com
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
// @description                 "Session JWT: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health, readiness, and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics and profiling are served on a dedicated side-channel port that is separate from the main API server. Configure the port with TMA_TELEMETRY_METRICS_PROMETHEUS_PORT; the endpoint path is always GET /metrics. pprof (if enabled via TMA_TELEMETRY_PROFILING_ENABLED=true) is served on TMA_TELEMETRY_PROFILING_PORT at the standard /debug/pprof/ paths. Neither endpoint is part of the OpenAPI spec because they are not served by the Gin router.

// Package main is the entry point for the trips management server binary.
// It dispatches three subcommands — serve, migrate, and version — via a simple
// switch on os.Args so the binary's full CLI surface is readable in one place
// without requiring a cobra dependency. The serve command runs auto-migration on
// startup so freshly deployed containers never need a separate migration step.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // served only on the internal profiling port, never on the Gin listener
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/NganNgoVoThanh/trips-management/internal/api"
	"github.com/NganNgoVoThanh/trips-management/internal/auth"
	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("Trips Management v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Configure the structured logger first so every subsequent line comes out
	// in the configured format and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)
	logger := slog.Default()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Fails fast in production when TMA_JWT_SECRET is missing.
	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	logger.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	telemetry.StartDBStatsCollector(database)

	logger.Info("running database migrations")
	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	schemaVersion, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		logger.Warn("failed to read migration version", "error", err)
	} else {
		logger.Info("database schema ready", "version", schemaVersion, "dirty", dirty)
	}

	// First-run setup: until an operator claims the super admin account, keep
	// a single-use setup token on record and print the raw value to the log.
	if err := handleSetupToken(repositories.NewSettingsRepository(database)); err != nil {
		logger.Warn("setup token handling failed", "error", err)
	}

	// Prometheus scrapes a dedicated port so the metrics path never crosses
	// the public ingress or the API rate limiters.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		go func() {
			logger.Info("starting pprof server", "addr", pprofAddr)
			// net/http/pprof registers on http.DefaultServeMux at init time.
			srv := &http.Server{
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("pprof server error", "error", err)
			}
		}()
	}

	// The dev verifier only works in dev mode; production deployments swap in
	// a real IdP integration behind the same interface.
	verifier := &auth.DevVerifier{Domain: cfg.Auth.DevLoginDomain}

	router, bgServices := api.NewRouter(cfg, database, verifier, logger)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.GetAddress(), "base_url", cfg.Server.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop the cleanup job and rate limiter goroutines.
	bgServices.Shutdown()

	logger.Info("server stopped")
	return nil
}

// handleSetupToken generates the first-run setup token when setup has not been
// completed yet. The raw token is printed to the log exactly once; only its
// bcrypt hash is stored.
func handleSetupToken(settings *repositories.SettingsRepository) error {
	ctx := context.Background()

	completed, err := settings.IsSetupCompleted(ctx)
	if err != nil {
		return fmt.Errorf("failed to check setup status: %w", err)
	}
	if completed {
		return nil
	}

	if _, found, err := settings.GetSetting(ctx, repositories.SettingSetupTokenHash); err != nil {
		return fmt.Errorf("failed to check existing setup token: %w", err)
	} else if found {
		// Server restarted before setup finished; the old token is still valid.
		log.Println("")
		log.Println(strings.Repeat("=", 66))
		log.Println("  SETUP REQUIRED: a setup token was previously generated.")
		log.Println("  If you lost it, delete the setup_token_hash row from")
		log.Println("  system_settings and restart the server to issue a new one.")
		log.Println(strings.Repeat("=", 66))
		log.Println("")
		return nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fmt.Errorf("failed to generate setup token: %w", err)
	}
	rawToken := "tma_setup_" + base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(tokenBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawToken), 12)
	if err != nil {
		return fmt.Errorf("failed to hash setup token: %w", err)
	}
	if err := settings.SetSetting(ctx, repositories.SettingSetupTokenHash, string(hash)); err != nil {
		return fmt.Errorf("failed to store setup token hash: %w", err)
	}

	separator := strings.Repeat("=", 66)
	log.Println("")
	log.Println(separator)
	log.Println("  INITIAL SETUP REQUIRED")
	log.Println("")
	log.Printf("  Setup Token: %s", rawToken)
	log.Println("")
	log.Println("  Claim the super admin account with:")
	log.Println("    POST /api/v1/setup/bootstrap-admin")
	log.Println("    {\"token\": \"<token>\", \"email\": \"you@company.com\", \"name\": \"Your Name\"}")
	log.Println("")
	log.Println("  This token is single-use and is invalidated after setup.")
	log.Println(separator)
	log.Println("")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	log.Printf("Running migrations: %s", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	schemaVersion, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	log.Printf("Migration completed successfully. Current version: %d (dirty: %v)", schemaVersion, dirty)
	return nil
}
