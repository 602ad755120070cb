package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitloop/backend-auth/internal/di"
	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/middleware"
	"github.com/fitloop/backend-auth/internal/service"
	"github.com/fitloop/backend-auth/internal/worker"
	"github.com/fitloop/backend-auth/pkg/config"
	"github.com/fitloop/backend-auth/pkg/database"
	"github.com/fitloop/backend-auth/pkg/logger"
	pkgredis "github.com/fitloop/backend-auth/pkg/redis"
	"github.com/fitloop/backend-auth/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Auth Service...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Apply schema migrations
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL()); err != nil {
			appLog.Fatal(fmt.Sprintf("Migrations failed: %v", err))
		}
		appLog.Info("Migrations applied")
	}

	// Initialize Redis (reset tokens, rate limiting)
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:    db,
		Redis: redisClient,
		ServiceConfig: &service.AuthServiceConfig{
			JWTSecret:          cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.AccessTokenTTL,
			RefreshTokenExpiry: cfg.JWT.RefreshTokenTTL,
			ResetTokenExpiry:   cfg.JWT.ResetTokenTTL,
			BcryptCost:         cfg.JWT.BcryptCost,
		},
		ReconcilerConfig: worker.ReconcilerConfig{
			Interval: cfg.Worker.ReconcileInterval,
		},
	})
	defer container.EventHub.Close()

	// Start the roster reconciler
	workerCtx, stopWorker := context.WithCancel(ctx)
	go container.Reconciler.Run(workerCtx)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigin:  cfg.CORS.AllowedOrigin,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Add OpenTelemetry tracing middleware if enabled
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	credentialLimiter := middleware.RateLimiter(redisClient, middleware.DefaultRateLimitConfig())

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Public endpoints; credential endpoints are rate limited
			auth.POST("/register", credentialLimiter, container.AuthHandler.Register)
			auth.POST("/login", credentialLimiter, container.AuthHandler.Login)
			auth.POST("/refresh", container.AuthHandler.RefreshToken)
			auth.POST("/logout", container.AuthHandler.Logout)
			auth.POST("/password-reset", credentialLimiter, container.AuthHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", credentialLimiter, container.AuthHandler.ConfirmPasswordReset)

			// Internal endpoint for token validation (used by other services)
			auth.POST("/validate", container.AuthHandler.ValidateToken)

			// Protected endpoints (require authentication)
			protected := auth.Group("")
			protected.Use(middleware.Authenticate(container.AuthService))
			{
				protected.GET("/me", container.AuthHandler.Me)
				protected.PUT("/me", container.AuthHandler.UpdateMe)
				protected.PUT("/password", container.AuthHandler.UpdatePassword)
			}
		}

		// Role assignment RPC. Authorization beyond authentication happens
		// inside the service against the persisted roles.
		roles := v1.Group("/roles")
		roles.Use(middleware.Authenticate(container.AuthService))
		{
			roles.POST("/assign", container.RoleHandler.AssignRole)
		}

		// Admin-only user administration
		admin := v1.Group("/admin")
		admin.Use(middleware.Authenticate(container.AuthService))
		admin.Use(middleware.RequireRoles(domain.RoleAdmin))
		{
			admin.POST("/roles/assign", container.RoleHandler.AssignRole)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Auth Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	stopWorker()
	<-container.Reconciler.Done()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
