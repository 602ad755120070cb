package di

import (
	"github.com/fitloop/backend-auth/internal/handler"
	"github.com/fitloop/backend-auth/internal/repository"
	"github.com/fitloop/backend-auth/internal/service"
	"github.com/fitloop/backend-auth/internal/worker"
	"github.com/fitloop/backend-auth/pkg/database"
	pkgredis "github.com/fitloop/backend-auth/pkg/redis"
)

// Container holds all dependencies for the auth service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	// Repositories
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	RoleRepo    repository.RoleRepository
	ProfileRepo repository.ProfileRepository
	ResetRepo   repository.ResetTokenRepository
	RosterRepo  repository.RosterRepository

	// Services
	EventHub    *service.EventHub
	AuthService service.AuthService
	RoleService service.RoleService

	// Workers
	Reconciler *worker.Reconciler

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	RoleHandler   *handler.RoleHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB               *database.PostgresDB
	Redis            *pkgredis.Client
	ServiceConfig    *service.AuthServiceConfig
	ReconcilerConfig worker.ReconcilerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Initialize repositories
	c.UserRepo = repository.NewPostgresUserRepository(cfg.DB.Pool())
	c.SessionRepo = repository.NewPostgresSessionRepository(cfg.DB.Pool())
	c.RoleRepo = repository.NewPostgresRoleRepository(cfg.DB.Pool())
	c.ProfileRepo = repository.NewPostgresProfileRepository(cfg.DB.Pool())
	c.RosterRepo = repository.NewPostgresRosterRepository(cfg.DB.Pool())
	c.ResetRepo = repository.NewRedisResetTokenRepository(cfg.Redis)

	// Initialize services
	c.EventHub = service.NewEventHub()
	c.AuthService = service.NewAuthService(
		c.UserRepo,
		c.SessionRepo,
		c.RoleRepo,
		c.ProfileRepo,
		c.ResetRepo,
		c.EventHub,
		cfg.ServiceConfig,
	)
	c.RoleService = service.NewRoleService(c.RoleRepo, c.RosterRepo)

	// Initialize workers
	c.Reconciler = worker.NewReconciler(c.RosterRepo, c.SessionRepo, cfg.ReconcilerConfig)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService, c.RoleService)
	c.RoleHandler = handler.NewRoleHandler(c.RoleService)

	return c
}
