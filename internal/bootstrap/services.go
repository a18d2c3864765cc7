package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/harborline/backoffice/config"
	"github.com/harborline/backoffice/internal/adapters/audit"
	redisadapter "github.com/harborline/backoffice/internal/adapters/redis"
	"github.com/harborline/backoffice/internal/data"
	"github.com/harborline/backoffice/internal/observability/metrics"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/harborline/backoffice/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	// Auth is nil when no Identity was supplied (e.g. the admin CLI).
	Auth      *service.AuthService
	Shipments *service.ShipmentService
	Admin     *service.AdminService
	Guard     *service.Guard
	Sessions  ports.SessionStore
	Metrics   *metrics.Metrics
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Identity is optional; without it the login flow is not built.
	Identity *Identity
	// Registerer receives the auth counters. Optional; nil disables metrics.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Users     *data.UserRepo
	Shipments *data.ShipmentRepo
	States    *redisadapter.StateStore
	Sessions  *redisadapter.SessionStore
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, client redis.UniversalClient, prefix string) *serviceRepositories {
	return &serviceRepositories{
		Users:     data.NewUserRepo(db),
		Shipments: data.NewShipmentRepo(db),
		States:    redisadapter.NewStateStoreWithPrefix(client, prefix+"state:"),
		Sessions:  redisadapter.NewSessionStoreWithPrefix(client, prefix+"session:"),
	}
}

// NewServices wires repositories, stores and services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database is required")
	}
	if deps.RedisClient == nil {
		return nil, errors.New("redis client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	var m *metrics.Metrics
	if deps.Registerer != nil {
		m = metrics.New(deps.Registerer)
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, cfg.Redis.KeyPrefix)
	auditSink := audit.NewSlogSink(logger)
	guard := service.NewGuard(service.GuardOptions{Logger: logger, Metrics: m})

	shipments, err := service.NewShipmentService(service.ShipmentServiceOptions{
		Repo:   repos.Shipments,
		Guard:  guard,
		Audit:  auditSink,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("shipment service: %w", err)
	}

	admin, err := service.NewAdminService(service.AdminServiceOptions{
		Directory: BuildDirectory(cfg.Auth.OAuth, logger),
		Users:     repos.Users,
		Sessions:  repos.Sessions,
		Audit:     auditSink,
		Guard:     guard,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("admin service: %w", err)
	}

	container := &ServiceContainer{
		Shipments: shipments,
		Admin:     admin,
		Guard:     guard,
		Sessions:  repos.Sessions,
		Metrics:   m,
	}
	if deps.Identity == nil {
		return container, nil
	}

	container.Auth, err = buildAuthService(cfg.Auth, deps.Identity, repos, m, logger)
	if err != nil {
		return nil, err
	}
	return container, nil
}

func buildAuthService(
	cfg config.AuthConfig,
	id *Identity,
	repos *serviceRepositories,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*service.AuthService, error) {
	states, err := service.NewStateTokenService(service.StateTokenServiceOptions{
		Store:   repos.States,
		TTL:     cfg.StateTTL,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, fmt.Errorf("state token service: %w", err)
	}

	binder, err := service.NewSessionBinder(service.SessionBinderOptions{
		Users:       repos.Users,
		Sessions:    repos.Sessions,
		IdleTimeout: cfg.SessionIdleTimeout,
		MaxLifetime: cfg.SessionMaxLifetime,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("session binder: %w", err)
	}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Provider:           id.Provider,
		Verifier:           id.Verifier,
		Claims:             id.Claims,
		States:             states,
		Binder:             binder,
		Sessions:           repos.Sessions,
		PostLogoutRedirect: cfg.OAuth.PostLogoutRedirect,
		Logger:             logger,
		Metrics:            m,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return auth, nil
}
