package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/config"
	"gitgauge/internal/repository"
	"gitgauge/internal/services"
)

// ServiceNames contains constants for service names used in DI container
const (
	ConfigService                 = "config"
	DatabaseService               = "database"
	LoggerService                 = "logger"
	CredentialRepositoryService   = "credential_repository"
	SessionRepositoryService      = "session_repository"
	AnalysisRepositoryService     = "analysis_repository"
	ListingRepositoryService      = "listing_repository"
	NotificationRepositoryService = "notification_repository"
	CacheBackendService           = "cache_backend"
	BackendClientService          = "backend_client"
	UserFetcherService            = "user_fetcher"
	SessionManagerService         = "session_manager"
	GatewayService                = "gateway"
	AuthFlowService               = "auth_flow"
	NotificationListenerService   = "notification_listener"
)

// RegisterServices registers all application services with the DI container
func RegisterServices(container Container, cfg *config.AppConfig, logger *slog.Logger) error {
	err := container.RegisterSingleton(ConfigService, func(_ context.Context, _ Container) (interface{}, error) {
		return cfg, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register config service: %w", err)
	}

	err = container.RegisterSingleton(LoggerService, func(_ context.Context, _ Container) (interface{}, error) {
		return logger, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register logger service: %w", err)
	}

	err = container.RegisterSingleton(DatabaseService, func(_ context.Context, c Container) (interface{}, error) {
		appCfg, err := resolveConfig(c)
		if err != nil {
			return nil, err
		}
		return repository.Open(appCfg.GetDatabasePath())
	})
	if err != nil {
		return fmt.Errorf("failed to register database service: %w", err)
	}

	if err := registerRepositories(container); err != nil {
		return fmt.Errorf("failed to register repositories: %w", err)
	}

	if err := registerBusinessServices(container); err != nil {
		return fmt.Errorf("failed to register business services: %w", err)
	}

	return nil
}

// registerRepositories registers all repository implementations
func registerRepositories(container Container) error {
	err := container.RegisterSingleton(
		CredentialRepositoryService,
		func(ctx context.Context, c Container) (interface{}, error) {
			db, err := resolveDatabase(ctx, c)
			if err != nil {
				return nil, err
			}
			cfg, err := resolveConfig(c)
			if err != nil {
				return nil, err
			}
			return repository.NewSQLiteCredentialRepository(db, cfg.GetTokenSecret())
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register credential repository: %w", err)
	}

	err = container.RegisterSingleton(
		SessionRepositoryService,
		func(ctx context.Context, c Container) (interface{}, error) {
			db, err := resolveDatabase(ctx, c)
			if err != nil {
				return nil, err
			}
			return repository.NewSQLiteSessionRepository(db), nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register session repository: %w", err)
	}

	err = container.RegisterSingleton(
		AnalysisRepositoryService,
		func(ctx context.Context, c Container) (interface{}, error) {
			db, err := resolveDatabase(ctx, c)
			if err != nil {
				return nil, err
			}
			return repository.NewSQLiteAnalysisRepository(db), nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register analysis repository: %w", err)
	}

	err = container.RegisterSingleton(
		ListingRepositoryService,
		func(ctx context.Context, c Container) (interface{}, error) {
			db, err := resolveDatabase(ctx, c)
			if err != nil {
				return nil, err
			}
			return repository.NewSQLiteListingRepository(db), nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register listing repository: %w", err)
	}

	err = container.RegisterSingleton(
		NotificationRepositoryService,
		func(ctx context.Context, c Container) (interface{}, error) {
			db, err := resolveDatabase(ctx, c)
			if err != nil {
				return nil, err
			}
			return repository.NewSQLiteNotificationRepository(db), nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register notification repository: %w", err)
	}

	return nil
}

// registerBusinessServices registers all business logic services
func registerBusinessServices(container Container) error {
	err := container.RegisterSingleton(CacheBackendService, func(ctx context.Context, c Container) (interface{}, error) {
		cfg, err := resolveConfig(c)
		if err != nil {
			return nil, err
		}
		if addr := cfg.GetRedisAddr(); addr != "" {
			return services.NewRedisCacheBackend(ctx, addr, "", 0)
		}
		return services.NewMemoryCacheBackend(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register cache backend: %w", err)
	}

	err = container.RegisterSingleton(BackendClientService, func(_ context.Context, c Container) (interface{}, error) {
		cfg, err := resolveConfig(c)
		if err != nil {
			return nil, err
		}
		return services.NewHTTPBackendClient(cfg.GetBackendBaseURL(), cfg.GetHTTPTimeout()), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register backend client: %w", err)
	}

	err = container.RegisterSingleton(UserFetcherService, func(_ context.Context, c Container) (interface{}, error) {
		cfg, err := resolveConfig(c)
		if err != nil {
			return nil, err
		}
		return services.NewGitHubUserFetcher(cfg.GetGitHubAPIBaseURL()), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register user fetcher: %w", err)
	}

	err = container.RegisterSingleton(SessionManagerService, func(ctx context.Context, c Container) (interface{}, error) {
		credentials, err := c.ResolveWithContext(ctx, CredentialRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credential repository: %w", err)
		}

		sessions, err := c.ResolveWithContext(ctx, SessionRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session repository: %w", err)
		}

		logger, err := resolveLogger(ctx, c)
		if err != nil {
			return nil, err
		}

		return services.NewSessionManager(
			credentials.(repository.CredentialRepository),
			sessions.(repository.SessionRepository),
			logger,
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register session manager: %w", err)
	}

	err = container.RegisterSingleton(GatewayService, func(ctx context.Context, c Container) (interface{}, error) {
		backend, err := c.ResolveWithContext(ctx, BackendClientService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve backend client: %w", err)
		}

		fetcher, err := c.ResolveWithContext(ctx, UserFetcherService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user fetcher: %w", err)
		}

		sessionManager, err := c.ResolveWithContext(ctx, SessionManagerService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session manager: %w", err)
		}

		analyses, err := c.ResolveWithContext(ctx, AnalysisRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve analysis repository: %w", err)
		}

		listings, err := c.ResolveWithContext(ctx, ListingRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve listing repository: %w", err)
		}

		cache, err := c.ResolveWithContext(ctx, CacheBackendService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache backend: %w", err)
		}

		cfg, err := resolveConfig(c)
		if err != nil {
			return nil, err
		}

		logger, err := resolveLogger(ctx, c)
		if err != nil {
			return nil, err
		}

		return services.NewGateway(
			backend.(services.BackendClient),
			fetcher.(services.UserFetcher),
			sessionManager.(*services.SessionManager),
			analyses.(repository.AnalysisRepository),
			listings.(repository.ListingRepository),
			cache.(services.CacheBackend),
			services.GatewayConfig{
				ListingCacheTTL:   cfg.GetListingCacheTTL(),
				AnalysisRetention: cfg.GetAnalysisRetention(),
			},
			logger,
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register gateway: %w", err)
	}

	err = container.RegisterSingleton(AuthFlowService, func(_ context.Context, _ Container) (interface{}, error) {
		return services.NewAuthFlow(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register auth flow: %w", err)
	}

	err = container.RegisterSingleton(
		NotificationListenerService,
		func(ctx context.Context, c Container) (interface{}, error) {
			notifications, err := c.ResolveWithContext(ctx, NotificationRepositoryService)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve notification repository: %w", err)
			}

			cfg, err := resolveConfig(c)
			if err != nil {
				return nil, err
			}

			logger, err := resolveLogger(ctx, c)
			if err != nil {
				return nil, err
			}

			return services.NewNotificationListener(
				cfg.GetWebSocketURL(),
				notifications.(repository.NotificationRepository),
				nil,
				cfg.GetReconnectAttempts(),
				cfg.GetReconnectDelay(),
				logger,
			), nil
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register notification listener: %w", err)
	}

	return nil
}

func resolveConfig(c Container) (*config.AppConfig, error) {
	cfg, err := c.Resolve(ConfigService)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config: %w", err)
	}
	return cfg.(*config.AppConfig), nil
}

func resolveDatabase(ctx context.Context, c Container) (*dbx.DB, error) {
	db, err := c.ResolveWithContext(ctx, DatabaseService)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database: %w", err)
	}
	return db.(*dbx.DB), nil
}

func resolveLogger(ctx context.Context, c Container) (*slog.Logger, error) {
	logger, err := c.ResolveWithContext(ctx, LoggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logger: %w", err)
	}
	return logger.(*slog.Logger), nil
}

// ResolveGateway resolves the gateway from the container
func ResolveGateway(container Container) (*services.Gateway, error) {
	service, err := container.Resolve(GatewayService)
	if err != nil {
		return nil, err
	}
	return service.(*services.Gateway), nil
}

// ResolveSessionManager resolves the session manager from the container
func ResolveSessionManager(container Container) (*services.SessionManager, error) {
	service, err := container.Resolve(SessionManagerService)
	if err != nil {
		return nil, err
	}
	return service.(*services.SessionManager), nil
}

// ResolveNotificationListener resolves the notification listener from the container
func ResolveNotificationListener(container Container) (*services.NotificationListener, error) {
	service, err := container.Resolve(NotificationListenerService)
	if err != nil {
		return nil, err
	}
	return service.(*services.NotificationListener), nil
}

// ResolveAuthFlow resolves the auth flow from the container
func ResolveAuthFlow(container Container) (*services.AuthFlow, error) {
	service, err := container.Resolve(AuthFlowService)
	if err != nil {
		return nil, err
	}
	return service.(*services.AuthFlow), nil
}
