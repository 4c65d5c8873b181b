// Package bootstrap builds the services from configuration for the server
// and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"clausewise-backend/cache"
	"clausewise-backend/config"
	"clausewise-backend/flow"
	"clausewise-backend/geo"
	"clausewise-backend/repository"
	"clausewise-backend/service"
	"clausewise-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the constructed services and the resources they own.
type App struct {
	Contracts *service.ContractService
	Lawyers   *service.LawyerService

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New wires the services. Optional infrastructure (Postgres, Redis, the
// Gemini key) is skipped with a warning when unconfigured; operations that
// need it then fail with ConfigurationMissing.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	backend, err := newBackend(ctx, cfg, logger, app)
	if err != nil {
		return nil, err
	}
	var inv *flow.Invoker
	if backend != nil {
		inv = flow.NewInvoker(backend,
			flow.WithTimeout(cfg.LLMTimeout()),
			flow.WithLogger(logger.Named("flow")))
	}

	contractOpts := []service.ContractServiceOption{
		service.WithContractLogger(logger.Named("contracts")),
	}
	if inv != nil {
		contractOpts = append(contractOpts, service.WithInvoker(inv))
	}

	if cfg.Redis.Addr != "" {
		store, err := cache.NewRedisStore(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.SessionTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		app.closers = append(app.closers, func() { store.Close() })
		contractOpts = append(contractOpts, service.WithSessionStore(store))
		logger.Info("redis session store ready", zap.String("addr", cfg.Redis.Addr))
	} else {
		contractOpts = append(contractOpts, service.WithSessionStore(cache.NewMemoryStore(cfg.SessionTTL())))
		logger.Info("using in-memory session store")
	}

	if cfg.Database.URL != "" {
		pool, err := initPostgres(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		app.closers = append(app.closers, pool.Close)

		fileStorage, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		contractOpts = append(contractOpts,
			service.WithDocumentStore(repository.NewDocumentRepository(pool)),
			service.WithStorage(fileStorage))
		logger.Info("document registry enabled", zap.String("storage", string(cfg.Storage.Type)))
	} else {
		logger.Warn("DATABASE_URL not set, document registry disabled")
	}

	locator, err := geo.NewClient(
		geo.WithPlacesKey(cfg.Google.PlacesAPIKey),
		geo.WithGeolocationKey(cfg.GeolocationKey()),
		geo.WithBaseURL(cfg.Google.BaseURL),
		geo.WithRadius(cfg.Google.RadiusMeters),
		geo.WithTimeout(cfg.GoogleTimeout()),
		geo.WithLogger(logger.Named("geo")),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Google.PlacesAPIKey == "" {
		logger.Warn("GOOGLE_PLACES_API_KEY not set, lawyer search will fail")
	}
	lawyerOpts := []service.LawyerServiceOption{
		service.WithLocator(locator),
		service.WithMaxPositionAge(cfg.MaxPositionAge()),
		service.WithLawyerLogger(logger.Named("lawyers")),
	}
	if inv != nil {
		lawyerOpts = append(lawyerOpts, service.WithFallback(service.ModelFallback(inv)))
	}

	app.Contracts = service.NewContractService(contractOpts...)
	app.Lawyers = service.NewLawyerService(lawyerOpts...)
	ok = true
	return app, nil
}

// newBackend returns nil when Gemini is selected without a key.
func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, app *App) (flow.Backend, error) {
	if cfg.LLM.Provider == config.ProviderOffline {
		logger.Info("using offline completion backend")
		return flow.NewOfflineBackend(), nil
	}

	apiKey, err := cfg.GeminiAPIKey()
	if err != nil {
		logger.Warn("GEMINI_API_KEY not set, model operations will fail")
		return nil, nil
	}
	client, err := flow.NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	app.closers = append(app.closers, func() { client.Close() })

	logger.Info("gemini client initialized", zap.String("model", cfg.LLM.Model))
	return flow.NewGeminiBackend(client,
		flow.GeminiWithModel(cfg.LLM.Model),
		flow.GeminiWithTemperature(cfg.LLM.Temperature),
		flow.GeminiWithLogger(logger.Named("gemini"))), nil
}

func initPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
