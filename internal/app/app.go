package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"SearchAggregator/internal/analyzer"
	"SearchAggregator/internal/api"
	"SearchAggregator/internal/config"
	"SearchAggregator/internal/filter"
	"SearchAggregator/internal/infrastructure/cache"
	"SearchAggregator/internal/infrastructure/provider"
	"SearchAggregator/internal/infrastructure/storage"
	"SearchAggregator/internal/logging"
	"SearchAggregator/internal/merger"
	"SearchAggregator/internal/ports"
	"SearchAggregator/internal/ranking"
	"SearchAggregator/internal/usecase"
)

// Application wires configs to the aggregation pipeline and the HTTP
// surface.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	filter   *filter.Filter
	store    *storage.PostgresStore
}

// New builds a runnable application instance. Unavailable collaborators
// degrade per component policy instead of blocking startup: a missing
// Redis falls back to the in-process cache, a missing store or provider
// leaves the pipeline running on what remains.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var resultCache ports.ResultCache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, baseLogger.With("component", "cache"))
		if err != nil {
			baseLogger.Warn("redis unavailable, using in-process cache", "error", err)
		} else {
			resultCache = redisCache
		}
	}
	if resultCache == nil {
		resultCache = cache.NewMemory(0, cfg.Cache.Expiry())
	}

	var store *storage.PostgresStore
	if cfg.Database.DSN != "" {
		opened, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("relevance store unavailable", "error", err)
		} else {
			store = opened
			if err := opened.EnsureSchema(ctx); err != nil {
				baseLogger.Warn("schema bootstrap failed", "error", err)
			}
		}
	}

	var searchProvider ports.SearchProvider
	client, err := provider.NewSearchClient(provider.Options{
		Endpoint:       cfg.Provider.Endpoint,
		APIKey:         cfg.Provider.APIKey,
		EngineID:       cfg.Provider.EngineID,
		MaxResults:     cfg.Provider.MaxResults,
		MaxConcurrency: cfg.Provider.MaxConcurrency,
		Timeout:        cfg.Provider.Timeout(),
		PageTimeout:    cfg.Provider.PageTimeout(),
	}, baseLogger.With("component", "provider"))
	if err != nil {
		baseLogger.Warn("search provider unavailable", "error", err)
	} else {
		searchProvider = client
	}

	blacklist := filter.LoadBlacklist(cfg.Filter.BlacklistPath, baseLogger.With("component", "blacklist"))
	contentAnalyzer := analyzer.New(baseLogger.With("component", "analyzer"))
	resultFilter := filter.New(blacklist, contentAnalyzer, cfg.Filter.PoolSize, baseLogger.With("component", "filter"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Cache:    resultCache,
		Store:    storeOrNil(store),
		Provider: searchProvider,
		Filter:   resultFilter,
		Scorer:   ranking.NewScorer(baseLogger.With("component", "scorer")),
		Merger:   merger.New(merger.Config{RelevanceBoost: cfg.Ranking.RelevanceBoost}, baseLogger.With("component", "merger")),
		CacheTTL: cfg.Cache.Expiry(),
		MinWords: cfg.Filter.MinWords,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		filter:   resultFilter,
		store:    store,
	}
}

// storeOrNil avoids handing the pipeline a typed-nil interface.
func storeOrNil(store *storage.PostgresStore) ports.RelevanceStore {
	if store == nil {
		return nil
	}
	return store
}

// Run serves HTTP until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	server := api.NewServer(a.pipeline, a.logger.With("component", "api"))

	httpServer := &http.Server{
		Addr:              a.cfg.Server.BindAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.cfg.Server.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)

	a.filter.Release()
	if a.store != nil {
		_ = a.store.Close()
	}

	return err
}
