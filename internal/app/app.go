// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the storefront catalog server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"roastery/config"
	"roastery/internal/cache"
	"roastery/internal/catalog"
	"roastery/internal/core"
	"roastery/internal/httpclient"
	"roastery/internal/images"
	"roastery/internal/server"
	"roastery/internal/storage"
	"roastery/internal/storefront"
	"roastery/internal/version"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config     *config.Config
	storage    storage.Storage
	warmed     *images.WarmedSet
	storefront *storefront.Storefront
	server     *server.Server

	loadCancel context.CancelFunc
	loadDone   chan struct{}

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	store, err := storage.New(ctx, storageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app := &App{config: cfg, storage: store}
	if err := app.wire(); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (also: storage close error: %v)", err, closeErr)
		}
		return nil, err
	}

	app.logStartupInfo()
	return app, nil
}

// wire builds every component over the opened storage.
func (a *App) wire() error {
	cfg := a.config

	cacheStore := cache.New(a.storage, cache.Config{
		Prefix:   cfg.Cache.Prefix,
		Version:  cfg.Cache.Version,
		Compress: cfg.Cache.Compress,
	})

	resolver := images.NewResolver(images.ResolverConfig{
		DefaultAPIBase:   cfg.Catalog.DefaultAPIBase,
		PrimaryAPIBase:   cfg.Catalog.PrimaryAPIBase,
		SecondaryAPIBase: cfg.Catalog.SecondaryAPIBase,
		SiteBase:         cfg.Images.SiteBaseURL,
		ProductFallback:  cfg.Images.ProductFallback,
		CategoryFallback: cfg.Images.CategoryFallback,
	}, images.StaticRegion(cfg.Catalog.Region))

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = seconds(cfg.HTTP.Timeout)
	httpCfg.ResponseHeaderTimeout = seconds(cfg.HTTP.ResponseHeaderTimeout)
	httpCfg.UserAgent = userAgent()
	client := catalog.NewClient(httpclient.NewHTTPClient(&httpCfg), resolver, catalogClientConfig(cfg))
	service := catalog.NewService(client, catalog.NewNormalizer(client, resolver, cfg.Catalog.DetailConcurrency))

	deps := storefront.Deps{
		Source:      service,
		Cache:       cacheStore,
		Preferences: a.storage,
	}

	a.warmed = images.NewWarmedSet(a.storage, cfg.Cache.Prefix)
	if cfg.Images.Preload {
		preloadTimeout := seconds(cfg.Images.PreloadTimeout)
		imageClient := httpclient.WithTimeout(preloadTimeout)
		imageClient.UserAgent = userAgent()
		loader := &images.HTTPLoader{Client: httpclient.NewHTTPClient(&imageClient)}
		deps.Warmer = images.NewPreloader(loader, a.warmed, preloadTimeout)
	}

	defaultLang, err := core.ParseLanguage(cfg.Storefront.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("invalid default language: %w", err)
	}
	presentation := server.NewPresentation(defaultLang)
	deps.Sink = presentation

	sf, err := storefront.New(storefront.Config{
		DefaultLanguage:    defaultLang,
		CacheDuration:      seconds(cfg.Cache.Duration),
		RevalidateInterval: seconds(cfg.Storefront.RevalidateInterval),
		RefreshTimeout:     seconds(cfg.Storefront.RefreshTimeout),
		PreloadConcurrency: cfg.Images.PreloadConcurrency,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize storefront: %w", err)
	}
	a.storefront = sf

	a.server = server.New(sf, a.warmed, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
		SiteBaseURL:     cfg.Images.SiteBaseURL,
		Currency:        cfg.SEO.Currency,
		SwaggerEnabled:  cfg.Server.SwaggerEnabled,
		Presentation:    presentation,
	})
	return nil
}

// Storefront returns the storefront orchestrator.
func (a *App) Storefront() *storefront.Storefront {
	return a.storefront
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start begins loading the catalog in the background and starts the HTTP
// server on the given address. Requests served before the first load
// completes see the loading state. This is a blocking call that returns
// when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}

	a.startLoading()

	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func (a *App) startLoading() {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	if a.shutdown || a.loadDone != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.loadCancel = cancel
	a.loadDone = make(chan struct{})
	go func() {
		defer close(a.loadDone)
		a.storefront.Start(ctx)
	}()
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown, honoring the passed context timeout/cancellation.
// 2. Initial catalog load cancelled and awaited.
// 3. Storefront close (stops revalidation and background image warming).
// 4. Storage close.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
// It attempts every close step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	loadCancel, loadDone := a.loadCancel, a.loadDone
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Abort an initial load still in flight
	if loadCancel != nil {
		loadCancel()
		select {
		case <-loadDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for catalog load: %w", ctx.Err()))
		}
	}

	// 3. Stop revalidation and image warming
	if a.storefront != nil {
		a.storefront.Close()
	}

	// 4. Close storage last; everything above writes to it
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			slog.Error("storage close error", "error", err)
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("ROASTERY_MASTER_KEY not set - admin endpoints are unauthenticated",
			"security_risk", "anyone can clear the catalog cache",
			"recommendation", "set ROASTERY_MASTER_KEY to protect /admin")
	} else {
		slog.Info("admin authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	slog.Info("storage configured", "type", cfg.Storage.Type)
	slog.Info("catalog configured",
		"api_base", cfg.Catalog.DefaultAPIBase,
		"region", cfg.Catalog.Region,
		"detail_concurrency", cfg.Catalog.DetailConcurrency,
	)
	slog.Info("cache configured",
		"prefix", cfg.Cache.Prefix,
		"duration", seconds(cfg.Cache.Duration),
		"compress", cfg.Cache.Compress,
		"revalidate_interval", seconds(cfg.Storefront.RevalidateInterval),
	)
	if cfg.Images.Preload {
		slog.Info("image preloading enabled", "concurrency", cfg.Images.PreloadConcurrency)
	} else {
		slog.Info("image preloading disabled")
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	s := cfg.Storage
	return storage.Config{
		Type:       s.Type,
		Local:      storage.LocalConfig{Path: s.Local.Path},
		SQLite:     storage.SQLiteConfig{Path: s.SQLite.Path},
		PostgreSQL: storage.PostgreSQLConfig{URL: s.PostgreSQL.URL, MaxConns: s.PostgreSQL.MaxConns},
		MongoDB:    storage.MongoDBConfig{URL: s.MongoDB.URL, Database: s.MongoDB.Database},
		Redis: storage.RedisConfig{
			URL:        s.Redis.URL,
			TTL:        seconds(s.Redis.TTL),
			TTLPrefix:  cfg.Cache.Prefix + "_",
			Persistent: []string{cfg.Cache.Prefix + images.WarmedKeySuffix},
		},
	}
}

func catalogClientConfig(cfg *config.Config) catalog.ClientConfig {
	cc := catalog.DefaultClientConfig()
	cc.PageSize = cfg.Catalog.PageSize
	cc.MaxPages = cfg.Catalog.MaxPages
	cc.IncludeInactive = cfg.Catalog.IncludeInactive
	cc.MaxRetries = cfg.Catalog.MaxRetries
	cc.Breaker.FailureThreshold = cfg.Catalog.BreakerThreshold
	cc.Breaker.MinRequests = cfg.Catalog.BreakerMinReqs
	cc.Breaker.Timeout = seconds(cfg.Catalog.BreakerTimeout)
	return cc
}

func userAgent() string {
	return "roastery/" + version.Version
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
