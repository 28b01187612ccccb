// Package bootstrap wires all dependencies and starts the application.
// Commands that only read and write environment files build an App without
// the inventory; export and serve open the SQLite inventory on demand.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/artpar/envspec/adapters/clock"
	"github.com/artpar/envspec/adapters/hasher"
	apihttp "github.com/artpar/envspec/adapters/http"
	"github.com/artpar/envspec/adapters/idgen"
	"github.com/artpar/envspec/adapters/metrics"
	"github.com/artpar/envspec/adapters/remote"
	"github.com/artpar/envspec/adapters/sqlite"
	"github.com/artpar/envspec/app"
	"github.com/artpar/envspec/config"
	"github.com/artpar/envspec/core/loader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// ConfigPath is the config file. Empty means config.DefaultPath; a
	// missing file falls back to environment variables and defaults.
	ConfigPath string
	// LogLevel overrides logging.level when set.
	LogLevel string
	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
	// Version is reported by the HTTP /version endpoint.
	Version string
	// OnWarning receives loader warnings in addition to the log.
	OnWarning loader.WarningHandler
}

// App represents the wired application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Holder
	Metrics  *metrics.Collector
	Registry *prometheus.Registry

	Loader *loader.Loader
	Specs  *app.SpecService

	// Set by OpenInventory.
	DB        *sqlite.DB
	Exports   *app.ExportService
	Inventory *app.InventoryService

	// Set by InitHTTPServer.
	HTTPServer *http.Server

	version string
}

// New loads configuration and builds the loader and spec services.
func New(opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	holder, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	logging := cfg.Logging
	if opts.LogLevel != "" {
		logging.Level = opts.LogLevel
	}
	logger := NewLogger(logging, opts.LogOutput)
	holder.SetLogger(logger)

	a := &App{
		Logger:  logger,
		Config:  holder,
		version: opts.Version,
	}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		holder.SetMetrics(a.Metrics)
	}

	transport := remote.NewClient(remote.ClientConfig{
		Schemes:  cfg.Remote.Schemes,
		APIKey:   cfg.Remote.APIKey,
		Timeout:  cfg.Remote.Timeout,
		Headers:  cfg.Remote.Headers,
		MaxBytes: cfg.Remote.MaxBytes,
	})
	a.Loader = loader.New(loader.Config{
		Transport: transport,
		Logger:    logger,
		Metrics:   a.Metrics,
		OnWarning: opts.OnWarning,
	})
	a.Specs = app.NewSpecService(a.Loader, logger, a.Metrics)

	logger.Debug().
		Str("config", holder.Path()).
		Strs("channels", cfg.Channels).
		Strs("schemes", transport.Schemes()).
		Msg("envspec initialized")
	return a, nil
}

// LoadConfig returns a holder for path, or for config.DefaultPath when path
// is empty. A missing file yields a static holder over env and defaults.
func LoadConfig(path string) (*config.Holder, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		return config.NewHolder(path, zerolog.Nop())
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	} else if explicit {
		return nil, fmt.Errorf("config file %s not found", path)
	}

	cfg, err := config.LoadWithFallback("")
	if err != nil {
		return nil, err
	}
	return config.NewStaticHolder(cfg, zerolog.Nop()), nil
}

// OpenInventory opens the SQLite inventory and builds the export and
// inventory services. Calling it again is a no-op.
func (a *App) OpenInventory(ctx context.Context) error {
	if a.DB != nil {
		return nil
	}
	dsn := a.Config.Get().Database.DSN

	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	clk := clock.Real{}
	prefixes := sqlite.NewPrefixStore(db, clk)
	history := sqlite.NewHistoryStore(db, idgen.TimeOrdered{}, clk)

	a.DB = db
	a.Exports = app.NewExportService(app.ExportConfig{
		Prefixes: prefixes,
		History:  history,
		Channels: a.Config,
		Clock:    clk,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	})
	a.Inventory = app.NewInventoryService(prefixes, history, a.Logger)

	a.Logger.Debug().Str("dsn", dsn).Msg("inventory opened")
	return nil
}

// InitHTTPServer builds the HTTP server. It opens the inventory if needed.
func (a *App) InitHTTPServer(ctx context.Context) error {
	if err := a.OpenInventory(ctx); err != nil {
		return fmt.Errorf("open inventory: %w", err)
	}
	cfg := a.Config.Get()

	envHandler := apihttp.NewEnvHandler(apihttp.EnvHandlerConfig{
		Exports: a.Exports,
		Loader:  a.Loader,
		Hasher:  hasher.NewBlake2b(hasher.DefaultSize),
		Logger:  a.Logger,
	})

	routerCfg := apihttp.RouterConfig{
		Metrics:     a.Metrics,
		MetricsPath: cfg.Metrics.Path,
		Version:     a.version,
		Timeout:     cfg.Server.WriteTimeout,
	}
	if a.Registry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}
	router := apihttp.NewRouter(envHandler, apihttp.NewHealthHandler(a.DB), a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

// Run starts the HTTP server with config hot reload and blocks until ctx
// is done, a termination signal arrives, or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.HTTPServer == nil {
		if err := a.InitHTTPServer(ctx); err != nil {
			return err
		}
	}

	if a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Config.WatchSignals()
	}
	a.Config.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Config.Stop()

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close database
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}

	a.Logger.Debug().Msg("shutdown complete")
	return nil
}

// NewLogger builds the process logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}
