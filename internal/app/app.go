// Package app provides application lifecycle management and dependency injection.
package app

import (
	"context"
	"fmt"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/service/audit"
	"github.com/your-org/certauth-service/internal/service/certauth"
	"github.com/your-org/certauth-service/internal/service/metrics"
	"github.com/your-org/certauth-service/internal/service/revocation"
	certtls "github.com/your-org/certauth-service/internal/service/tls"
	"github.com/your-org/certauth-service/internal/service/truststore"
	httpTransport "github.com/your-org/certauth-service/internal/transport/http"
	"github.com/your-org/certauth-service/pkg/httputil"
	"github.com/your-org/certauth-service/pkg/logger"
	"github.com/your-org/certauth-service/pkg/resilience/circuitbreaker"
	"github.com/your-org/certauth-service/pkg/resilience/ratelimit"
	"github.com/your-org/certauth-service/pkg/tracing"
)

// BuildInfo holds application build information.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// App represents the application with all its services and dependencies.
type App struct {
	cfg    *config.Config
	loader *config.Loader

	httpServer *httpTransport.Server

	// Services
	trustStore   *truststore.Store
	validator    *certauth.ChainValidator
	engine       *certauth.Engine
	celHook      *certauth.CELHook
	auditService *audit.Service

	// Resilience components
	rateLimiter    *ratelimit.Limiter
	circuitBreaker *circuitbreaker.Manager

	tracingProvider *tracing.Provider

	buildInfo BuildInfo
	stopWatch context.CancelFunc
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithBuildInfo sets the build information.
func WithBuildInfo(info BuildInfo) Option {
	return func(a *App) {
		a.buildInfo = info
	}
}

// WithLoader sets the configuration loader for hot-reload support.
func WithLoader(loader *config.Loader) Option {
	return func(a *App) {
		a.loader = loader
	}
}

// New creates a new App instance with the given configuration and options.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{
		cfg: cfg,
		buildInfo: BuildInfo{
			Version:   "dev",
			BuildTime: "unknown",
			GitCommit: "unknown",
		},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app, nil
}

// Initialize initializes all application services.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	// Rate limiter
	if a.cfg.Resilience.RateLimit.Enabled {
		a.rateLimiter, err = ratelimit.NewLimiter(a.cfg.Resilience.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		logger.Info("rate limiter initialized",
			logger.String("rate", a.cfg.Resilience.RateLimit.Rate),
		)
	}

	// Circuit breaker manager guarding online revocation fetches
	if a.cfg.Resilience.CircuitBreaker.Enabled {
		a.circuitBreaker = circuitbreaker.NewManager(a.cfg.Resilience.CircuitBreaker)
		logger.Info("circuit breaker manager initialized",
			logger.Int("service_count", len(a.cfg.Resilience.CircuitBreaker.Services)),
		)
	}

	// Distributed tracing
	a.tracingProvider, err = tracing.NewProvider(ctx, a.cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if a.tracingProvider.Enabled() {
		logger.Info("tracing enabled",
			logger.String("endpoint", a.cfg.Tracing.Endpoint),
		)
	}

	// Audit service
	a.auditService = audit.NewService(a.cfg.Audit)
	if err := a.auditService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	// Trust store
	a.trustStore, err = truststore.New(a.cfg.TrustStore, logger.L())
	if err != nil {
		return fmt.Errorf("failed to load trust store: %w", err)
	}
	logger.Info("trust store loaded",
		logger.Int("roots", a.trustStore.RootCount()),
		logger.Bool("system_roots", a.trustStore.UsesSystemRoots()),
	)

	// Revocation checkers
	checkers := certauth.Checkers{
		Online: revocation.NewOnlineChecker(a.cfg.Revocation, a.circuitBreaker, logger.L()),
	}
	if len(a.cfg.Revocation.CRLFiles) > 0 {
		checkers.Offline, err = revocation.NewOfflineChecker(a.cfg.Revocation, logger.L())
		if err != nil {
			return fmt.Errorf("failed to load CRL files: %w", err)
		}
	}

	// Chain validator and decision engine
	a.validator = certauth.NewChainValidator(a.trustStore, checkers, logger.L(),
		certauth.WithChainMetrics(metrics.DefaultMetrics))

	settings, err := certauth.SettingsFromConfig(a.cfg.Authn)
	if err != nil {
		return fmt.Errorf("invalid authentication policy: %w", err)
	}

	engineOpts := []certauth.EngineOption{
		certauth.WithMetrics(metrics.DefaultMetrics),
	}
	if a.cfg.Hooks.CEL.Enabled {
		a.celHook, err = certauth.NewCELHook(a.cfg.Hooks.CEL, logger.L())
		if err != nil {
			return fmt.Errorf("failed to compile CEL hook: %w", err)
		}
		engineOpts = append(engineOpts, certauth.WithValidateHook(a.celHook))
		logger.Info("CEL validate hook enabled")
	}

	a.engine = certauth.NewEngine(settings, a.validator, logger.L(), engineOpts...)

	// HTTP server
	if a.cfg.Server.HTTP.Enabled {
		extractor := certtls.NewExtractor(a.cfg.Extraction, logger.L())

		handler := httpTransport.NewHandler(a.engine, extractor, a.buildInfo.Version,
			httpTransport.WithAuditService(a.auditService),
			httpTransport.WithErrorWriter(httputil.NewErrorResponseWriter(a.cfg.Server.HTTP.ErrorResponse)),
			httpTransport.WithHealthCheckers(
				&trustStoreChecker{store: a.trustStore},
				&engineChecker{engine: a.engine},
			),
		)

		serverOpts := []httpTransport.ServerOption{
			httpTransport.WithMetrics(metrics.DefaultMetrics),
			httpTransport.WithTracing(a.tracingProvider),
		}
		if a.rateLimiter != nil {
			serverOpts = append(serverOpts, httpTransport.WithRateLimiter(a.rateLimiter))
		}

		a.httpServer, err = httpTransport.NewServer(httpTransport.ServerConfig{
			HTTP:      a.cfg.Server.HTTP,
			Endpoints: a.cfg.Endpoints,
		}, handler, serverOpts...)
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	// Configuration hot reload
	if a.loader != nil {
		watchCtx, cancel := context.WithCancel(context.Background())
		a.stopWatch = cancel
		if err := a.loader.StartWatching(watchCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
		go a.watchConfig(watchCtx, a.loader.Subscribe())
	}

	logger.Info("application initialized",
		logger.String("version", a.buildInfo.Version),
		logger.String("commit", a.buildInfo.GitCommit),
	)

	return nil
}

// watchConfig applies runtime-updatable settings from configuration updates.
// Only the authentication policy and the CEL expression are swapped at
// runtime; server and trust store changes need a restart.
func (a *App) watchConfig(ctx context.Context, updates <-chan config.ConfigUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.applyConfigUpdate(ctx, update)
		}
	}
}

func (a *App) applyConfigUpdate(ctx context.Context, update config.ConfigUpdate) {
	settings, err := certauth.SettingsFromConfig(update.Config.Authn)
	if err != nil {
		logger.Error("rejecting configuration update",
			logger.String("version", update.Version),
			logger.Err(err),
		)
		metrics.DefaultMetrics.RecordConfigReload(false)
		a.auditService.LogConfigReload(ctx, update.Version, err)
		return
	}

	a.engine.UpdateSettings(settings)

	if a.celHook != nil && update.Config.Hooks.CEL.Enabled {
		if err := a.celHook.SetExpression(update.Config.Hooks.CEL.Expression); err != nil {
			logger.Error("rejecting CEL expression update",
				logger.String("version", update.Version),
				logger.Err(err),
			)
			metrics.DefaultMetrics.RecordConfigReload(false)
			a.auditService.LogConfigReload(ctx, update.Version, err)
			return
		}
	}

	metrics.DefaultMetrics.RecordConfigReload(true)
	a.auditService.LogConfigReload(ctx, update.Version, nil)

	logger.Info("configuration update applied",
		logger.String("version", update.Version),
		logger.String("source", update.Source),
	)
}

// Start starts all application services.
func (a *App) Start() error {
	if a.httpServer != nil {
		go func() {
			if err := a.httpServer.Start(); err != nil {
				logger.Error("HTTP server error", logger.Err(err))
			}
		}()
	}

	logger.Info("application started",
		logger.String("http_addr", a.cfg.Server.HTTP.Addr),
	)
	return nil
}

// Shutdown gracefully shuts down all application services.
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down application")

	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.loader != nil {
		if err := a.loader.Stop(); err != nil {
			logger.Warn("failed to stop config loader", logger.Err(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown HTTP server", logger.Err(err))
		}
	}

	if a.auditService != nil {
		if err := a.auditService.Stop(); err != nil {
			logger.Error("failed to stop audit service", logger.Err(err))
		}
	}

	if a.tracingProvider != nil {
		if err := a.tracingProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracing", logger.Err(err))
		}
	}

	logger.Info("application shutdown complete")
	return nil
}

// Engine returns the decision engine.
func (a *App) Engine() *certauth.Engine {
	return a.engine
}

// RateLimiter returns the rate limiter instance.
func (a *App) RateLimiter() *ratelimit.Limiter {
	return a.rateLimiter
}

// CircuitBreaker returns the circuit breaker manager.
func (a *App) CircuitBreaker() *circuitbreaker.Manager {
	return a.circuitBreaker
}

// Healthy returns true if all critical services are healthy.
func (a *App) Healthy(ctx context.Context) bool {
	if a.trustStore == nil || a.engine == nil {
		return false
	}
	return a.trustStore.RootCount() > 0 || a.trustStore.UsesSystemRoots()
}

// trustStoreChecker reports trust store health.
type trustStoreChecker struct {
	store *truststore.Store
}

func (c *trustStoreChecker) Name() string { return "trust_store" }

func (c *trustStoreChecker) Healthy(ctx context.Context) bool {
	return c.store.RootCount() > 0 || c.store.UsesSystemRoots()
}

// engineChecker reports decision engine health.
type engineChecker struct {
	engine *certauth.Engine
}

func (c *engineChecker) Name() string { return "engine" }

func (c *engineChecker) Healthy(ctx context.Context) bool {
	return c.engine.Settings() != nil
}
