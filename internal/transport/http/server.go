// Package http exposes the certificate authentication decision over HTTP.
package http

import (
	"context"
	"crypto/tls"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/service/metrics"
	"github.com/your-org/certauth-service/pkg/logger"
	"github.com/your-org/certauth-service/pkg/resilience/ratelimit"
	"github.com/your-org/certauth-service/pkg/tracing"
)

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	tracer      *tracing.Provider
	cfg         config.HTTPServerConfig
	endpoints   config.EndpointsConfig
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithRateLimiter sets the rate limiter for the server.
func WithRateLimiter(limiter *ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.rateLimiter = limiter
	}
}

// WithMetrics sets the metrics collector for the server.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracing sets the tracing provider for the server.
func WithTracing(p *tracing.Provider) ServerOption {
	return func(s *Server) {
		s.tracer = p
	}
}

// ServerConfig holds all configuration needed for the HTTP server.
type ServerConfig struct {
	HTTP      config.HTTPServerConfig
	Endpoints config.EndpointsConfig
}

// NewServer creates a new HTTP server.
func NewServer(cfg ServerConfig, handler *Handler, opts ...ServerOption) (*Server, error) {
	server := &Server{
		handler:   handler,
		cfg:       cfg.HTTP,
		endpoints: cfg.Endpoints,
	}

	for _, opt := range opts {
		opt(server)
	}

	router := chi.NewRouter()

	// Middleware stack (order matters)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Rate limiter middleware (early in the chain to reject requests fast)
	if server.rateLimiter != nil {
		router.Use(server.rateLimiter.Middleware())
		logger.Info("rate limiter middleware enabled")
	}

	router.Use(logger.CorrelationIDMiddleware)
	if server.tracer != nil && server.tracer.Enabled() {
		router.Use(tracing.Middleware(server.tracer))
	}
	if server.metrics != nil {
		router.Use(server.metricsMiddleware)
	}
	router.Use(requestLogger)
	router.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	server.registerRoutes(router, handler)

	httpServer := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// The client certificate is requested but never verified during the
	// handshake; the decision engine owns the trust decision.
	if cfg.HTTP.TLS.Enabled {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ClientAuth: tls.RequestClientCert,
		}
	}

	server.httpServer = httpServer

	return server, nil
}

// registerRoutes registers all HTTP routes with configurable endpoints.
func (s *Server) registerRoutes(r chi.Router, h *Handler) {
	ep := s.endpoints

	if ep.Authenticate != "" {
		r.Post(ep.Authenticate, h.Authenticate)
		r.Get(ep.Authenticate, h.Authenticate)
	}

	// Health endpoints, with the common z variants
	if ep.Health != "" {
		r.Get(ep.Health, h.Health)
		r.Get(ep.Health+"z", h.Health)
	}
	if ep.Ready != "" {
		r.Get(ep.Ready, h.Ready)
		r.Get(ep.Ready+"z", h.Ready)
	}
	if ep.Live != "" {
		r.Get(ep.Live, h.Live)
		r.Get(ep.Live+"z", h.Live)
	}

	if ep.Metrics != "" {
		r.Handle(ep.Metrics, promhttp.Handler())
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logger.Info("starting HTTP server",
		logger.String("addr", s.cfg.Addr),
		logger.Bool("tls", s.cfg.TLS.Enabled),
	)

	var err error
	if s.cfg.TLS.Enabled {
		err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// metricsMiddleware records request counts and latencies per route.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		s.metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, path, strconv.Itoa(ww.Status())).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// requestLogger is a middleware that logs HTTP requests.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote_addr", r.RemoteAddr),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
