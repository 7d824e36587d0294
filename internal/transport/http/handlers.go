package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/certauth-service/internal/domain"
	"github.com/your-org/certauth-service/internal/service/audit"
	"github.com/your-org/certauth-service/internal/service/certauth"
	certtls "github.com/your-org/certauth-service/internal/service/tls"
	"github.com/your-org/certauth-service/pkg/errors"
	"github.com/your-org/certauth-service/pkg/httputil"
	"github.com/your-org/certauth-service/pkg/logger"
)

// Authenticator runs one certificate authentication attempt.
type Authenticator interface {
	Authenticate(ctx context.Context, in certauth.Input) (*domain.Outcome, error)
}

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) bool
}

// Handler contains HTTP handlers for the certificate authentication service.
type Handler struct {
	engine    Authenticator
	extractor *certtls.Extractor
	auditSvc  *audit.Service
	errWriter *httputil.ErrorResponseWriter
	checkers  []HealthChecker
	version   string
}

// HandlerOption is a functional option for configuring the Handler.
type HandlerOption func(*Handler)

// WithAuditService sets the audit service for the handler.
func WithAuditService(svc *audit.Service) HandlerOption {
	return func(h *Handler) {
		h.auditSvc = svc
	}
}

// WithErrorWriter sets the error response writer.
func WithErrorWriter(w *httputil.ErrorResponseWriter) HandlerOption {
	return func(h *Handler) {
		h.errWriter = w
	}
}

// WithHealthCheckers registers dependency health checks.
func WithHealthCheckers(checkers ...HealthChecker) HandlerOption {
	return func(h *Handler) {
		h.checkers = append(h.checkers, checkers...)
	}
}

// NewHandler creates a new HTTP handler.
func NewHandler(engine Authenticator, extractor *certtls.Extractor, version string, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		extractor: extractor,
		errWriter: httputil.DefaultErrorResponseWriter(),
		version:   version,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Authenticate handles certificate authentication requests. The certificate
// comes from the request's TLS session or forwarded headers; a JSON body may
// instead carry it explicitly for out-of-band checks.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := getRequestID(r)
	start := time.Now()

	input, ok := h.resolveInput(w, r, requestID)
	if !ok {
		return
	}

	outcome, err := h.engine.Authenticate(ctx, input)
	if err != nil {
		h.auditError(ctx, err, r, requestID, time.Since(start))
		if errors.Is(err, errors.ErrCertificateMalformed) {
			h.errWriter.WriteError(w, r, http.StatusBadRequest,
				"certificate could not be parsed", err.Error())
			return
		}
		logger.Error("authentication failed",
			logger.String("request_id", requestID),
			logger.Err(err),
		)
		h.errWriter.WriteError(w, r, http.StatusInternalServerError,
			"authentication failed", errors.GetCode(err))
		return
	}

	h.auditDecision(ctx, input, outcome, r, requestID, time.Since(start))

	logger.Info("authentication decision",
		logger.String("request_id", requestID),
		logger.String("status", string(outcome.Status)),
		logger.Duration("duration", time.Since(start)),
	)

	h.writeJSON(w, statusCodeFor(outcome), FromOutcome(outcome))
}

// resolveInput determines the engine input for the request. A JSON body with
// a certificate takes precedence over transport-level extraction.
func (h *Handler) resolveInput(w http.ResponseWriter, r *http.Request, requestID string) (certauth.Input, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && r.ContentLength != 0 {
		var req AuthenticateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.errWriter.WriteError(w, r, http.StatusBadRequest,
				"invalid request body", err.Error())
			return certauth.Input{}, false
		}

		der, err := req.DecodeCertificate()
		if err != nil {
			h.errWriter.WriteError(w, r, http.StatusBadRequest,
				"invalid request body", err.Error())
			return certauth.Input{}, false
		}

		secured := true
		if req.ChannelSecured != nil {
			secured = *req.ChannelSecured
		}
		return certauth.Input{ChannelSecured: secured, RawCertificate: der}, true
	}

	peer := h.extractor.Extract(r)
	return certauth.Input{
		ChannelSecured: peer.ChannelSecured,
		RawCertificate: peer.RawCertificate,
	}, true
}

// statusCodeFor maps an outcome to its HTTP status code. A neutral result is
// reported as 401 so callers can fall back to another scheme; a rejection is
// a definitive 403.
func statusCodeFor(o *domain.Outcome) int {
	switch o.Status {
	case domain.StatusValid:
		return http.StatusOK
	case domain.StatusRejected:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func (h *Handler) auditDecision(ctx context.Context, input certauth.Input, outcome *domain.Outcome, r *http.Request, requestID string, duration time.Duration) {
	if h.auditSvc == nil {
		return
	}

	var cert *domain.Certificate
	var selfSigned bool
	if len(input.RawCertificate) > 0 {
		if parsed, err := domain.ParseCertificate(input.RawCertificate); err == nil {
			cert = parsed
			selfSigned = certauth.IsSelfSigned(parsed.Leaf)
		}
	}

	h.auditSvc.LogAuthnDecision(ctx, cert, selfSigned, outcome, domain.AuditRequest{
		ID:        requestID,
		SourceIP:  getClientIP(r),
		UserAgent: r.UserAgent(),
	}, duration)
}

func (h *Handler) auditError(ctx context.Context, err error, r *http.Request, requestID string, duration time.Duration) {
	if h.auditSvc == nil {
		return
	}
	h.auditSvc.LogAuthnError(ctx, err, domain.AuditRequest{
		ID:        requestID,
		SourceIP:  getClientIP(r),
		UserAgent: r.UserAgent(),
	}, duration)
}

// Health handles health check requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]CheckResult)
	status := "healthy"

	for _, c := range h.checkers {
		if c.Healthy(ctx) {
			checks[c.Name()] = CheckResult{Status: "healthy"}
		} else {
			checks[c.Name()] = CheckResult{Status: "unhealthy"}
			status = "unhealthy"
		}
	}

	resp := &HealthResponse{
		Status:    status,
		Checks:    checks,
		Version:   h.version,
		Timestamp: time.Now(),
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, resp)
}

// Ready handles readiness check requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for _, c := range h.checkers {
		if !c.Healthy(ctx) {
			h.writeError(w, http.StatusServiceUnavailable, "NOT_READY",
				c.Name()+" not ready", "")
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Live handles liveness check requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.Err(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	resp := &ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID,
	}
	h.writeJSON(w, status, resp)
}

func getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Correlation-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
