package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	stdtls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/domain"
	"github.com/your-org/certauth-service/internal/service/certauth"
	certtls "github.com/your-org/certauth-service/internal/service/tls"
	"github.com/your-org/certauth-service/pkg/errors"
)

// =============================================================================
// Test Helpers
// =============================================================================

type stubAuthenticator struct {
	outcome *domain.Outcome
	err     error
	got     []certauth.Input
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, in certauth.Input) (*domain.Outcome, error) {
	s.got = append(s.got, in)
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubChecker struct {
	name    string
	healthy bool
}

func (s *stubChecker) Name() string                     { return s.name }
func (s *stubChecker) Healthy(ctx context.Context) bool { return s.healthy }

func newTestHandler(t *testing.T, auth Authenticator, opts ...HandlerOption) *Handler {
	t.Helper()
	extractor := certtls.NewExtractor(config.ExtractionConfig{}, zap.NewNop())
	return NewHandler(auth, extractor, "test", opts...)
}

func newTestLeaf(t *testing.T) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(0x77),
		Subject:      pkix.Name{CommonName: "handler-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) AuthenticateResponse {
	t.Helper()
	var resp AuthenticateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// Authenticate Handler
// =============================================================================

func TestAuthenticate_ValidOutcome(t *testing.T) {
	outcome := domain.Valid([]domain.Claim{
		domain.NewClaim(domain.ClaimTypeName, "handler-client", "certificate"),
	}).WithProperty(domain.PropertyCertificate, "AQID")
	auth := &stubAuthenticator{outcome: outcome}
	h := newTestHandler(t, auth)

	cert := newTestLeaf(t)
	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, domain.StatusValid, resp.Status)
	require.Len(t, resp.Claims, 1)
	assert.Equal(t, "handler-client", resp.Claims[0].Value)
	assert.Equal(t, "AQID", resp.Properties[domain.PropertyCertificate])

	require.Len(t, auth.got, 1)
	assert.True(t, auth.got[0].ChannelSecured)
	assert.Equal(t, cert.Raw, auth.got[0].RawCertificate)
}

func TestAuthenticate_RejectedOutcome(t *testing.T) {
	outcome := domain.RejectChain([]domain.ChainStatus{
		{Status: "untrusted_root", Detail: "no trust anchor"},
	})
	h := newTestHandler(t, &stubAuthenticator{outcome: outcome})

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{PeerCertificates: []*x509.Certificate{newTestLeaf(t)}}
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, domain.StatusRejected, resp.Status)
	require.Len(t, resp.ChainStatus, 1)
	assert.Equal(t, "untrusted_root", resp.ChainStatus[0].Status)
}

func TestAuthenticate_NoResultOutcome(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()})

	rec := httptest.NewRecorder()
	h.Authenticate(rec, httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, domain.StatusNoResult, resp.Status)
}

func TestAuthenticate_PostedCertificate(t *testing.T) {
	auth := &stubAuthenticator{outcome: domain.Valid(nil)}
	h := newTestHandler(t, auth)

	cert := newTestLeaf(t)
	body, err := json.Marshal(AuthenticateRequest{
		Certificate: base64.StdEncoding.EncodeToString(cert.Raw),
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, auth.got, 1)
	assert.True(t, auth.got[0].ChannelSecured)
	assert.Equal(t, cert.Raw, auth.got[0].RawCertificate)
}

func TestAuthenticate_PostedCertificateUnsecuredChannel(t *testing.T) {
	auth := &stubAuthenticator{outcome: domain.NoResult()}
	h := newTestHandler(t, auth)

	secured := false
	body, err := json.Marshal(AuthenticateRequest{
		Certificate:    base64.StdEncoding.EncodeToString(newTestLeaf(t).Raw),
		ChannelSecured: &secured,
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	require.Len(t, auth.got, 1)
	assert.False(t, auth.got[0].ChannelSecured)
}

func TestAuthenticate_InvalidBody(t *testing.T) {
	auth := &stubAuthenticator{outcome: domain.Valid(nil)}
	h := newTestHandler(t, auth)

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", bytes.NewReader([]byte("{not json")))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auth.got)
}

func TestAuthenticate_InvalidCertificateEncoding(t *testing.T) {
	auth := &stubAuthenticator{outcome: domain.Valid(nil)}
	h := newTestHandler(t, auth)

	body, err := json.Marshal(AuthenticateRequest{Certificate: "!!not-base64!!"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, auth.got)
}

func TestAuthenticate_MalformedCertificateError(t *testing.T) {
	err := fmt.Errorf("%w: asn1 syntax error", errors.ErrCertificateMalformed)
	h := newTestHandler(t, &stubAuthenticator{err: err})

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{PeerCertificates: []*x509.Certificate{newTestLeaf(t)}}
	rec := httptest.NewRecorder()

	h.Authenticate(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticate_InternalError(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{err: errors.ErrInternal})

	rec := httptest.NewRecorder()
	h.Authenticate(rec, httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// =============================================================================
// Health Handlers
// =============================================================================

func TestHealth_AllHealthy(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()},
		WithHealthCheckers(
			&stubChecker{name: "trust_store", healthy: true},
			&stubChecker{name: "config", healthy: true},
		))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Len(t, resp.Checks, 2)
}

func TestHealth_Unhealthy(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()},
		WithHealthCheckers(&stubChecker{name: "trust_store", healthy: false}))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["trust_store"].Status)
}

func TestReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()},
			WithHealthCheckers(&stubChecker{name: "trust_store", healthy: true}))

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()},
			WithHealthCheckers(&stubChecker{name: "trust_store", healthy: false}))

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLive(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()})

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// Request Helpers
// =============================================================================

func TestGetRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "req-abc")
	assert.Equal(t, "req-abc", getRequestID(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Correlation-ID", "corr-def")
	assert.Equal(t, "corr-def", getRequestID(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotEmpty(t, getRequestID(r))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1:1234", getClientIP(r))
}

// =============================================================================
// Server Routing
// =============================================================================

func defaultEndpoints() config.EndpointsConfig {
	return config.EndpointsConfig{
		Authenticate: "/v1/authenticate",
		Health:       "/health",
		Ready:        "/ready",
		Live:         "/live",
		Metrics:      "/metrics",
	}
}

func TestServer_Routes(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()})

	srv, err := NewServer(ServerConfig{
		HTTP: config.HTTPServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Endpoints: defaultEndpoints(),
	}, h)
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/v1/authenticate", http.StatusUnauthorized},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_TLSRequestsClientCertificate(t *testing.T) {
	h := newTestHandler(t, &stubAuthenticator{outcome: domain.NoResult()})

	srv, err := NewServer(ServerConfig{
		HTTP: config.HTTPServerConfig{
			Addr:         ":0",
			WriteTimeout: time.Second,
			TLS:          config.TLSServerConfig{Enabled: true},
		},
		Endpoints: defaultEndpoints(),
	}, h)
	require.NoError(t, err)

	require.NotNil(t, srv.httpServer.TLSConfig)
	assert.Equal(t, stdtls.RequestClientCert, srv.httpServer.TLSConfig.ClientAuth)
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkAuthenticate(b *testing.B) {
	extractor := certtls.NewExtractor(config.ExtractionConfig{}, zap.NewNop())
	h := NewHandler(&stubAuthenticator{outcome: domain.NoResult()}, extractor, "bench")

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.Authenticate(rec, r)
	}
}
