// Package integration contains integration tests that exercise the full
// authentication pipeline: HTTP transport, certificate extraction, chain
// validation, and claims mapping wired together the way the application
// assembles them.
package integration

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/service/certauth"
	certtls "github.com/your-org/certauth-service/internal/service/tls"
	"github.com/your-org/certauth-service/internal/service/truststore"
	httpTransport "github.com/your-org/certauth-service/internal/transport/http"
)

// =============================================================================
// Test PKI
// =============================================================================

type testCA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func newTestCA(t testing.TB, cn string) *testCA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Integration PKI"}},
		NotBefore:             time.Now().Add(-24 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &testCA{cert: cert, key: key}
}

func (ca *testCA) issueLeaf(t testing.TB, cn string, expired bool) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(time.Hour)
	if expired {
		notBefore = time.Now().Add(-48 * time.Hour)
		notAfter = time.Now().Add(-24 * time.Hour)
	}

	template := &x509.Certificate{
		SerialNumber:   big.NewInt(0x42),
		Subject:        pkix.Name{CommonName: cn},
		NotBefore:      notBefore,
		NotAfter:       notAfter,
		KeyUsage:       x509.KeyUsageDigitalSignature,
		ExtKeyUsage:    []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		DNSNames:       []string{cn + ".example.org"},
		EmailAddresses: []string{cn + "@example.org"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func newSelfSignedCert(t testing.TB, cn string) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(0x99),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func certPEM(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

func writeRootsFile(t testing.TB, certs ...*x509.Certificate) string {
	t.Helper()

	var data []byte
	for _, cert := range certs {
		data = append(data, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}

	path := filepath.Join(t.TempDir(), "roots.pem")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// =============================================================================
// Test stack
// =============================================================================

type stackOptions struct {
	allowedTypes []string
	extraction   config.ExtractionConfig
}

func defaultStackOptions() stackOptions {
	return stackOptions{
		allowedTypes: []string{"chained"},
		extraction: config.ExtractionConfig{
			XFCC: config.XFCCConfig{
				Enabled: true,
				Header:  "X-Forwarded-Client-Cert",
			},
			CertHeader: config.CertHeaderConfig{
				Enabled: true,
				Name:    "X-Client-Cert",
			},
			TrustedProxyCIDRs: []string{"127.0.0.0/8"},
		},
	}
}

// newTestServer wires the full pipeline behind an httptest server: trust
// store, chain validator, decision engine, extractor, and HTTP handler.
func newTestServer(t testing.TB, roots []*x509.Certificate, opts stackOptions) *httptest.Server {
	t.Helper()

	log := zap.NewNop()

	store, err := truststore.New(config.TrustStoreConfig{
		RootsFile:      writeRootsFile(t, roots...),
		UseSystemRoots: false,
	}, log)
	require.NoError(t, err)

	validator := certauth.NewChainValidator(store, certauth.Checkers{}, log)

	settings, err := certauth.SettingsFromConfig(config.AuthnConfig{
		AllowedCertificateTypes: opts.allowedTypes,
		RevocationFlag:          "exclude_root",
		RevocationMode:          "no_check",
		ValidateCertificateUse:  true,
		ValidateValidityPeriod:  true,
		ClaimsIssuerLabel:       "certificate",
		ChainTimeout:            5 * time.Second,
	})
	require.NoError(t, err)

	engine := certauth.NewEngine(settings, validator, log)
	extractor := certtls.NewExtractor(opts.extraction, log)
	handler := httpTransport.NewHandler(engine, extractor, "integration-test")

	router := chi.NewRouter()
	router.Post("/v1/authenticate", handler.Authenticate)
	router.Get("/v1/authenticate", handler.Authenticate)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/live", handler.Live)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// Request helpers
// =============================================================================

type authenticateResponse struct {
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	ChainStatus []struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	} `json:"chain_status"`
	Claims []struct {
		Type   string `json:"type"`
		Value  string `json:"value"`
		Issuer string `json:"issuer"`
	} `json:"claims"`
	Properties map[string]string `json:"properties"`
}

func postCertificate(t testing.TB, srv *httptest.Server, cert *x509.Certificate) (*http.Response, authenticateResponse) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"certificate": base64.StdEncoding.EncodeToString(cert.Raw),
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/authenticate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp, decodeAuthenticateResponse(t, resp)
}

func getWithHeaders(t testing.TB, srv *httptest.Server, headers map[string]string) (*http.Response, authenticateResponse) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/authenticate", nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeAuthenticateResponse(t, resp)
}

func decodeAuthenticateResponse(t testing.TB, resp *http.Response) authenticateResponse {
	t.Helper()

	defer resp.Body.Close()
	var out authenticateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func xfccHeader(cert *x509.Certificate) string {
	return `Hash=abc;Cert="` + url.QueryEscape(certPEM(cert)) + `";Subject="` + cert.Subject.String() + `"`
}

func jsonBody(t testing.TB, v any) *bytes.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func bytesReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
