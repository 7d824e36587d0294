package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	stdtls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
)

func newTestCert(t *testing.T) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "extract-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
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

func allSourcesConfig() config.ExtractionConfig {
	return config.ExtractionConfig{
		XFCC:       config.XFCCConfig{Enabled: true, Header: "X-Forwarded-Client-Cert"},
		CertHeader: config.CertHeaderConfig{Enabled: true, Name: "X-Client-Cert"},
	}
}

func TestExtract_DirectTLSSession(t *testing.T) {
	cert := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, cert.Raw, peer.RawCertificate)
}

func TestExtract_TLSWithoutPeerCertificate(t *testing.T) {
	e := NewExtractor(config.ExtractionConfig{}, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{}

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Empty(t, peer.RawCertificate)
}

func TestExtract_PlainHTTP(t *testing.T) {
	e := NewExtractor(config.ExtractionConfig{}, zap.NewNop())

	peer := e.Extract(httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil))
	assert.False(t, peer.ChannelSecured)
	assert.Empty(t, peer.RawCertificate)
}

func TestExtract_XFCC(t *testing.T) {
	cert := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Forwarded-Client-Cert",
		`Hash=0d149e;Cert="`+url.QueryEscape(certPEM(cert))+`";Subject="CN=extract-client"`)

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, cert.Raw, peer.RawCertificate)
}

func TestExtract_CertHeaderPEM(t *testing.T) {
	cert := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Client-Cert", url.QueryEscape(certPEM(cert)))

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, cert.Raw, peer.RawCertificate)
}

func TestExtract_CertHeaderBase64DER(t *testing.T) {
	cert := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Client-Cert", base64.StdEncoding.EncodeToString(cert.Raw))

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, cert.Raw, peer.RawCertificate)
}

func TestExtract_DirectSessionWins(t *testing.T) {
	direct := newTestCert(t)
	forwarded := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.TLS = &stdtls.ConnectionState{PeerCertificates: []*x509.Certificate{direct}}
	r.Header.Set("X-Client-Cert", base64.StdEncoding.EncodeToString(forwarded.Raw))

	peer := e.Extract(r)
	assert.Equal(t, direct.Raw, peer.RawCertificate)
}

func TestExtract_UntrustedProxyIgnored(t *testing.T) {
	cert := newTestCert(t)
	cfg := allSourcesConfig()
	cfg.TrustedProxyCIDRs = []string{"10.0.0.0/8"}
	e := NewExtractor(cfg, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.RemoteAddr = "203.0.113.9:4711"
	r.Header.Set("X-Client-Cert", base64.StdEncoding.EncodeToString(cert.Raw))

	peer := e.Extract(r)
	assert.False(t, peer.ChannelSecured)
	assert.Empty(t, peer.RawCertificate)
}

func TestExtract_TrustedProxy(t *testing.T) {
	cert := newTestCert(t)
	cfg := allSourcesConfig()
	cfg.TrustedProxyCIDRs = []string{"10.0.0.0/8"}
	e := NewExtractor(cfg, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.RemoteAddr = "10.1.2.3:4711"
	r.Header.Set("X-Client-Cert", base64.StdEncoding.EncodeToString(cert.Raw))

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, cert.Raw, peer.RawCertificate)
}

func TestExtract_ForwardedProtoSecuresChannel(t *testing.T) {
	e := NewExtractor(config.ExtractionConfig{}, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Empty(t, peer.RawCertificate)
}

func TestExtract_GarbageCertHeader(t *testing.T) {
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Client-Cert", "!!! not a certificate !!!")

	peer := e.Extract(r)
	assert.Empty(t, peer.RawCertificate)
}

// A request that crossed two proxies carries two comma-separated XFCC
// elements. The element nearest to this service comes last and wins.
func TestExtract_XFCCMultiHop(t *testing.T) {
	edge := newTestCert(t)
	nearest := newTestCert(t)
	e := NewExtractor(allSourcesConfig(), zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/authenticate", nil)
	r.Header.Set("X-Forwarded-Client-Cert",
		`Hash=aa11;Cert="`+url.QueryEscape(certPEM(edge))+`";Subject="CN=edge-client",`+
			`Hash=bb22;Cert="`+url.QueryEscape(certPEM(nearest))+`";Subject="CN=extract-client"`)

	peer := e.Extract(r)
	assert.True(t, peer.ChannelSecured)
	assert.Equal(t, nearest.Raw, peer.RawCertificate)
}

func TestParseXFCCElements_QuotedSemicolons(t *testing.T) {
	elements := parseXFCCElements(`Subject="CN=a;OU=b";Hash=abc`)

	assert.Equal(t, "CN=a;OU=b", elements["Subject"])
	assert.Equal(t, "abc", elements["Hash"])
}

func TestParseXFCCElements_MultiHopLastElementWins(t *testing.T) {
	elements := parseXFCCElements(`Hash=aa11;Subject="CN=edge",Hash=bb22;Subject="CN=nearest, Inc"`)

	assert.Equal(t, "bb22", elements["Hash"])
	assert.Equal(t, "CN=nearest, Inc", elements["Subject"])
}
