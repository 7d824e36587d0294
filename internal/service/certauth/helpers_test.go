package certauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/service/truststore"
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
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test PKI"}},
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

type leafOptions struct {
	cn       string
	serial   int64
	expired  bool
	noEKU    bool
	dnsNames []string
	emails   []string
}

func defaultLeafOptions() leafOptions {
	return leafOptions{
		cn:       "test-client",
		serial:   0x51,
		dnsNames: []string{"client.example.org"},
		emails:   []string{"client@example.org"},
	}
}

func (ca *testCA) issueLeaf(t testing.TB, opts leafOptions) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(time.Hour)
	if opts.expired {
		notBefore = time.Now().Add(-48 * time.Hour)
		notAfter = time.Now().Add(-24 * time.Hour)
	}

	template := &x509.Certificate{
		SerialNumber:   big.NewInt(opts.serial),
		Subject:        pkix.Name{CommonName: opts.cn},
		NotBefore:      notBefore,
		NotAfter:       notAfter,
		KeyUsage:       x509.KeyUsageDigitalSignature,
		DNSNames:       opts.dnsNames,
		EmailAddresses: opts.emails,
	}
	if !opts.noEKU {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func newSelfSignedCert(t testing.TB, cn string, withEKU bool) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(0x99),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	if withEKU {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func writeCertPEM(t testing.TB, certs ...*x509.Certificate) string {
	t.Helper()

	var data []byte
	for _, cert := range certs {
		data = append(data, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}

	path := filepath.Join(t.TempDir(), "roots.pem")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newTestStore(t testing.TB, roots ...*x509.Certificate) *truststore.Store {
	t.Helper()

	cfg := config.TrustStoreConfig{UseSystemRoots: false}
	if len(roots) > 0 {
		cfg.RootsFile = writeCertPEM(t, roots...)
	} else {
		// An empty store still needs one anchor to construct; use a
		// throwaway CA that signs nothing under test
		cfg.RootsFile = writeCertPEM(t, newTestCA(t, "unused-anchor").cert)
	}

	store, err := truststore.New(cfg, zap.NewNop())
	require.NoError(t, err)
	return store
}

func newTestValidator(t testing.TB, roots ...*x509.Certificate) *ChainValidator {
	t.Helper()
	return NewChainValidator(newTestStore(t, roots...), Checkers{}, zap.NewNop())
}

func defaultTestSettings(t testing.TB) *Settings {
	t.Helper()

	s, err := SettingsFromConfig(config.AuthnConfig{
		AllowedCertificateTypes: []string{"chained"},
		RevocationFlag:          "exclude_root",
		RevocationMode:          "no_check",
		ValidateCertificateUse:  true,
		ValidateValidityPeriod:  true,
		ClaimsIssuerLabel:       "certificate",
		ChainTimeout:            5 * time.Second,
	})
	require.NoError(t, err)
	return s
}
