// Package truststore loads and serves the trust material used for
// certificate chain building.
package truststore

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/cloudflare/cfssl/helpers"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	pkgerrors "github.com/your-org/certauth-service/pkg/errors"
)

// Store holds the trusted roots and the intermediates offered during path
// building. A Store is immutable after construction; configuration reloads
// build a new Store.
type Store struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	rootCount     int
	systemRoots   bool
}

// New builds a Store from the configured PEM bundles.
func New(cfg config.TrustStoreConfig, log *zap.Logger) (*Store, error) {
	s := &Store{
		intermediates: x509.NewCertPool(),
		systemRoots:   cfg.UseSystemRoots,
	}

	if cfg.UseSystemRoots {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("%w: system roots: %v", pkgerrors.ErrTrustStoreLoadFailed, err)
		}
		s.roots = pool
	} else {
		s.roots = x509.NewCertPool()
	}

	if cfg.RootsFile != "" {
		certs, err := loadPEMBundle(cfg.RootsFile)
		if err != nil {
			return nil, err
		}
		for _, cert := range certs {
			s.roots.AddCert(cert)
		}
		s.rootCount = len(certs)
		log.Info("loaded trust roots",
			zap.String("file", cfg.RootsFile),
			zap.Int("certificates", len(certs)))
	}

	if cfg.IntermediatesFile != "" {
		certs, err := loadPEMBundle(cfg.IntermediatesFile)
		if err != nil {
			return nil, err
		}
		for _, cert := range certs {
			s.intermediates.AddCert(cert)
		}
		log.Info("loaded intermediates",
			zap.String("file", cfg.IntermediatesFile),
			zap.Int("certificates", len(certs)))
	}

	if !cfg.UseSystemRoots && s.rootCount == 0 {
		return nil, pkgerrors.ErrTrustStoreEmpty
	}

	return s, nil
}

func loadPEMBundle(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pkgerrors.ErrTrustStoreLoadFailed, path, err)
	}

	certs, err := helpers.ParseCertificatesPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pkgerrors.ErrTrustStoreLoadFailed, path, err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrTrustStoreEmpty, path)
	}
	return certs, nil
}

// Pools returns the root and intermediate pools for one verification,
// extended with per-request trust anchors. The store's own pools are never
// mutated.
func (s *Store) Pools(extraTrust []*x509.Certificate) (roots, intermediates *x509.CertPool) {
	roots = s.roots
	intermediates = s.intermediates

	if len(extraTrust) > 0 {
		roots = s.roots.Clone()
		for _, cert := range extraTrust {
			roots.AddCert(cert)
		}
	}

	return roots, intermediates
}

// RootCount reports how many roots were loaded from the configured bundle.
// System roots are not counted.
func (s *Store) RootCount() int {
	return s.rootCount
}

// UsesSystemRoots reports whether the system trust pool is included.
func (s *Store) UsesSystemRoots() bool {
	return s.systemRoots
}
