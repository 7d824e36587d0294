package revocation

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	pkgerrors "github.com/your-org/certauth-service/pkg/errors"
)

// OfflineChecker answers revocation queries from locally provisioned CRL
// files, never touching the network. A certificate whose issuer has no
// provisioned CRL yields StatusUnknown.
type OfflineChecker struct {
	// revoked serials keyed by the raw issuer DN of the covering CRL
	byIssuer map[string]map[string]struct{}
}

// NewOfflineChecker loads the configured CRL files. Files may be DER or
// PEM encoded.
func NewOfflineChecker(cfg config.RevocationConfig, log *zap.Logger) (*OfflineChecker, error) {
	c := &OfflineChecker{
		byIssuer: make(map[string]map[string]struct{}),
	}

	for _, path := range cfg.CRLFiles {
		crl, err := loadCRL(path)
		if err != nil {
			return nil, err
		}

		issuer := string(crl.RawIssuer)
		serials, ok := c.byIssuer[issuer]
		if !ok {
			serials = make(map[string]struct{})
			c.byIssuer[issuer] = serials
		}
		for _, entry := range crl.RevokedCertificateEntries {
			serials[serialKey(entry.SerialNumber)] = struct{}{}
		}

		log.Info("loaded CRL",
			zap.String("file", path),
			zap.String("issuer", crl.Issuer.String()),
			zap.Int("revoked", len(crl.RevokedCertificateEntries)))
	}

	return c, nil
}

func loadCRL(path string) (*x509.RevocationList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: crl %s: %v", pkgerrors.ErrConfigLoadFailed, path, err)
	}

	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}

	crl, err := x509.ParseRevocationList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: crl %s: %v", pkgerrors.ErrConfigLoadFailed, path, err)
	}
	return crl, nil
}

func serialKey(serial *big.Int) string {
	return serial.Text(16)
}

// Check looks the certificate up in the provisioned CRLs.
func (c *OfflineChecker) Check(_ context.Context, cert *x509.Certificate) (Status, error) {
	for issuer, serials := range c.byIssuer {
		if !bytes.Equal([]byte(issuer), cert.RawIssuer) {
			continue
		}
		if _, revoked := serials[serialKey(cert.SerialNumber)]; revoked {
			return StatusRevoked, nil
		}
		return StatusGood, nil
	}
	return StatusUnknown, nil
}
