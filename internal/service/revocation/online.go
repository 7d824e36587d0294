package revocation

import (
	"context"
	"crypto/x509"
	"fmt"
	"net/http"

	"github.com/cloudflare/cfssl/revoke"
	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/config"
	pkgerrors "github.com/your-org/certauth-service/pkg/errors"
	"github.com/your-org/certauth-service/pkg/resilience/circuitbreaker"
)

type onlineResult struct {
	revoked bool
	known   bool
}

// OnlineChecker fetches revocation data from the distribution points named
// in the certificate (CRL and OCSP). Fetches go through a circuit breaker
// so a dead authority endpoint does not stall every authentication.
type OnlineChecker struct {
	breakers    *circuitbreaker.Manager
	breakerName string
	log         *zap.Logger
}

// NewOnlineChecker creates a checker that queries the certificate's own
// distribution points.
func NewOnlineChecker(cfg config.RevocationConfig, breakers *circuitbreaker.Manager, log *zap.Logger) *OnlineChecker {
	// The fetch library uses a package-level client
	revoke.HTTPClient = &http.Client{Timeout: cfg.FetchTimeout}

	return &OnlineChecker{
		breakers:    breakers,
		breakerName: cfg.BreakerName,
		log:         log.Named("revocation-online"),
	}
}

// Check queries the certificate's distribution points. A certificate
// without distribution points, an unreachable endpoint, or an open breaker
// all yield StatusUnknown; only an authoritative answer yields good or
// revoked.
func (c *OnlineChecker) Check(ctx context.Context, cert *x509.Certificate) (Status, error) {
	if len(cert.CRLDistributionPoints) == 0 && len(cert.OCSPServer) == 0 {
		return StatusUnknown, nil
	}

	res, err := circuitbreaker.ExecuteTyped(c.breakers, ctx, c.breakerName, func() (onlineResult, error) {
		revoked, known, err := revoke.VerifyCertificateError(cert)
		if err != nil && !known && !revoked {
			return onlineResult{}, err
		}
		return onlineResult{revoked: revoked, known: known}, nil
	})
	if err != nil {
		c.log.Warn("revocation lookup failed",
			zap.String("serial", cert.SerialNumber.Text(16)),
			zap.Error(err))
		return StatusUnknown, fmt.Errorf("%w: %v", pkgerrors.ErrRevocationCheckFailed, err)
	}

	if res.revoked {
		return StatusRevoked, nil
	}
	if !res.known {
		return StatusUnknown, nil
	}
	return StatusGood, nil
}
