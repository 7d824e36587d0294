package certauth

import (
	"context"
	"crypto/x509"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/certauth-service/internal/domain"
	"github.com/your-org/certauth-service/internal/service/metrics"
	"github.com/your-org/certauth-service/internal/service/revocation"
	"github.com/your-org/certauth-service/internal/service/truststore"
)

// Chain step status codes surfaced in rejection diagnostics.
const (
	StatusNotTimeValid            = "not_time_valid"
	StatusNotValidForUsage        = "not_valid_for_usage"
	StatusUntrustedRoot           = "untrusted_root"
	StatusPartialChain            = "partial_chain"
	StatusInvalidBasicConstraints = "invalid_basic_constraints"
	StatusInvalidNameConstraints  = "invalid_name_constraints"
	StatusInvalidCertificate      = "invalid_certificate"
	StatusRevoked                 = "revoked"
	StatusRevocationUnknown       = "revocation_status_unknown"
)

// Checkers holds the revocation checkers available to the validator. The
// policy's revocation mode selects which one is consulted.
type Checkers struct {
	Online  revocation.Checker
	Offline revocation.Checker
}

// ChainValidator builds and verifies the trust path for a certificate
// under a ChainPolicy. One validation attempt per call, no retries.
type ChainValidator struct {
	store    *truststore.Store
	checkers Checkers
	noop     revocation.Checker
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// ChainValidatorOption customizes a ChainValidator.
type ChainValidatorOption func(*ChainValidator)

// WithChainMetrics records every revocation lookup on the given metrics.
func WithChainMetrics(m *metrics.Metrics) ChainValidatorOption {
	return func(v *ChainValidator) {
		v.metrics = m
	}
}

// NewChainValidator creates a validator over the given trust material.
func NewChainValidator(store *truststore.Store, checkers Checkers, log *zap.Logger, opts ...ChainValidatorOption) *ChainValidator {
	v := &ChainValidator{
		store:    store,
		checkers: checkers,
		noop:     revocation.NewNoopChecker(),
		log:      log.Named("chain-validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate verifies the certificate against the policy. A nil status slice
// means the chain is valid. A non-empty slice carries every failed step in
// the order encountered; the caller surfaces all of them, never just the
// first. A non-nil error is an unexpected failure, not a rejection.
func (v *ChainValidator) Validate(ctx context.Context, cert *x509.Certificate, policy *domain.ChainPolicy) ([]domain.ChainStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var statuses []domain.ChainStatus

	now := time.Now()
	if !policy.Options.IgnoreTimeValidity {
		if now.Before(cert.NotBefore) {
			statuses = append(statuses, domain.ChainStatus{
				Status: StatusNotTimeValid,
				Detail: "certificate is not yet valid: notBefore=" + cert.NotBefore.UTC().Format(time.RFC3339),
			})
		}
		if now.After(cert.NotAfter) {
			statuses = append(statuses, domain.ChainStatus{
				Status: StatusNotTimeValid,
				Detail: "certificate has expired: notAfter=" + cert.NotAfter.UTC().Format(time.RFC3339),
			})
		}
	}

	if policy.RequiresClientAuth() && !hasClientAuthUsage(cert) {
		statuses = append(statuses, domain.ChainStatus{
			Status: StatusNotValidForUsage,
			Detail: "certificate does not assert the TLS client authentication usage",
		})
	}

	chain, pathStatuses := v.buildPath(cert, policy, now)
	statuses = append(statuses, pathStatuses...)

	if len(chain) > 0 && policy.RevocationMode != domain.RevocationModeNoCheck {
		revStatuses, err := v.checkRevocation(ctx, chain, policy)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, revStatuses...)
	}

	if len(statuses) > 0 {
		return statuses, nil
	}
	return nil, nil
}

// hasClientAuthUsage reports whether the certificate permits TLS client
// authentication, either explicitly or via the any-usage wildcard.
func hasClientAuthUsage(cert *x509.Certificate) bool {
	if len(cert.ExtKeyUsage) == 0 && len(cert.UnknownExtKeyUsage) == 0 {
		return false
	}
	for _, usage := range cert.ExtKeyUsage {
		if usage == x509.ExtKeyUsageClientAuth || usage == x509.ExtKeyUsageAny {
			return true
		}
	}
	for _, oid := range cert.UnknownExtKeyUsage {
		if oid.Equal(domain.OIDClientAuthentication) {
			return true
		}
	}
	return false
}

// buildPath runs one path building attempt and maps any failure onto step
// statuses. Time validity is reported separately, so path building is
// anchored inside the certificate's own validity window to avoid a
// duplicate expiry report.
func (v *ChainValidator) buildPath(cert *x509.Certificate, policy *domain.ChainPolicy, now time.Time) ([]*x509.Certificate, []domain.ChainStatus) {
	roots, intermediates := v.store.Pools(policy.ExtraTrust)

	verifyTime := now
	if now.After(cert.NotAfter) || now.Before(cert.NotBefore) {
		verifyTime = cert.NotBefore.Add(cert.NotAfter.Sub(cert.NotBefore) / 2)
	}

	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   verifyTime,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err == nil {
		return chains[0], nil
	}

	if _, unknown := err.(x509.UnknownAuthorityError); unknown && policy.Options.AllowUnknownAuthority {
		return []*x509.Certificate{cert}, nil
	}

	return nil, []domain.ChainStatus{mapVerifyError(err)}
}

func mapVerifyError(err error) domain.ChainStatus {
	switch e := err.(type) {
	case x509.UnknownAuthorityError:
		return domain.ChainStatus{Status: StatusUntrustedRoot, Detail: e.Error()}
	case x509.CertificateInvalidError:
		switch e.Reason {
		case x509.Expired:
			return domain.ChainStatus{Status: StatusNotTimeValid, Detail: e.Error()}
		case x509.IncompatibleUsage:
			return domain.ChainStatus{Status: StatusNotValidForUsage, Detail: e.Error()}
		case x509.NotAuthorizedToSign:
			return domain.ChainStatus{Status: StatusInvalidBasicConstraints, Detail: e.Error()}
		case x509.CANotAuthorizedForThisName:
			return domain.ChainStatus{Status: StatusInvalidNameConstraints, Detail: e.Error()}
		case x509.TooManyIntermediates:
			return domain.ChainStatus{Status: StatusPartialChain, Detail: e.Error()}
		default:
			return domain.ChainStatus{Status: StatusInvalidCertificate, Detail: e.Error()}
		}
	default:
		return domain.ChainStatus{Status: StatusInvalidCertificate, Detail: err.Error()}
	}
}

// checkRevocation consults the policy's revocation authority for every
// chain position the revocation flag selects.
func (v *ChainValidator) checkRevocation(ctx context.Context, chain []*x509.Certificate, policy *domain.ChainPolicy) ([]domain.ChainStatus, error) {
	checker := v.checkerFor(policy.RevocationMode)

	var statuses []domain.ChainStatus
	for i, cert := range chainSubset(chain, policy.RevocationFlag) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status, err := checker.Check(ctx, cert)
		if err != nil {
			v.log.Warn("revocation check error",
				zap.String("subject", cert.Subject.String()),
				zap.Error(err))
			v.recordRevocation(policy.RevocationMode, "error")
			status = revocation.StatusUnknown
		} else {
			v.recordRevocation(policy.RevocationMode, string(status))
		}

		switch status {
		case revocation.StatusRevoked:
			statuses = append(statuses, domain.ChainStatus{
				Status: StatusRevoked,
				Detail: "certificate revoked by its authority: " + cert.Subject.String(),
			})
		case revocation.StatusUnknown:
			if v.unknownIsFailure(policy, i == 0) {
				statuses = append(statuses, domain.ChainStatus{
					Status: StatusRevocationUnknown,
					Detail: "revocation status could not be determined: " + cert.Subject.String(),
				})
			}
		}
	}
	return statuses, nil
}

func (v *ChainValidator) recordRevocation(mode domain.RevocationMode, result string) {
	if v.metrics == nil {
		return
	}
	v.metrics.RecordRevocationCheck(string(mode), result)
}

func (v *ChainValidator) checkerFor(mode domain.RevocationMode) revocation.Checker {
	switch mode {
	case domain.RevocationModeOnline, domain.RevocationModeOnlineRequired:
		if v.checkers.Online != nil {
			return v.checkers.Online
		}
	case domain.RevocationModeOffline:
		if v.checkers.Offline != nil {
			return v.checkers.Offline
		}
	}
	return v.noop
}

// unknownIsFailure decides whether an indeterminate revocation answer
// fails the chain. Best-effort online mode tolerates unknowns; required
// and offline modes do not, except for the end certificate when the policy
// explicitly tolerates it.
func (v *ChainValidator) unknownIsFailure(policy *domain.ChainPolicy, isEndCertificate bool) bool {
	if policy.RevocationMode == domain.RevocationModeOnline {
		return false
	}
	if isEndCertificate && policy.Options.IgnoreEndRevocationUnknown {
		return false
	}
	return true
}

// chainSubset selects the chain positions to revocation-check. The chain
// is leaf first, root last.
func chainSubset(chain []*x509.Certificate, flag domain.RevocationFlag) []*x509.Certificate {
	switch flag {
	case domain.RevocationFlagEndCertificateOnly:
		return chain[:1]
	case domain.RevocationFlagExcludeRoot:
		if len(chain) > 1 {
			return chain[:len(chain)-1]
		}
		return chain[:1]
	default:
		return chain
	}
}
