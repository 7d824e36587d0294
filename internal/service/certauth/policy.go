package certauth

import (
	"crypto/x509"
	"time"

	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/domain"
)

// Settings is the authentication policy in effect for one decision. It is
// derived from one configuration snapshot and immutable afterwards.
type Settings struct {
	AllowedTypes           domain.CertificateTypeSet
	RevocationFlag         domain.RevocationFlag
	RevocationMode         domain.RevocationMode
	ValidateCertificateUse bool
	ValidateValidityPeriod bool
	ClaimsIssuerLabel      string
	ChainTimeout           time.Duration
	PinnedThumbprints      []string
}

// SettingsFromConfig converts a validated configuration snapshot into
// typed policy settings.
func SettingsFromConfig(cfg config.AuthnConfig) (*Settings, error) {
	types, err := domain.ParseCertificateTypes(cfg.AllowedCertificateTypes)
	if err != nil {
		return nil, err
	}

	flag, err := domain.ParseRevocationFlag(cfg.RevocationFlag)
	if err != nil {
		return nil, err
	}

	mode, err := domain.ParseRevocationMode(cfg.RevocationMode)
	if err != nil {
		return nil, err
	}

	return &Settings{
		AllowedTypes:           types,
		RevocationFlag:         flag,
		RevocationMode:         mode,
		ValidateCertificateUse: cfg.ValidateCertificateUse,
		ValidateValidityPeriod: cfg.ValidateValidityPeriod,
		ClaimsIssuerLabel:      cfg.ClaimsIssuerLabel,
		ChainTimeout:           cfg.ChainTimeout,
		PinnedThumbprints:      cfg.PinnedThumbprints,
	}, nil
}

// BuildChainPolicy derives the chain validation policy for one certificate
// from the settings and its classification. Pure; the certificate and
// settings are not modified.
//
// A self-signed certificate cannot have an external revocation authority,
// so revocation checking is forced off and the certificate itself becomes
// a trust anchor for its own validation.
func BuildChainPolicy(cert *x509.Certificate, selfSigned bool, s *Settings) *domain.ChainPolicy {
	policy := &domain.ChainPolicy{
		RevocationFlag: s.RevocationFlag,
		RevocationMode: s.RevocationMode,
	}

	if selfSigned {
		policy.RevocationMode = domain.RevocationModeNoCheck
		policy.RevocationFlag = domain.RevocationFlagEntireChain
		policy.Options.AllowUnknownAuthority = true
		policy.Options.IgnoreEndRevocationUnknown = true
		policy.ExtraTrust = append(policy.ExtraTrust, cert)
	}

	if s.ValidateCertificateUse {
		policy.RequiredApplicationPolicies = append(policy.RequiredApplicationPolicies, domain.OIDClientAuthentication)
	}

	if !s.ValidateValidityPeriod {
		policy.Options.IgnoreTimeValidity = true
	}

	return policy
}
