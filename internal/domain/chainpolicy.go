package domain

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// OIDClientAuthentication is the extended key usage / application policy
// object identifier for TLS client authentication (1.3.6.1.5.5.7.3.2).
var OIDClientAuthentication = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}

// CertificateType is a permitted client certificate category.
type CertificateType string

const (
	CertificateTypeSelfSigned CertificateType = "self_signed"
	CertificateTypeChained    CertificateType = "chained"
)

// CertificateTypeSet is a small explicit set over certificate categories.
type CertificateTypeSet map[CertificateType]struct{}

// NewCertificateTypeSet builds a set from the given types.
func NewCertificateTypeSet(types ...CertificateType) CertificateTypeSet {
	s := make(CertificateTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseCertificateTypes parses configuration strings into a type set.
func ParseCertificateTypes(values []string) (CertificateTypeSet, error) {
	s := make(CertificateTypeSet, len(values))
	for _, v := range values {
		switch CertificateType(v) {
		case CertificateTypeSelfSigned, CertificateTypeChained:
			s[CertificateType(v)] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown certificate type %q", v)
		}
	}
	return s, nil
}

// Has reports set membership.
func (s CertificateTypeSet) Has(t CertificateType) bool {
	_, ok := s[t]
	return ok
}

// Types returns the members in stable order.
func (s CertificateTypeSet) Types() []CertificateType {
	out := make([]CertificateType, 0, len(s))
	for _, t := range []CertificateType{CertificateTypeSelfSigned, CertificateTypeChained} {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// RevocationFlag selects which certificates in a trust path are checked
// for revocation.
type RevocationFlag string

const (
	RevocationFlagEndCertificateOnly RevocationFlag = "end_certificate_only"
	RevocationFlagEntireChain        RevocationFlag = "entire_chain"
	RevocationFlagExcludeRoot        RevocationFlag = "exclude_root"
)

// ParseRevocationFlag parses a configuration string.
func ParseRevocationFlag(v string) (RevocationFlag, error) {
	switch RevocationFlag(v) {
	case RevocationFlagEndCertificateOnly, RevocationFlagEntireChain, RevocationFlagExcludeRoot:
		return RevocationFlag(v), nil
	}
	return "", fmt.Errorf("unknown revocation flag %q", v)
}

// RevocationMode selects how strictly revocation status is checked.
type RevocationMode string

const (
	// RevocationModeNoCheck skips revocation checking entirely.
	RevocationModeNoCheck RevocationMode = "no_check"

	// RevocationModeOnline checks online sources best-effort; an
	// unreachable source does not fail the path.
	RevocationModeOnline RevocationMode = "online"

	// RevocationModeOnlineRequired checks online sources and fails the
	// path when status cannot be determined.
	RevocationModeOnlineRequired RevocationMode = "online_required"

	// RevocationModeOffline consults only locally cached CRLs.
	RevocationModeOffline RevocationMode = "offline"
)

// ParseRevocationMode parses a configuration string.
func ParseRevocationMode(v string) (RevocationMode, error) {
	switch RevocationMode(v) {
	case RevocationModeNoCheck, RevocationModeOnline, RevocationModeOnlineRequired, RevocationModeOffline:
		return RevocationMode(v), nil
	}
	return "", fmt.Errorf("unknown revocation mode %q", v)
}

// VerificationOptions are relaxation flags applied during path validation.
type VerificationOptions struct {
	// AllowUnknownAuthority tolerates a path terminating at an authority
	// outside the configured trust roots
	AllowUnknownAuthority bool

	// IgnoreEndRevocationUnknown tolerates an undeterminable revocation
	// status for the end certificate
	IgnoreEndRevocationUnknown bool

	// IgnoreTimeValidity skips notBefore/notAfter enforcement
	IgnoreTimeValidity bool
}

// ChainPolicy is the policy one path validation runs under. It is built per
// authentication attempt and discarded afterwards.
type ChainPolicy struct {
	// RevocationFlag selects which path positions are checked
	RevocationFlag RevocationFlag

	// RevocationMode selects how strictly they are checked
	RevocationMode RevocationMode

	// Options are relaxation flags
	Options VerificationOptions

	// RequiredApplicationPolicies are EKU OIDs the path must assert;
	// empty means any usage is accepted
	RequiredApplicationPolicies []asn1.ObjectIdentifier

	// ExtraTrust holds certificates treated as trusted purely for this
	// validation
	ExtraTrust []*x509.Certificate
}

// RequiresClientAuth reports whether the policy demands the TLS client
// authentication EKU.
func (p *ChainPolicy) RequiresClientAuth() bool {
	for _, oid := range p.RequiredApplicationPolicies {
		if oid.Equal(OIDClientAuthentication) {
			return true
		}
	}
	return false
}
