// Package revocation answers whether a certificate has been revoked by its
// issuing authority.
package revocation

import (
	"context"
	"crypto/x509"
)

// Status is the result of one revocation lookup.
type Status string

const (
	// StatusGood means the authority answered and the certificate is not revoked.
	StatusGood Status = "good"

	// StatusRevoked means the authority answered and the certificate is revoked.
	StatusRevoked Status = "revoked"

	// StatusUnknown means no authoritative answer could be obtained.
	StatusUnknown Status = "unknown"
)

// Checker answers revocation queries for a single certificate. How Unknown
// is treated (soft or hard failure) is the caller's policy, not the
// checker's.
type Checker interface {
	Check(ctx context.Context, cert *x509.Certificate) (Status, error)
}

// NoopChecker never consults any authority and reports every certificate
// as good. Used when revocation checking is disabled.
type NoopChecker struct{}

// NewNoopChecker creates a checker that performs no revocation lookups.
func NewNoopChecker() *NoopChecker {
	return &NoopChecker{}
}

// Check always reports good.
func (c *NoopChecker) Check(_ context.Context, _ *x509.Certificate) (Status, error) {
	return StatusGood, nil
}
