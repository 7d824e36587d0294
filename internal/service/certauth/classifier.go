// Package certauth decides whether a client TLS certificate authenticates
// a request and derives identity claims from it.
package certauth

import (
	"bytes"
	"crypto/x509"
)

// IsSelfSigned reports whether the certificate is genuinely self-signed.
// Matching subject and issuer names alone are spoofable, so the signature
// must also verify against the certificate's own public key. A certificate
// with matching names but a failing self-signature is treated as chained,
// forcing full chain and revocation checks.
func IsSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}
