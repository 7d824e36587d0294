package domain

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

var (
	oidExtensionSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidUserPrincipalName       = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2, 3}
)

// Certificate is an immutable view over a client certificate. It keeps the
// exact DER bytes received from the transport alongside the parsed form so
// the original encoding can be round-tripped to downstream consumers.
type Certificate struct {
	// Raw is the DER encoding exactly as received
	Raw []byte

	// Leaf is the parsed certificate
	Leaf *x509.Certificate
}

// ParseCertificate parses DER-encoded certificate bytes.
func ParseCertificate(der []byte) (*Certificate, error) {
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	raw := make([]byte, len(der))
	copy(raw, der)
	return &Certificate{Raw: raw, Leaf: leaf}, nil
}

// NewCertificate wraps an already-parsed certificate, preserving its raw
// encoding.
func NewCertificate(leaf *x509.Certificate) *Certificate {
	raw := make([]byte, len(leaf.Raw))
	copy(raw, leaf.Raw)
	return &Certificate{Raw: raw, Leaf: leaf}
}

// Thumbprint returns the lowercase hex SHA-256 digest of the DER encoding.
func (c *Certificate) Thumbprint() string {
	sum := sha256.Sum256(c.Raw)
	return hex.EncodeToString(sum[:])
}

// SubjectDN returns the subject distinguished name in RFC 2253 form.
func (c *Certificate) SubjectDN() string {
	return c.Leaf.Subject.String()
}

// IssuerDN returns the issuer distinguished name in RFC 2253 form.
func (c *Certificate) IssuerDN() string {
	return c.Leaf.Issuer.String()
}

// SerialNumber returns the certificate serial number as lowercase hex.
func (c *Certificate) SerialNumber() string {
	if c.Leaf.SerialNumber == nil {
		return ""
	}
	return c.Leaf.SerialNumber.Text(16)
}

// CommonName returns the subject common name.
func (c *Certificate) CommonName() string {
	return c.Leaf.Subject.CommonName
}

// DNSName returns the first DNS subject alternative name, if any.
func (c *Certificate) DNSName() string {
	if len(c.Leaf.DNSNames) == 0 {
		return ""
	}
	return c.Leaf.DNSNames[0]
}

// Email returns the first email subject alternative name, if any.
func (c *Certificate) Email() string {
	if len(c.Leaf.EmailAddresses) == 0 {
		return ""
	}
	return c.Leaf.EmailAddresses[0]
}

// URI returns the first URI subject alternative name, if any.
func (c *Certificate) URI() string {
	if len(c.Leaf.URIs) == 0 {
		return ""
	}
	return c.Leaf.URIs[0].String()
}

// UPN returns the user principal name carried in an otherName subject
// alternative name, if present. The crypto/x509 parser does not surface
// otherName entries, so the SAN extension is walked directly.
func (c *Certificate) UPN() string {
	for _, ext := range c.Leaf.Extensions {
		if !ext.Id.Equal(oidExtensionSubjectAltName) {
			continue
		}
		return upnFromSANExtension(ext.Value)
	}
	return ""
}

// EncodeBase64 returns the raw DER bytes as standard base64.
func (c *Certificate) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(c.Raw)
}

// otherName is the GeneralName alternative carrying a typed ANY value.
type otherName struct {
	TypeID asn1.ObjectIdentifier
	Value  asn1.RawValue `asn1:"tag:0,explicit"`
}

func upnFromSANExtension(value []byte) string {
	var seq asn1.RawValue
	if _, err := asn1.Unmarshal(value, &seq); err != nil {
		return ""
	}
	if seq.Tag != asn1.TagSequence || seq.Class != asn1.ClassUniversal {
		return ""
	}

	rest := seq.Bytes
	for len(rest) > 0 {
		var gn asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &gn)
		if err != nil {
			return ""
		}
		// otherName is GeneralName choice [0]
		if gn.Class != asn1.ClassContextSpecific || gn.Tag != 0 {
			continue
		}

		var on otherName
		if _, err := asn1.UnmarshalWithParams(gn.FullBytes, &on, "tag:0"); err != nil {
			continue
		}
		if !on.TypeID.Equal(oidUserPrincipalName) {
			continue
		}

		var upn string
		if _, err := asn1.Unmarshal(on.Value.FullBytes, &upn); err != nil {
			continue
		}
		return upn
	}
	return ""
}
