package certauth

import (
	"strings"

	"github.com/your-org/certauth-service/internal/domain"
)

// MapClaims derives the identity claims for a validated certificate. The
// field order is fixed: issuer, thumbprint, distinguished name, serial
// number, DNS name, simple name, email, UPN, URI. A field contributes a
// claim only when non-blank; blank fields are omitted rather than emitted
// empty. Every claim carries issuerLabel as its issuing authority.
func MapClaims(cert *domain.Certificate, issuerLabel string) []domain.Claim {
	fields := []struct {
		claimType string
		valueType string
		value     string
	}{
		{domain.ClaimTypeIssuer, domain.ClaimValueString, cert.IssuerDN()},
		{domain.ClaimTypeThumbprint, domain.ClaimValueHex, cert.Thumbprint()},
		{domain.ClaimTypeX500DistinguishedName, domain.ClaimValueString, cert.SubjectDN()},
		{domain.ClaimTypeSerialNumber, domain.ClaimValueString, cert.SerialNumber()},
		{domain.ClaimTypeDNS, domain.ClaimValueString, cert.DNSName()},
		{domain.ClaimTypeName, domain.ClaimValueString, cert.CommonName()},
		{domain.ClaimTypeEmail, domain.ClaimValueString, cert.Email()},
		{domain.ClaimTypeUPN, domain.ClaimValueString, cert.UPN()},
		{domain.ClaimTypeURI, domain.ClaimValueString, cert.URI()},
	}

	claims := make([]domain.Claim, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		claims = append(claims, domain.Claim{
			Type:      f.claimType,
			Value:     f.value,
			ValueType: f.valueType,
			Issuer:    issuerLabel,
		})
	}
	return claims
}
