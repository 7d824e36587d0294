package certauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/certauth-service/internal/domain"
)

func TestMapClaims_FullCertificate(t *testing.T) {
	ca := newTestCA(t, "claims-ca")
	leaf := ca.issueLeaf(t, defaultLeafOptions())

	cert, err := domain.ParseCertificate(leaf.Raw)
	require.NoError(t, err)

	claims := MapClaims(cert, "certificate")

	wantOrder := []string{
		domain.ClaimTypeIssuer,
		domain.ClaimTypeThumbprint,
		domain.ClaimTypeX500DistinguishedName,
		domain.ClaimTypeSerialNumber,
		domain.ClaimTypeDNS,
		domain.ClaimTypeName,
		domain.ClaimTypeEmail,
	}
	require.Len(t, claims, len(wantOrder))
	for i, claimType := range wantOrder {
		assert.Equal(t, claimType, claims[i].Type, "claim order at index %d", i)
		assert.NotEmpty(t, claims[i].Value)
		assert.Equal(t, "certificate", claims[i].Issuer)
	}
}

func TestMapClaims_ValueTypes(t *testing.T) {
	ca := newTestCA(t, "claims-ca")
	leaf := ca.issueLeaf(t, defaultLeafOptions())

	cert, err := domain.ParseCertificate(leaf.Raw)
	require.NoError(t, err)

	for _, claim := range MapClaims(cert, "certificate") {
		if claim.Type == domain.ClaimTypeThumbprint {
			assert.Equal(t, domain.ClaimValueHex, claim.ValueType)
		} else {
			assert.Equal(t, domain.ClaimValueString, claim.ValueType)
		}
	}
}

// Blank fields are omitted entirely, never emitted as empty claims.
func TestMapClaims_OmitsEmptyFields(t *testing.T) {
	ca := newTestCA(t, "claims-ca")
	opts := defaultLeafOptions()
	opts.dnsNames = nil
	opts.emails = nil
	leaf := ca.issueLeaf(t, opts)

	cert, err := domain.ParseCertificate(leaf.Raw)
	require.NoError(t, err)

	claims := MapClaims(cert, "certificate")

	for _, claim := range claims {
		assert.NotEmpty(t, claim.Value)
		assert.NotEqual(t, domain.ClaimTypeDNS, claim.Type)
		assert.NotEqual(t, domain.ClaimTypeEmail, claim.Type)
		assert.NotEqual(t, domain.ClaimTypeUPN, claim.Type)
		assert.NotEqual(t, domain.ClaimTypeURI, claim.Type)
	}
}

func TestMapClaims_IssuerLabel(t *testing.T) {
	ca := newTestCA(t, "claims-ca")
	leaf := ca.issueLeaf(t, defaultLeafOptions())

	cert, err := domain.ParseCertificate(leaf.Raw)
	require.NoError(t, err)

	for _, claim := range MapClaims(cert, "custom-label") {
		assert.Equal(t, "custom-label", claim.Issuer)
	}
}

func BenchmarkMapClaims(b *testing.B) {
	ca := newTestCA(b, "bench-ca")
	leaf := ca.issueLeaf(b, defaultLeafOptions())
	cert, _ := domain.ParseCertificate(leaf.Raw)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MapClaims(cert, "certificate")
	}
}
