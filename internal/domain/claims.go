package domain

// Standard identity claim type URIs.
const (
	ClaimTypeIssuer                  = "issuer"
	ClaimTypeThumbprint              = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/thumbprint"
	ClaimTypeX500DistinguishedName   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/x500distinguishedname"
	ClaimTypeSerialNumber            = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/serialnumber"
	ClaimTypeDNS                     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/dns"
	ClaimTypeName                    = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimTypeEmail                   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	ClaimTypeUPN                     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/upn"
	ClaimTypeURI                     = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/uri"
)

// Claim value kinds.
const (
	ClaimValueString = "string"
	ClaimValueHex    = "hexBinary"
)

// Claim is a typed assertion about an authenticated identity.
type Claim struct {
	// Type is the claim type URI
	Type string `json:"type"`

	// Value is the claim value
	Value string `json:"value"`

	// ValueType describes the encoding of Value
	ValueType string `json:"value_type"`

	// Issuer is the label of the authority that issued this claim
	Issuer string `json:"issuer"`
}

// NewClaim creates a string-valued claim.
func NewClaim(claimType, value, issuer string) Claim {
	return Claim{
		Type:      claimType,
		Value:     value,
		ValueType: ClaimValueString,
		Issuer:    issuer,
	}
}
