package domain

import "time"

// OutcomeStatus is the terminal status of an authentication attempt.
type OutcomeStatus string

const (
	// StatusNoResult means authentication could not be attempted here
	// (unsecured channel or no certificate). Callers may fall back to
	// another scheme.
	StatusNoResult OutcomeStatus = "no_result"

	// StatusRejected means the certificate was examined and refused.
	StatusRejected OutcomeStatus = "rejected"

	// StatusValid means the certificate authenticated successfully.
	StatusValid OutcomeStatus = "valid"
)

// PropertyCertificate is the outcome property key carrying the raw
// certificate re-encoded as base64 so downstream layers can recover it.
const PropertyCertificate = "certificate"

// ChainStatus is a single per-step result reported during chain validation.
type ChainStatus struct {
	// Status is a short machine-readable status token
	Status string `json:"status"`

	// Detail is the human-readable diagnostic for this step
	Detail string `json:"detail"`
}

// Outcome is the result of one authentication attempt. Exactly one is
// produced per attempt and it is never shared or cached across requests.
type Outcome struct {
	// Status is the terminal status
	Status OutcomeStatus `json:"status"`

	// Reason explains a rejection
	Reason string `json:"reason,omitempty"`

	// ChainStatus carries per-step diagnostics for chain failures,
	// in the order the validator reported them
	ChainStatus []ChainStatus `json:"chain_status,omitempty"`

	// Claims is the identity derived from a valid certificate
	Claims []Claim `json:"claims,omitempty"`

	// Properties carries auxiliary string properties on success
	Properties map[string]string `json:"properties,omitempty"`

	// EvaluatedAt is when the outcome was produced
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// NoResult creates a neutral outcome: authentication was not possible and
// another mechanism may try.
func NoResult() *Outcome {
	return &Outcome{
		Status:      StatusNoResult,
		EvaluatedAt: time.Now(),
	}
}

// Reject creates a rejection outcome with a human-readable reason.
func Reject(reason string) *Outcome {
	return &Outcome{
		Status:      StatusRejected,
		Reason:      reason,
		EvaluatedAt: time.Now(),
	}
}

// RejectChain creates a rejection outcome carrying the full list of
// per-step chain validation diagnostics.
func RejectChain(statuses []ChainStatus) *Outcome {
	return &Outcome{
		Status:      StatusRejected,
		Reason:      "certificate chain validation failed",
		ChainStatus: statuses,
		EvaluatedAt: time.Now(),
	}
}

// Valid creates a successful outcome with the given claims.
func Valid(claims []Claim) *Outcome {
	return &Outcome{
		Status:      StatusValid,
		Claims:      claims,
		EvaluatedAt: time.Now(),
	}
}

// WithProperty sets an auxiliary property on the outcome.
func (o *Outcome) WithProperty(key, value string) *Outcome {
	if o.Properties == nil {
		o.Properties = make(map[string]string)
	}
	o.Properties[key] = value
	return o
}

// IsValid reports whether the outcome is a successful authentication.
func (o *Outcome) IsValid() bool {
	return o.Status == StatusValid
}

// IsNoResult reports whether authentication was not attempted.
func (o *Outcome) IsNoResult() bool {
	return o.Status == StatusNoResult
}

// IsRejected reports whether the certificate was refused.
func (o *Outcome) IsRejected() bool {
	return o.Status == StatusRejected
}
