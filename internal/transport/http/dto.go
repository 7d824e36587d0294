package http

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/your-org/certauth-service/internal/domain"
)

// AuthenticateRequest carries a certificate for out-of-band authentication.
// Callers that terminate TLS themselves post the certificate here instead of
// presenting it on the connection.
type AuthenticateRequest struct {
	// Certificate is the base64-encoded DER certificate
	Certificate string `json:"certificate"`

	// ChannelSecured asserts that the certificate was received over a
	// secured channel. Defaults to true for posted certificates.
	ChannelSecured *bool `json:"channel_secured,omitempty"`
}

// DecodeCertificate decodes the posted certificate into DER bytes.
func (r *AuthenticateRequest) DecodeCertificate() ([]byte, error) {
	if r.Certificate == "" {
		return nil, nil
	}
	der, err := base64.StdEncoding.DecodeString(r.Certificate)
	if err != nil {
		return nil, fmt.Errorf("invalid certificate encoding: %w", err)
	}
	return der, nil
}

// AuthenticateResponse is the outcome of one authentication attempt.
type AuthenticateResponse struct {
	Status      domain.OutcomeStatus `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	ChainStatus []ChainStatusDTO     `json:"chain_status,omitempty"`
	Claims      []ClaimDTO           `json:"claims,omitempty"`
	Properties  map[string]string    `json:"properties,omitempty"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
}

// ChainStatusDTO is one per-step chain validation diagnostic.
type ChainStatusDTO struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// ClaimDTO is one derived identity claim.
type ClaimDTO struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
	Issuer    string `json:"issuer"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult represents a single health check result.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// FromOutcome creates a response from a domain Outcome.
func FromOutcome(o *domain.Outcome) *AuthenticateResponse {
	resp := &AuthenticateResponse{
		Status:      o.Status,
		Reason:      o.Reason,
		Properties:  o.Properties,
		EvaluatedAt: o.EvaluatedAt,
	}

	for _, cs := range o.ChainStatus {
		resp.ChainStatus = append(resp.ChainStatus, ChainStatusDTO{
			Status: cs.Status,
			Detail: cs.Detail,
		})
	}

	for _, c := range o.Claims {
		resp.Claims = append(resp.Claims, ClaimDTO{
			Type:      c.Type,
			Value:     c.Value,
			ValueType: c.ValueType,
			Issuer:    c.Issuer,
		})
	}

	return resp
}
