package domain

import "time"

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	AuditEventAuthnDecision   AuditEventType = "AUTHN_DECISION"
	AuditEventChainValidation AuditEventType = "CHAIN_VALIDATION"
	AuditEventRevocationCheck AuditEventType = "REVOCATION_CHECK"
	AuditEventConfigReload    AuditEventType = "CONFIG_RELOAD"
)

// AuditEvent represents a security audit event.
type AuditEvent struct {
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// EventID is a unique identifier for this event
	EventID string `json:"event_id"`

	// EventType is the type of event
	EventType AuditEventType `json:"event_type"`

	// Subject identifies the certificate that was presented
	Subject AuditSubject `json:"subject"`

	// Decision contains the authentication decision
	Decision AuditDecision `json:"decision"`

	// Request contains request metadata
	Request AuditRequest `json:"request,omitempty"`

	// Metadata contains additional metadata
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AuditSubject identifies the presented certificate.
type AuditSubject struct {
	// CommonName is the subject common name
	CommonName string `json:"common_name,omitempty"`

	// Subject is the full subject distinguished name
	Subject string `json:"subject,omitempty"`

	// Issuer is the issuer distinguished name
	Issuer string `json:"issuer,omitempty"`

	// Thumbprint is the certificate thumbprint
	Thumbprint string `json:"thumbprint,omitempty"`

	// Serial is the certificate serial number
	Serial string `json:"serial,omitempty"`

	// SelfSigned records the classification result
	SelfSigned bool `json:"self_signed"`
}

// AuditDecision contains information about the authentication decision.
type AuditDecision struct {
	// Status is the outcome status
	Status OutcomeStatus `json:"status"`

	// Reasons explains why the decision was made
	Reasons []string `json:"reasons,omitempty"`

	// DurationMs is how long the decision took
	DurationMs float64 `json:"duration_ms"`
}

// AuditRequest contains request metadata for audit.
type AuditRequest struct {
	// ID is the request ID
	ID string `json:"id"`

	// SourceIP is the client IP address
	SourceIP string `json:"source_ip,omitempty"`

	// UserAgent is the client user agent
	UserAgent string `json:"user_agent,omitempty"`
}

// NewAuditEvent creates a new audit event with defaults.
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Metadata:  make(map[string]any),
	}
}

// SetMetadata sets a metadata value.
func (e *AuditEvent) SetMetadata(key string, value any) *AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}
