package config

import (
	"time"
)

// =============================================================================
// Certificate Authentication Configuration
// =============================================================================

// AuthnConfig holds the certificate authentication policy. It is the
// runtime-updatable part of the configuration: the loader publishes a new
// immutable snapshot when the file changes and the engine reads the latest
// snapshot per request.
type AuthnConfig struct {
	// AllowedCertificateTypes lists the permitted certificate categories
	AllowedCertificateTypes []string `mapstructure:"allowed_certificate_types" jsonschema:"description=Permitted client certificate categories.,default=chained" jsonschema_extras:"x-runtime-updatable=true"`

	// RevocationFlag selects which chain positions are checked for revocation
	RevocationFlag string `mapstructure:"revocation_flag" jsonschema:"description=Which certificates in the trust path are checked for revocation.,enum=end_certificate_only,enum=entire_chain,enum=exclude_root,default=exclude_root" jsonschema_extras:"x-runtime-updatable=true"`

	// RevocationMode selects how strictly revocation is checked
	RevocationMode string `mapstructure:"revocation_mode" jsonschema:"description=How strictly revocation status is checked.,enum=no_check,enum=online,enum=online_required,enum=offline,default=online" jsonschema_extras:"x-runtime-updatable=true"`

	// ValidateCertificateUse requires the client authentication EKU on the trust path
	ValidateCertificateUse bool `mapstructure:"validate_certificate_use" jsonschema:"description=Require the TLS client authentication extended key usage.,default=true" jsonschema_extras:"x-runtime-updatable=true"`

	// ValidateValidityPeriod enforces notBefore/notAfter
	ValidateValidityPeriod bool `mapstructure:"validate_validity_period" jsonschema:"description=Enforce the certificate validity window.,default=true" jsonschema_extras:"x-runtime-updatable=true"`

	// ClaimsIssuerLabel tags every derived claim with this issuing authority
	ClaimsIssuerLabel string `mapstructure:"claims_issuer_label" jsonschema:"description=Issuer label attached to every derived identity claim.,default=certificate" jsonschema_extras:"x-runtime-updatable=true"`

	// ChainTimeout bounds one chain validation including revocation I/O
	ChainTimeout time.Duration `mapstructure:"chain_timeout" jsonschema:"description=Upper bound for one chain validation including revocation lookups.,default=10s" jsonschema_extras:"x-runtime-updatable=true"`

	// PinnedThumbprints optionally restricts accepted certificates to an
	// explicit allowlist of hex SHA-256 thumbprints
	PinnedThumbprints []string `mapstructure:"pinned_thumbprints" jsonschema:"description=Optional allowlist of hex SHA-256 certificate thumbprints. Empty disables pinning." jsonschema_extras:"x-runtime-updatable=true"`
}

// TrustStoreConfig holds trust material locations.
type TrustStoreConfig struct {
	// RootsFile is a PEM bundle of trusted root certificates
	RootsFile string `mapstructure:"roots_file" jsonschema:"description=Path to a PEM bundle of trusted root certificates."`

	// IntermediatesFile is a PEM bundle of intermediate certificates
	IntermediatesFile string `mapstructure:"intermediates_file" jsonschema:"description=Path to a PEM bundle of intermediate certificates offered during path building."`

	// UseSystemRoots adds the system root pool to the configured roots
	UseSystemRoots bool `mapstructure:"use_system_roots" jsonschema:"description=Include the system trust roots in addition to the configured bundle.,default=true"`
}

// RevocationConfig holds revocation checker settings.
type RevocationConfig struct {
	// CRLFiles are local CRL files consulted in offline mode
	CRLFiles []string `mapstructure:"crl_files" jsonschema:"description=Local CRL files consulted when revocation mode is offline."`

	// FetchTimeout bounds one online CRL fetch
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" jsonschema:"description=Timeout for one online CRL download.,default=5s"`

	// BreakerName is the circuit breaker guarding online fetches
	BreakerName string `mapstructure:"breaker_name" jsonschema:"description=Circuit breaker name guarding online revocation fetches.,default=revocation"`
}

// HooksConfig holds extension hook settings.
type HooksConfig struct {
	// CEL configures the expression-based validate hook
	CEL CELHookConfig `mapstructure:"cel" jsonschema:"description=CEL expression hook evaluated after successful chain validation."`
}

// CELHookConfig configures the CEL validate hook.
type CELHookConfig struct {
	// Enabled enables the hook
	Enabled bool `mapstructure:"enabled" jsonschema:"description=Enable the CEL validate hook.,default=false"`

	// Expression is a boolean CEL expression over certificate fields;
	// false rejects the certificate, true defers to default claims
	Expression string `mapstructure:"expression" jsonschema:"description=Boolean CEL expression over certificate fields. False rejects the certificate."`

	// CacheSize bounds the compiled program cache
	CacheSize int `mapstructure:"cache_size" jsonschema:"description=Maximum number of cached compiled CEL programs.,default=100"`
}

// =============================================================================
// Certificate Extraction Configuration
// =============================================================================

// ExtractionConfig controls how the peer certificate is recovered when the
// service sits behind a TLS-terminating proxy. A certificate taken directly
// from the request's own TLS session always wins.
type ExtractionConfig struct {
	// XFCC configures extraction from the X-Forwarded-Client-Cert header
	XFCC XFCCConfig `mapstructure:"xfcc" jsonschema:"description=Envoy style forwarded client certificate header."`

	// CertHeader configures extraction from a single certificate header
	CertHeader CertHeaderConfig `mapstructure:"cert_header" jsonschema:"description=Single header carrying the URL-encoded PEM certificate."`

	// TrustedProxyCIDRs restricts which peers may assert forwarded certificates
	TrustedProxyCIDRs []string `mapstructure:"trusted_proxy_cidrs" jsonschema:"description=CIDRs of proxies trusted to forward client certificates. Empty trusts any peer."`
}

// XFCCConfig configures X-Forwarded-Client-Cert extraction.
type XFCCConfig struct {
	Enabled bool   `mapstructure:"enabled" jsonschema:"description=Accept certificates from the XFCC header.,default=false"`
	Header  string `mapstructure:"header" jsonschema:"default=X-Forwarded-Client-Cert"`
}

// CertHeaderConfig configures single-header certificate extraction.
type CertHeaderConfig struct {
	Enabled bool   `mapstructure:"enabled" jsonschema:"description=Accept certificates from a dedicated header.,default=false"`
	Name    string `mapstructure:"name" jsonschema:"default=X-Client-Cert"`
}

// =============================================================================
// Resilience Configuration
// =============================================================================

// ResilienceConfig holds resilience pattern settings.
type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit" jsonschema:"description=HTTP rate limiting configuration."`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" jsonschema:"description=Circuit breaker configuration for outbound calls."`
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	// Enabled enables rate limiting
	Enabled bool `mapstructure:"enabled" jsonschema:"description=Enable HTTP rate limiting.,default=true"`

	// Rate is the limit in ulule/limiter formatted notation, e.g. "100-S"
	Rate string `mapstructure:"rate" jsonschema:"description=Rate limit in formatted notation (count-period).,default=100-S"`

	// ByEndpoint enables per-endpoint rates
	ByEndpoint bool `mapstructure:"by_endpoint" jsonschema:"description=Apply distinct rates per endpoint prefix.,default=false"`

	// EndpointRates maps endpoint prefixes to formatted rates
	EndpointRates map[string]string `mapstructure:"endpoint_rates" jsonschema:"description=Per-endpoint rate overrides keyed by path prefix."`

	// TrustForwardedFor keys clients by X-Forwarded-For when present
	TrustForwardedFor bool `mapstructure:"trust_forwarded_for" jsonschema:"description=Trust X-Forwarded-For for client identification.,default=true"`

	// ExcludePaths are path prefixes exempt from limiting
	ExcludePaths []string `mapstructure:"exclude_paths" jsonschema:"description=Path prefixes exempt from rate limiting."`

	// Headers configures rate limit response headers
	Headers RateLimitHeadersConfig `mapstructure:"headers" jsonschema:"description=Rate limit response header settings."`
}

// RateLimitHeadersConfig holds rate limit header settings.
type RateLimitHeadersConfig struct {
	Enabled         bool   `mapstructure:"enabled" jsonschema:"description=Emit rate limit headers.,default=true"`
	LimitHeader     string `mapstructure:"limit_header" jsonschema:"default=X-RateLimit-Limit"`
	RemainingHeader string `mapstructure:"remaining_header" jsonschema:"default=X-RateLimit-Remaining"`
	ResetHeader     string `mapstructure:"reset_header" jsonschema:"default=X-RateLimit-Reset"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaking
	Enabled bool `mapstructure:"enabled" jsonschema:"description=Enable circuit breakers.,default=true"`

	// Default holds settings applied to unnamed breakers
	Default CircuitBreakerSettings `mapstructure:"default" jsonschema:"description=Default breaker settings."`

	// Services holds per-breaker overrides
	Services map[string]CircuitBreakerSettings `mapstructure:"services" jsonschema:"description=Per-breaker setting overrides."`
}

// CircuitBreakerSettings holds settings for one breaker.
type CircuitBreakerSettings struct {
	MaxRequests      uint32        `mapstructure:"max_requests" jsonschema:"description=Requests allowed through a half-open breaker.,default=3"`
	Interval         time.Duration `mapstructure:"interval" jsonschema:"description=Cyclic period for clearing counts in the closed state.,default=60s"`
	Timeout          time.Duration `mapstructure:"timeout" jsonschema:"description=Open state duration before transitioning to half-open.,default=30s"`
	FailureThreshold int           `mapstructure:"failure_threshold" jsonschema:"description=Consecutive failures that trip the breaker.,default=5"`
	SuccessThreshold int           `mapstructure:"success_threshold" jsonschema:"description=Consecutive half-open successes that close the breaker.,default=2"`
	OnStateChange    bool          `mapstructure:"on_state_change" jsonschema:"description=Log breaker state transitions.,default=true"`
}

// =============================================================================
// Audit Configuration
// =============================================================================

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled bool         `mapstructure:"enabled" jsonschema:"description=Enable audit logging.,default=true"`
	Events  []string     `mapstructure:"events" jsonschema:"description=Event types to record.,default=AUTHN_DECISION"`
	Export  ExportConfig `mapstructure:"export" jsonschema:"description=Audit export configuration."`
}

// ExportConfig holds audit export configuration.
type ExportConfig struct {
	Stdout StdoutExportConfig `mapstructure:"stdout" jsonschema:"description=Stdout export settings."`
}

// StdoutExportConfig holds stdout export configuration.
type StdoutExportConfig struct {
	Enabled bool   `mapstructure:"enabled" jsonschema:"description=Export audit events to stdout.,default=true"`
	Format  string `mapstructure:"format" jsonschema:"description=Export format.,enum=json,enum=text,default=json"`
}

// =============================================================================
// Config Update Types
// =============================================================================

// ConfigUpdate represents a configuration update event.
type ConfigUpdate struct {
	// Version is the new configuration version
	Version string `json:"version"`
	// Config is the new configuration snapshot
	Config *Config `json:"config"`
	// Timestamp is when the update occurred
	Timestamp time.Time `json:"timestamp"`
	// Source indicates where the update came from
	Source string `json:"source"`
}
