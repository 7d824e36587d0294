package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/your-org/certauth-service/pkg/logger"
	"github.com/your-org/certauth-service/pkg/tracing"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig               `mapstructure:"server"`
	Endpoints     EndpointsConfig            `mapstructure:"endpoints"`
	Authn         AuthnConfig                `mapstructure:"authn"`
	Extraction    ExtractionConfig           `mapstructure:"extraction"`
	TrustStore    TrustStoreConfig           `mapstructure:"trust_store"`
	Revocation    RevocationConfig           `mapstructure:"revocation"`
	Hooks         HooksConfig                `mapstructure:"hooks"`
	Resilience    ResilienceConfig           `mapstructure:"resilience"`
	Audit         AuditConfig                `mapstructure:"audit"`
	SensitiveData logger.SensitiveDataConfig `mapstructure:"sensitive_data"`
	Logging       logger.Config              `mapstructure:"logging"`
	Tracing       tracing.Config             `mapstructure:"tracing"`
	Health        HealthConfig               `mapstructure:"health"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	HTTP HTTPServerConfig `mapstructure:"http"`
}

// HTTPServerConfig holds HTTP server settings.
type HTTPServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	TLS             TLSServerConfig `mapstructure:"tls"`
	ErrorResponse   ErrorResponseConfig `mapstructure:"error_response"`
}

// Error response formats.
const (
	ErrorFormatJSON    = "json"
	ErrorFormatText    = "text"
	ErrorFormatHTML    = "html"
	ErrorFormatRFC7807 = "rfc7807"
	ErrorFormatEnvoy   = "envoy"
	ErrorFormatCustom  = "custom"
)

// ErrorResponseConfig controls how transport-level errors are rendered.
// Outcome responses always use the structured JSON body; this only shapes
// bad-request and internal-error replies.
type ErrorResponseConfig struct {
	Format           string            `mapstructure:"format" jsonschema:"description=Error body format.,enum=json,enum=text,enum=html,enum=rfc7807,enum=envoy,enum=custom,default=json"`
	IncludeReason    bool              `mapstructure:"include_reason" jsonschema:"description=Include the failure reason in error bodies.,default=true"`
	IncludeRequestID bool              `mapstructure:"include_request_id" jsonschema:"description=Include the request ID in error bodies.,default=true"`
	IncludePath      bool              `mapstructure:"include_path" jsonschema:"description=Include the request path and method in error bodies.,default=false"`
	IncludeTimestamp bool              `mapstructure:"include_timestamp" jsonschema:"description=Include a timestamp in error bodies.,default=false"`
	ContentType      string            `mapstructure:"content_type" jsonschema:"description=Content type for the custom format."`
	Headers          map[string]string `mapstructure:"headers" jsonschema:"description=Extra headers set on error responses."`
	CustomTemplates  map[string]string `mapstructure:"custom_templates" jsonschema:"description=Per-status-code templates for the custom format."`
	DefaultTemplate  string            `mapstructure:"default_template" jsonschema:"description=Fallback template for the custom format."`
}

// TLSServerConfig holds server-side TLS settings. When enabled the server
// requests a client certificate during the handshake and hands the peer
// certificate to the decision engine without transport-level verification;
// the engine owns the trust decision.
type TLSServerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// EndpointsConfig holds configurable endpoint paths.
type EndpointsConfig struct {
	// Authenticate is the certificate authentication endpoint
	Authenticate string `mapstructure:"authenticate"`

	// Health endpoints
	Health string `mapstructure:"health"`
	Ready  string `mapstructure:"ready"`
	Live   string `mapstructure:"live"`

	// Metrics endpoint
	Metrics string `mapstructure:"metrics"`
}

// HealthConfig holds health check configuration.
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/certauth")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	// Read environment variables
	v.SetEnvPrefix("CERTAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.enabled", true)
	v.SetDefault("server.http.addr", ":8443")
	v.SetDefault("server.http.read_timeout", "10s")
	v.SetDefault("server.http.write_timeout", "10s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")
	v.SetDefault("server.http.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.http.tls.enabled", false)
	v.SetDefault("server.http.error_response.format", "json")
	v.SetDefault("server.http.error_response.include_reason", true)
	v.SetDefault("server.http.error_response.include_request_id", true)

	// Endpoints defaults (configurable paths)
	v.SetDefault("endpoints.authenticate", "/v1/authenticate")
	v.SetDefault("endpoints.health", "/health")
	v.SetDefault("endpoints.ready", "/ready")
	v.SetDefault("endpoints.live", "/live")
	v.SetDefault("endpoints.metrics", "/metrics")

	// Authentication policy defaults
	v.SetDefault("authn.allowed_certificate_types", []string{"chained"})
	v.SetDefault("authn.revocation_flag", "exclude_root")
	v.SetDefault("authn.revocation_mode", "online")
	v.SetDefault("authn.validate_certificate_use", true)
	v.SetDefault("authn.validate_validity_period", true)
	v.SetDefault("authn.claims_issuer_label", "certificate")
	v.SetDefault("authn.chain_timeout", "10s")

	// Extraction defaults
	v.SetDefault("extraction.xfcc.enabled", false)
	v.SetDefault("extraction.xfcc.header", "X-Forwarded-Client-Cert")
	v.SetDefault("extraction.cert_header.enabled", false)
	v.SetDefault("extraction.cert_header.name", "X-Client-Cert")

	// Trust store defaults
	v.SetDefault("trust_store.use_system_roots", true)

	// Revocation defaults
	v.SetDefault("revocation.fetch_timeout", "5s")
	v.SetDefault("revocation.breaker_name", "revocation")

	// Hook defaults
	v.SetDefault("hooks.cel.enabled", false)
	v.SetDefault("hooks.cel.cache_size", 100)

	// Resilience defaults
	v.SetDefault("resilience.rate_limit.enabled", true)
	v.SetDefault("resilience.rate_limit.rate", "100-S")
	v.SetDefault("resilience.rate_limit.trust_forwarded_for", true)
	v.SetDefault("resilience.rate_limit.headers.enabled", true)
	v.SetDefault("resilience.rate_limit.headers.limit_header", "X-RateLimit-Limit")
	v.SetDefault("resilience.rate_limit.headers.remaining_header", "X-RateLimit-Remaining")
	v.SetDefault("resilience.rate_limit.headers.reset_header", "X-RateLimit-Reset")

	v.SetDefault("resilience.circuit_breaker.enabled", true)
	v.SetDefault("resilience.circuit_breaker.default.max_requests", 3)
	v.SetDefault("resilience.circuit_breaker.default.interval", "60s")
	v.SetDefault("resilience.circuit_breaker.default.timeout", "30s")
	v.SetDefault("resilience.circuit_breaker.default.failure_threshold", 5)
	v.SetDefault("resilience.circuit_breaker.default.success_threshold", 2)
	v.SetDefault("resilience.circuit_breaker.default.on_state_change", true)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.events", []string{"AUTHN_DECISION"})
	v.SetDefault("audit.export.stdout.enabled", true)
	v.SetDefault("audit.export.stdout.format", "json")

	// Sensitive data defaults
	v.SetDefault("sensitive_data.enabled", true)
	v.SetDefault("sensitive_data.mask_value", "***MASKED***")
	v.SetDefault("sensitive_data.fields", []string{
		"password", "secret", "token", "api_key", "apikey",
		"private_key", "credential", "credentials", "passwd", "pwd",
	})
	v.SetDefault("sensitive_data.headers", []string{
		"Authorization", "X-API-Key", "Cookie", "Set-Cookie",
		"Proxy-Authorization",
	})
	v.SetDefault("sensitive_data.mask_serials", false)
	v.SetDefault("sensitive_data.partial_mask.enabled", false)
	v.SetDefault("sensitive_data.partial_mask.show_first", 4)
	v.SetDefault("sensitive_data.partial_mask.show_last", 4)
	v.SetDefault("sensitive_data.partial_mask.min_length", 12)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_caller", true)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "certauth-service")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", "5s")
	v.SetDefault("tracing.export_timeout", "30s")

	// Health defaults
	v.SetDefault("health.check_interval", "10s")
	v.SetDefault("health.timeout", "5s")
}
