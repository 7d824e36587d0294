package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ValidationError contains detailed information about a validation error.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func (e ValidationError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s\n    - %s", e.Field, e.Message, strings.Join(e.Details, "\n    - "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ConfigValidator validates configuration.
type ConfigValidator struct {
	errors ValidationErrors
}

// NewConfigValidator creates a new ConfigValidator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate validates the full configuration. Invalid configuration is
// rejected before a snapshot is published so a bad reload never reaches
// the decision engine.
func (v *ConfigValidator) Validate(cfg *Config) error {
	v.errors = nil

	v.validateAuthn(&cfg.Authn)
	v.validateRevocation(cfg)
	v.validateServer(&cfg.Server)
	v.validateHooks(&cfg.Hooks)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *ConfigValidator) validateAuthn(cfg *AuthnConfig) {
	if len(cfg.AllowedCertificateTypes) == 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   "authn.allowed_certificate_types",
			Message: "at least one certificate type must be permitted",
		})
	}
	for _, t := range cfg.AllowedCertificateTypes {
		switch t {
		case "self_signed", "chained":
		default:
			v.errors = append(v.errors, ValidationError{
				Field:   "authn.allowed_certificate_types",
				Message: fmt.Sprintf("unknown certificate type %q", t),
				Details: []string{"valid values: self_signed, chained"},
			})
		}
	}

	switch cfg.RevocationFlag {
	case "end_certificate_only", "entire_chain", "exclude_root":
	default:
		v.errors = append(v.errors, ValidationError{
			Field:   "authn.revocation_flag",
			Message: fmt.Sprintf("unknown revocation flag %q", cfg.RevocationFlag),
			Details: []string{"valid values: end_certificate_only, entire_chain, exclude_root"},
		})
	}

	switch cfg.RevocationMode {
	case "no_check", "online", "online_required", "offline":
	default:
		v.errors = append(v.errors, ValidationError{
			Field:   "authn.revocation_mode",
			Message: fmt.Sprintf("unknown revocation mode %q", cfg.RevocationMode),
			Details: []string{"valid values: no_check, online, online_required, offline"},
		})
	}

	if cfg.ClaimsIssuerLabel == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   "authn.claims_issuer_label",
			Message: "claims issuer label must not be empty",
		})
	}

	if cfg.ChainTimeout <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   "authn.chain_timeout",
			Message: "chain timeout must be positive",
		})
	}

	for _, tp := range cfg.PinnedThumbprints {
		if _, err := hex.DecodeString(tp); err != nil || len(tp) != 64 {
			v.errors = append(v.errors, ValidationError{
				Field:   "authn.pinned_thumbprints",
				Message: fmt.Sprintf("thumbprint %q is not a hex SHA-256 digest", tp),
			})
		}
	}
}

func (v *ConfigValidator) validateRevocation(cfg *Config) {
	if cfg.Authn.RevocationMode == "offline" && len(cfg.Revocation.CRLFiles) == 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   "revocation.crl_files",
			Message: "offline revocation mode requires at least one CRL file",
		})
	}
	if cfg.Revocation.FetchTimeout <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   "revocation.fetch_timeout",
			Message: "fetch timeout must be positive",
		})
	}
}

func (v *ConfigValidator) validateServer(cfg *ServerConfig) {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.CertFile == "" || cfg.HTTP.TLS.KeyFile == "" {
			v.errors = append(v.errors, ValidationError{
				Field:   "server.http.tls",
				Message: "cert_file and key_file are required when TLS is enabled",
			})
		}
	}
}

func (v *ConfigValidator) validateHooks(cfg *HooksConfig) {
	if cfg.CEL.Enabled && strings.TrimSpace(cfg.CEL.Expression) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   "hooks.cel.expression",
			Message: "expression is required when the CEL hook is enabled",
		})
	}
	if cfg.CEL.CacheSize < 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   "hooks.cel.cache_size",
			Message: "cache size must not be negative",
		})
	}
}
