package help

import (
	"fmt"
	"strings"
)

// AppInfo contains application metadata.
type AppInfo struct {
	Name        string
	Description string
	Version     string
	BuildTime   string
	GitCommit   string
	DocsURL     string
}

// Generator generates help text for the application.
type Generator struct {
	appInfo      AppInfo
	envVarPrefix string
	envVars      []EnvVar
}

// NewGenerator creates a new help generator.
func NewGenerator(appInfo AppInfo, envVarPrefix string) *Generator {
	return &Generator{
		appInfo:      appInfo,
		envVarPrefix: envVarPrefix,
	}
}

// SetEnvVars sets the environment variables extracted from config.
func (g *Generator) SetEnvVars(vars []EnvVar) {
	g.envVars = vars
}

// ExtractEnvVars extracts environment variables from a config struct.
func (g *Generator) ExtractEnvVars(cfg interface{}) {
	extractor := NewEnvVarExtractor(g.envVarPrefix)
	g.envVars = extractor.Extract(cfg)
}

// PrintVersion prints version information.
func (g *Generator) PrintVersion() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", g.appInfo.Name, g.appInfo.Version))
	sb.WriteString(fmt.Sprintf("  Build time: %s\n", g.appInfo.BuildTime))
	sb.WriteString(fmt.Sprintf("  Git commit: %s\n", g.appInfo.GitCommit))
	return sb.String()
}

// PrintUsage prints basic usage information.
func (g *Generator) PrintUsage() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage: %s [OPTIONS]\n\n", g.appInfo.Name))
	sb.WriteString(fmt.Sprintf("%s\n\n", g.appInfo.Description))
	sb.WriteString("Options:\n")
	sb.WriteString("  See below for available flags.\n\n")
	sb.WriteString("Use --help for detailed configuration documentation\n")
	return sb.String()
}

// PrintEnvVars prints only the environment variables documentation.
func (g *Generator) PrintEnvVars() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s - Environment Variables\n", strings.ToUpper(g.appInfo.Name)))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(fmt.Sprintf("Prefix: %s\n", g.envVarPrefix))
	sb.WriteString(fmt.Sprintf("Total variables: %d\n\n", len(g.envVars)))

	sb.WriteString("Pattern: " + g.envVarPrefix + "_<SECTION>_<SUBSECTION>_<KEY>\n\n")

	sb.WriteString("Notes:\n")
	sb.WriteString("  - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("  - Nested keys use underscore as separator\n")
	sb.WriteString("  - Array indices use numeric suffix (0, 1, 2...)\n")
	sb.WriteString("  - Boolean values: true, false, 1, 0\n")
	sb.WriteString("  - Duration values: 10s, 5m, 1h, 100ms\n\n")

	sb.WriteString(strings.Repeat("-", 80) + "\n")

	// Grouped env vars
	if len(g.envVars) > 0 {
		sb.WriteString(FormatEnvVarsGrouped(g.envVars))
	}

	return sb.String()
}

// PrintExtendedHelp prints detailed help with all configuration options.
func (g *Generator) PrintExtendedHelp() string {
	var sb strings.Builder

	// Header
	sb.WriteString(g.header())
	sb.WriteString("\n")

	// Description section
	sb.WriteString("DESCRIPTION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.Description))

	// Usage section
	sb.WriteString("USAGE\n")
	sb.WriteString(fmt.Sprintf("    %s [OPTIONS]\n\n", g.appInfo.Name))

	// Options section
	sb.WriteString("OPTIONS\n")
	sb.WriteString(g.optionsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Configuration methods section
	sb.WriteString("CONFIGURATION METHODS\n\n")
	sb.WriteString(g.configMethodsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Environment variables section (brief)
	sb.WriteString("ENVIRONMENT VARIABLES\n\n")
	sb.WriteString("    Pattern: " + g.envVarPrefix + "_<SECTION>_<SUBSECTION>_<KEY>\n\n")
	sb.WriteString("    Notes:\n")
	sb.WriteString("    - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("    - Nested keys use underscore as separator\n")
	sb.WriteString("    - Array indices use numeric suffix (0, 1, 2...)\n")
	sb.WriteString("    - Boolean values: true, false, 1, 0\n")
	sb.WriteString("    - Duration values: 10s, 5m, 1h, 100ms\n\n")
	sb.WriteString(fmt.Sprintf("    Use --help-env to see all %d environment variables with descriptions.\n\n", len(g.envVars)))

	// Separator
	sb.WriteString(g.separator())

	// Certificate sources section
	sb.WriteString("CERTIFICATE SOURCES\n\n")
	sb.WriteString(g.certificateSourcesSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Authentication policy section
	sb.WriteString("AUTHENTICATION POLICY\n\n")
	sb.WriteString(g.authnPolicySection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Revocation checking section
	sb.WriteString("REVOCATION CHECKING\n\n")
	sb.WriteString(g.revocationSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// JSON Schema generation section
	sb.WriteString("JSON SCHEMA GENERATION\n\n")
	sb.WriteString(g.schemaGenerationSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Examples section
	sb.WriteString("EXAMPLES\n\n")
	sb.WriteString(g.examplesSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Files and signals section
	sb.WriteString("FILES\n\n")
	sb.WriteString(g.filesSection())
	sb.WriteString("\n")

	sb.WriteString("SIGNALS\n\n")
	sb.WriteString("    SIGTERM, SIGINT           Graceful shutdown (configurable timeout)\n\n")

	sb.WriteString("HEALTH ENDPOINTS\n\n")
	sb.WriteString("    GET /health               Overall health status\n")
	sb.WriteString("    GET /ready                Readiness probe\n")
	sb.WriteString("    GET /live                 Liveness probe\n")
	sb.WriteString("    GET /metrics              Prometheus metrics\n\n")

	// Separator
	sb.WriteString(g.separator())

	// Version section
	sb.WriteString("VERSION\n")
	sb.WriteString(fmt.Sprintf("    %s (%s)\n", g.appInfo.Version, g.appInfo.GitCommit))
	sb.WriteString(fmt.Sprintf("    Built: %s\n\n", g.appInfo.BuildTime))

	sb.WriteString("DOCUMENTATION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.DocsURL))

	return sb.String()
}

// header generates the header box.
func (g *Generator) header() string {
	width := 80
	title := strings.ToUpper(g.appInfo.Name)
	subtitle := g.appInfo.Description

	// Truncate if needed
	if len(subtitle) > width-4 {
		subtitle = subtitle[:width-7] + "..."
	}

	var sb strings.Builder
	sb.WriteString("\n")

	// Top border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	// Title centered
	titlePadding := (width - 2 - len(title)) / 2
	sb.WriteString("|" + strings.Repeat(" ", titlePadding) + title + strings.Repeat(" ", width-2-titlePadding-len(title)) + "|\n")

	// Subtitle centered
	subtitlePadding := (width - 2 - len(subtitle)) / 2
	sb.WriteString("|" + strings.Repeat(" ", subtitlePadding) + subtitle + strings.Repeat(" ", width-2-subtitlePadding-len(subtitle)) + "|\n")

	// Bottom border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	return sb.String()
}

// separator generates a section separator line.
func (g *Generator) separator() string {
	return strings.Repeat("-", 80) + "\n\n"
}

// optionsSection generates the options section.
func (g *Generator) optionsSection() string {
	return `    --config <path>       Path to YAML configuration file
    --version             Show version information
    --help, -h            Show this help message
    --help-env            Show all environment variables with descriptions
    --schema <type>       Generate JSON Schema (config)
    --schema-output <file> Output file for schema (default: stdout)
    --validate            Validate configuration and exit
`
}

// configMethodsSection generates the configuration methods section.
func (g *Generator) configMethodsSection() string {
	return fmt.Sprintf(`    Configuration can be provided through multiple sources (in order of priority):

    1. COMMAND LINE FLAGS
       Highest priority. Override all other configuration.

       Example:
         %s --config /etc/certauth/config.yaml

    2. ENVIRONMENT VARIABLES
       Middle priority. Override config file values.

       Pattern: %s_<SECTION>_<SUBSECTION>_<KEY>

       Examples:
         %s_SERVER_HTTP_ADDR=:8443
         %s_SERVER_HTTP_READ_TIMEOUT=30s
         %s_AUTHN_REVOCATION_MODE=entire_chain
         %s_TRUST_STORE_PATHS_0=/etc/certauth/roots.pem
         %s_EXTRACTION_XFCC_ENABLED=true
         %s_LOGGING_LEVEL=debug

    3. CONFIGURATION FILE (YAML)
       Lowest priority. Base configuration.

       Default paths searched:
         ./config.yaml
         ./configs/config.yaml
         /etc/certauth/config.yaml
`, g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}

// certificateSourcesSection generates the certificate sources section.
func (g *Generator) certificateSourcesSection() string {
	return `    The client certificate can reach the service three ways, checked in order:

    1. DIRECT TLS (server.http.tls.enabled=true)
       The service terminates TLS itself and requests (but never verifies)
       the client certificate during the handshake. The decision engine
       owns the trust decision.

    2. X-FORWARDED-CLIENT-CERT HEADER (extraction.xfcc.enabled=true)
       A fronting proxy (e.g. Envoy) forwards the certificate in the XFCC
       header. Only accepted from trusted proxy networks
       (extraction.trusted_proxy_cidrs).

    3. CUSTOM CERTIFICATE HEADER (extraction.cert_header.enabled=true)
       A proxy forwards the certificate as URL-escaped PEM or base64 DER
       in a configurable header. Same trusted proxy gating as XFCC.

    Callers can also POST the certificate directly as base64 DER in the
    request body of /v1/authenticate.
`
}

// authnPolicySection generates the authentication policy section.
func (g *Generator) authnPolicySection() string {
	return `    The policy gate decides which certificate kinds are even considered:

    1. SELF-SIGNED (authn.allow_self_signed=true)
       The certificate itself is the trust anchor. Chain building treats
       the certificate as its own root.

    2. CA-CHAINED (authn.allow_chained=true)
       The certificate must chain to a root in the trust store
       (trust_store.paths, trust_store.use_system_roots).

    A certificate of a kind the gate does not allow is rejected before
    any chain work happens. Additional knobs:

      authn.ignore_time_validity      Accept expired / not-yet-valid certs
      authn.require_client_auth_eku   Require the clientAuth EKU
      hooks.cel.expression            CEL expression over the parsed cert
`
}

// revocationSection generates the revocation checking section.
func (g *Generator) revocationSection() string {
	return `    1. NO_CHECK (authn.revocation_mode=no_check)
       Revocation is never consulted. Fastest, least strict.

    2. END_CERT (authn.revocation_mode=end_cert)
       Only the presented leaf certificate is checked.

    3. ENTIRE_CHAIN (authn.revocation_mode=entire_chain)
       Every certificate in the built chain is checked.

    Revocation evidence comes from two checkers:

      OFFLINE   Local CRL files (revocation.crl_files). Loaded at startup.
      ONLINE    CRL distribution points and OCSP from the certificate
                itself (revocation.online_enabled). Outbound fetches are
                guarded by the circuit breaker (resilience.circuit_breaker).

    An unknown revocation status fails closed unless
    authn.ignore_revocation_unknown=true (self-signed certificates always
    tolerate unknown status for the end cert).
`
}

// schemaGenerationSection generates the JSON schema generation section.
func (g *Generator) schemaGenerationSection() string {
	return fmt.Sprintf(`    Generate a JSON schema for IDE autocomplete and validation:

    # Generate config schema
    %s --schema config > config.schema.json

    # Write to specific file
    %s --schema config --schema-output /etc/certauth/config.schema.json

    Use in YAML files (VS Code, JetBrains):
    # yaml-language-server: $schema=./config.schema.json
`, g.appInfo.Name, g.appInfo.Name)
}

// examplesSection generates the examples section.
func (g *Generator) examplesSection() string {
	return fmt.Sprintf(`    # Start with config file
    %s --config /etc/certauth/config.yaml

    # Validate configuration
    %s --config config.yaml --validate

    # Override with environment variables
    %s_SERVER_HTTP_ADDR=:9443 \
    %s_LOGGING_LEVEL=debug \
    %s --config config.yaml

    # Generate schema
    %s --schema config > config.schema.json

    # Docker with environment variables
    docker run -e %s_SERVER_HTTP_ADDR=:8443 \
               -e %s_TRUST_STORE_PATHS_0=/etc/certauth/roots.pem \
               %s:latest
`, g.appInfo.Name, g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.appInfo.Name,
		g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.appInfo.Name)
}

// filesSection generates the files section.
func (g *Generator) filesSection() string {
	return `    /etc/certauth/config.yaml    Default configuration file
    /etc/certauth/roots.pem      Trust anchor bundle (trust_store.paths)
    /etc/certauth/crl/           CRL files for offline revocation checks
    /etc/certauth/tls/           Server certificate and key (TLS mode)
`
}
