// Package schema provides JSON Schema generation for the service
// configuration file.
package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/your-org/certauth-service/internal/config"
)

// SchemaType represents the type of schema to generate.
type SchemaType string

const (
	SchemaTypeConfig SchemaType = "config"
)

// Generator generates JSON schemas for certauth-service configuration files.
type Generator struct {
	reflector *jsonschema.Reflector
}

// NewGenerator creates a new schema generator.
func NewGenerator() *Generator {
	r := &jsonschema.Reflector{
		ExpandedStruct: false,
		// Only mark fields as required if they have explicit jsonschema:"required" tag.
		// All other fields have defaults in setDefaults.
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			// Handle time.Duration
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Duration string (e.g., '30s', '5m', '1h')",
					Examples:    []interface{}{"10s", "5m", "1h", "30s"},
				}
			}
			return nil
		},
	}

	return &Generator{reflector: r}
}

// Generate generates a JSON schema for the specified type.
func (g *Generator) Generate(schemaType SchemaType) ([]byte, error) {
	schema := g.generateConfigSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}

	output := g.postProcessJSON(string(data))

	return []byte(output), nil
}

// generateConfigSchema generates the schema for config.yaml.
func (g *Generator) generateConfigSchema() *jsonschema.Schema {
	schema := g.reflector.Reflect(&config.Config{})
	g.processSchema(schema)

	schema.Title = "Certauth Service Configuration"
	schema.Description = "Configuration for the certificate authentication service.\n\n" +
		"Properties marked with x-runtime-updatable: true are applied on file\n" +
		"change without a restart; everything else needs a restart."
	schema.ID = "https://github.com/your-org/certauth-service/schemas/config.schema.json"

	return schema
}

// processSchema recursively processes schema definitions.
func (g *Generator) processSchema(schema *jsonschema.Schema) {
	if schema == nil {
		return
	}

	if schema.Definitions != nil {
		for _, def := range schema.Definitions {
			g.processSchemaProperties(def)
		}
	}

	g.processSchemaProperties(schema)
}

func (g *Generator) processSchemaProperties(schema *jsonschema.Schema) {
	if schema == nil || schema.Properties == nil {
		return
	}

	newProps := jsonschema.NewProperties()
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		value := pair.Value

		snakeKey := toSnakeCase(key)
		newProps.Set(snakeKey, value)

		if value != nil {
			g.processSchemaProperties(value)
		}
	}
	schema.Properties = newProps

	if len(schema.Required) > 0 {
		newRequired := make([]string, len(schema.Required))
		for i, req := range schema.Required {
			newRequired[i] = toSnakeCase(req)
		}
		schema.Required = newRequired
	}
}

// postProcessJSON fixes PascalCase references in the JSON.
func (g *Generator) postProcessJSON(jsonStr string) string {
	result := jsonStr

	for _, name := range configTypeNames() {
		snake := toSnakeCase(name)
		result = strings.ReplaceAll(result, `"#/$defs/`+name+`"`, `"#/$defs/`+snake+`"`)
		result = strings.ReplaceAll(result, `"`+name+`":`, `"`+snake+`":`)
	}

	// Handle external package types
	result = strings.ReplaceAll(result,
		`"#/$defs/github.com/your-org/certauth-service/pkg/logger.Config"`,
		`"#/$defs/logger_config"`)
	result = strings.ReplaceAll(result,
		`"github.com/your-org/certauth-service/pkg/logger.Config":`,
		`"logger_config":`)
	result = strings.ReplaceAll(result,
		`"#/$defs/github.com/your-org/certauth-service/pkg/tracing.Config"`,
		`"#/$defs/tracing_config"`)
	result = strings.ReplaceAll(result,
		`"github.com/your-org/certauth-service/pkg/tracing.Config":`,
		`"tracing_config":`)

	return result
}

func configTypeNames() []string {
	return []string{
		"Config", "ServerConfig", "HTTPServerConfig", "TLSServerConfig",
		"ErrorResponseConfig", "EndpointsConfig", "AuthnConfig",
		"ExtractionConfig", "XFCCConfig", "CertHeaderConfig",
		"TrustStoreConfig", "RevocationConfig", "HooksConfig", "CELHookConfig",
		"ResilienceConfig", "RateLimitConfig", "RateLimitHeadersConfig",
		"CircuitBreakerConfig", "CircuitBreakerSettings",
		"AuditConfig", "ExportConfig", "StdoutExportConfig",
		"SensitiveDataConfig", "PartialMaskConfig", "HealthConfig",
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case.
// Handles initialisms like TLS, CRL, and CEL correctly.
func toSnakeCase(s string) string {
	special := map[string]string{
		"HTTPServerConfig":  "http_server_config",
		"TLSServerConfig":   "tls_server_config",
		"CELHookConfig":     "cel_hook_config",
		"XFCCConfig":        "xfcc_config",
		"XFCC":              "xfcc",
		"CEL":               "cel",
		"TLS":               "tls",
		"CRLFiles":          "crl_files",
		"TrustedProxyCIDRs": "trusted_proxy_cidrs",
		"URL":               "url",
		"ID":                "id",
	}

	if val, ok := special[s]; ok {
		return val
	}

	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			// Underscore before an uppercase run start or after a lowercase
			if prev >= 'a' && prev <= 'z' {
				result.WriteByte('_')
			} else if i+1 < len(s) {
				next := rune(s[i+1])
				if next >= 'a' && next <= 'z' && prev >= 'A' && prev <= 'Z' {
					result.WriteByte('_')
				}
			}
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // toLower
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// GetAvailableSchemas returns list of available schema types.
func GetAvailableSchemas() []SchemaType {
	return []SchemaType{SchemaTypeConfig}
}

// ParseSchemaType parses a string to SchemaType.
func ParseSchemaType(s string) (SchemaType, bool) {
	switch strings.ToLower(s) {
	case "config":
		return SchemaTypeConfig, true
	default:
		return "", false
	}
}
