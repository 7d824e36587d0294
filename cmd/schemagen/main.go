// Package main provides a standalone tool to generate the configuration
// JSON Schema.
//
// Usage:
//
//	go run ./cmd/schemagen [config]
//
// Example:
//
//	go run ./cmd/schemagen config > configs/config.schema.json
package main

import (
	"fmt"
	"os"

	"github.com/your-org/certauth-service/internal/schema"
)

func main() {
	schemaType := "config" // default
	if len(os.Args) > 1 {
		schemaType = os.Args[1]
	}

	st, ok := schema.ParseSchemaType(schemaType)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown schema type: %s\n", schemaType)
		fmt.Fprintf(os.Stderr, "Available types: config\n")
		os.Exit(1)
	}

	gen := schema.NewGenerator()
	data, err := gen.Generate(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(data))
}
