package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/certauth-service/internal/app"
	"github.com/your-org/certauth-service/internal/config"
	"github.com/your-org/certauth-service/internal/help"
	"github.com/your-org/certauth-service/internal/schema"
	"github.com/your-org/certauth-service/pkg/logger"
)

const (
	appName      = "certauth-service"
	envVarPrefix = "CERTAUTH"
	docsURL      = "https://github.com/your-org/certauth-service"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
	// GitCommit is set during build
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show detailed help")
	showHelpEnv := flag.Bool("help-env", false, "Show all environment variables")
	schemaType := flag.String("schema", "", "Generate JSON Schema (config)")
	schemaOutput := flag.String("schema-output", "", "Output file for schema (default: stdout)")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	helpGen := help.NewGenerator(help.AppInfo{
		Name:        appName,
		Description: "Client certificate authentication service",
		Version:     Version,
		BuildTime:   BuildTime,
		GitCommit:   GitCommit,
		DocsURL:     docsURL,
	}, envVarPrefix)
	helpGen.ExtractEnvVars(config.Config{})

	if *showVersion {
		fmt.Print(helpGen.PrintVersion())
		os.Exit(0)
	}
	if *showHelp {
		fmt.Print(helpGen.PrintExtendedHelp())
		os.Exit(0)
	}
	if *showHelpEnv {
		fmt.Print(helpGen.PrintEnvVars())
		os.Exit(0)
	}
	if *schemaType != "" {
		generateSchema(*schemaType, *schemaOutput)
		os.Exit(0)
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("configuration is valid")
		os.Exit(0)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting certauth-service",
		logger.String("version", Version),
		logger.String("commit", GitCommit),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(cfg,
		app.WithBuildInfo(app.BuildInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
		}),
		app.WithLoader(loader),
	)
	if err != nil {
		logger.Fatal("failed to create application", logger.Err(err))
	}

	if err := application.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize application", logger.Err(err))
	}

	if err := application.Start(); err != nil {
		logger.Fatal("failed to start application", logger.Err(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", logger.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", logger.Err(err))
	}

	logger.Info("certauth-service stopped")
}

func generateSchema(schemaType, output string) {
	st, ok := schema.ParseSchemaType(schemaType)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown schema type: %s (available: config)\n", schemaType)
		os.Exit(1)
	}

	gen := schema.NewGenerator()
	data, err := gen.Generate(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate schema: %v\n", err)
		os.Exit(1)
	}

	if output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}
