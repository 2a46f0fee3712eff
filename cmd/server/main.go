package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"rest-graphql/internal/config"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/observability"
	"rest-graphql/internal/restspec"
	"rest-graphql/internal/serverapp"
)

var (
	// Version and Commit are set at build time via
	// -ldflags "-X main.Version=... -X main.Commit=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	pflag.Bool("version", false, "Print version and exit")
	pflag.Bool("check", false, "Validate configuration and resource descriptors, then exit")

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load configuration", err)
	}

	if flagSet("version") {
		fmt.Printf("rest-graphql %s (%s)\n", Version, Commit)
		return
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	if !reportValidation(cfg) {
		fail("configuration validation failed", nil)
	}

	if flagSet("check") {
		if err := checkDescriptors(cfg); err != nil {
			fail("descriptor check failed", err)
		}
		return
	}

	logger, loggerProvider, err := serverapp.InitLogger(cfg)
	if err != nil {
		fail("failed to initialize logging", err)
	}

	if err := runGateway(cfg, logger, loggerProvider); err != nil {
		logger.Error("gateway stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

// reportValidation logs every validation warning and error and reports
// whether the configuration is usable.
func reportValidation(cfg *config.Config) bool {
	result := cfg.Validate()
	for _, warn := range result.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	for _, err := range result.Errors {
		slog.Error("configuration error",
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.String("hint", err.Hint),
		)
	}
	return !result.HasErrors()
}

// checkDescriptors is the --check preflight: it parses every resource
// descriptor in the configured directory without starting the server.
func checkDescriptors(cfg *config.Config) error {
	registry, err := restspec.LoadDir(cfg.Resources.Dir)
	if err != nil {
		return err
	}
	names := registry.Names()
	fmt.Printf("%d resource descriptor(s) in %s are valid\n", len(names), cfg.Resources.Dir)
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func runGateway(cfg *config.Config, logger *logging.Logger, loggerProvider *observability.LoggerProvider) error {
	app, err := serverapp.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	app.AttachLoggerProvider(loggerProvider)

	if err := app.Init(context.Background()); err != nil {
		return err
	}

	logger.Info("gateway starting",
		slog.String("version", Version),
		slog.String("descriptor_dir", cfg.Resources.Dir),
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.Int("port", cfg.Server.Port),
	)

	serverErrors, err := app.Start()
	if err != nil {
		_ = stopGateway(app, cfg)
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	reason, waitErr := app.WaitForStop(stop, serverErrors)
	logger.Info("draining gateway", slog.String("reason", reason))

	if shutdownErr := stopGateway(app, cfg); waitErr == nil {
		waitErr = shutdownErr
	}
	return waitErr
}

func stopGateway(app *serverapp.App, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return app.Shutdown(ctx)
}

func flagSet(name string) bool {
	value, err := pflag.CommandLine.GetBool(name)
	return err == nil && value
}

func fail(message string, err error) {
	if err != nil {
		slog.Error(message, slog.String("error", err.Error()))
	} else {
		slog.Error(message)
	}
	os.Exit(1)
}
