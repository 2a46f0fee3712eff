// Package serverapp owns the gateway server lifecycle: telemetry,
// schema management, routing, and graceful shutdown.
package serverapp

import (
	"fmt"
	"net/http"
	"sync"

	"rest-graphql/internal/config"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/observability"
	"rest-graphql/internal/schemaserve"
)

// App owns the runtime resources of the gateway server.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider
	meterProvider  *observability.MeterProvider
	tracerProvider *observability.TracerProvider
	metrics        *observability.GatewayMetrics

	manager *schemaserve.Manager

	handler    http.Handler
	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional OTLP logger provider so it
// is shut down with the rest of the app.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// SchemaManager exposes the active schema manager, mostly for tests.
func (a *App) SchemaManager() *schemaserve.Manager {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.manager
}
