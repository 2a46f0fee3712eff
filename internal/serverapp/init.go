package serverapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rest-graphql/internal/config"
	"rest-graphql/internal/fetcher"
	"rest-graphql/internal/gqlrequest"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/middleware"
	"rest-graphql/internal/observability"
	"rest-graphql/internal/schemaserve"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, metrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	a.logger.Info("connecting to upstream",
		slog.String("base_url", a.cfg.Upstream.BaseURL),
		slog.String("descriptor_dir", a.cfg.Resources.Dir),
	)
	upstream := fetcher.NewClient(a.cfg.Upstream.BaseURL, a.cfg.Upstream.Timeout)

	manager, schemaCancel, err := startSchemaManager(a.cfg, a.logger, upstream, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize schema manager: %w", err)
	}
	cleanup.push("schema manager", func(shutdownCtx context.Context) error {
		schemaCancel()
		return manager.Wait(shutdownCtx)
	})

	mux := buildRouter(a.cfg, a.logger, manager, meterProvider)
	handler := wrapHTTPHandler(a.cfg, a.logger, mux)

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	cleanup.push("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.metrics = metrics
	a.tracerProvider = tracerProvider
	a.manager = manager
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.GatewayMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	meterProvider, err := observability.InitMeterProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.InitGatewayMetrics()
	if err != nil {
		return nil, nil, err
	}

	logger.Info("metrics initialized",
		slog.String("service_name", cfg.Observability.ServiceName))
	return meterProvider, metrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracerProvider, err := observability.InitTracerProvider(observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP: observability.OTLPConfig{
			Endpoint: cfg.Observability.OTLP.Endpoint,
			Protocol: cfg.Observability.OTLP.Protocol,
			Insecure: cfg.Observability.OTLP.Insecure,
			Headers:  cfg.Observability.OTLP.Headers,
			Timeout:  cfg.Observability.OTLP.Timeout,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("tracing initialized",
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol))
	return tracerProvider, nil
}

func startSchemaManager(cfg *config.Config, logger *logging.Logger, upstream fetcher.Upstream, metrics *observability.GatewayMetrics) (*schemaserve.Manager, context.CancelFunc, error) {
	manager, err := schemaserve.NewManager(schemaserve.Config{
		DescriptorDir: cfg.Resources.Dir,
		Upstream:      upstream,
		Limits: gqlrequest.Limits{
			MaxDepth: cfg.Server.GraphQLMaxDepth,
			MaxCost:  cfg.Server.GraphQLMaxCost,
		},
		DefaultLimit: cfg.Server.GraphQLDefaultLimit,
		BatchSize:    cfg.Upstream.BatchSize,
		Logger:       logger,
		Metrics:      metrics,
		MinInterval:  cfg.Resources.RefreshMinInterval,
		MaxInterval:  cfg.Resources.RefreshMaxInterval,
		GraphiQL:     cfg.Server.GraphiQLEnabled,
	})
	if err != nil {
		return nil, nil, err
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	manager.Start(refreshCtx)
	return manager, cancel, nil
}

func buildRouter(cfg *config.Config, logger *logging.Logger, manager *schemaserve.Manager, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", manager.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/graphql", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if manager.CurrentSnapshot() == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}

	return mux
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	handler = middleware.Logging(logger)(handler)

	if cfg.Server.CORSEnabled {
		handler = middleware.CORS(middleware.CORSConfig{
			Enabled:        true,
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		})(handler)
	}

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server")
		logger.Info("HTTP instrumentation enabled")
	}

	return handler
}
