package serverapp

import (
	"log/slog"

	"rest-graphql/internal/config"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/observability"
)

// InitLogger builds the process logger and, when configured, the OTLP
// logger provider that exports its records.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	loggerProvider, err := observability.InitLoggerProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		OTLP: observability.OTLPConfig{
			Endpoint: cfg.Observability.OTLP.Endpoint,
			Protocol: cfg.Observability.OTLP.Protocol,
			Insecure: cfg.Observability.OTLP.Insecure,
			Headers:  cfg.Observability.OTLP.Headers,
			Timeout:  cfg.Observability.OTLP.Timeout,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	// Rebuild the logger so records flow to both stdout and OTLP.
	logger = logging.NewLogger(logging.Config{
		Level:          cfg.Observability.Logging.Level,
		Format:         cfg.Observability.Logging.Format,
		LoggerProvider: loggerProvider.Provider(),
	})
	slog.SetDefault(logger.Logger)

	return logger, loggerProvider, nil
}
