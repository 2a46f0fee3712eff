// Package config loads and validates gateway configuration from flags,
// environment variables, and an optional config file.
package config

import "time"

// Config is the root configuration for the gateway.
type Config struct {
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Resources     ResourcesConfig     `mapstructure:"resources"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// UpstreamConfig describes the REST service the gateway fetches from.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
}

// ResourcesConfig describes where resource descriptors come from and
// how often the schema is rebuilt from them.
type ResourcesConfig struct {
	Dir                string        `mapstructure:"dir"`
	RefreshMinInterval time.Duration `mapstructure:"refresh_min_interval"`
	RefreshMaxInterval time.Duration `mapstructure:"refresh_max_interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	GraphiQLEnabled bool `mapstructure:"graphiql_enabled"`

	// Query guardrails. Zero disables the corresponding limit.
	GraphQLMaxDepth     int     `mapstructure:"graphql_max_depth"`
	GraphQLMaxCost      float64 `mapstructure:"graphql_max_cost"`
	GraphQLDefaultLimit int     `mapstructure:"graphql_default_limit"`

	CORSEnabled        bool     `mapstructure:"cors_enabled"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	ServiceName      string        `mapstructure:"service_name"`
	ServiceVersion   string        `mapstructure:"service_version"`
	Environment      string        `mapstructure:"environment"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	TracingEnabled   bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64       `mapstructure:"trace_sample_ratio"`
	Logging          LoggingConfig `mapstructure:"logging"`
	OTLP             OTLPConfig    `mapstructure:"otlp"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	ExportsEnabled bool   `mapstructure:"exports_enabled"`
}

// OTLPConfig holds OTLP exporter settings for traces and logs.
type OTLPConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Protocol string            `mapstructure:"protocol"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}
