package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError is a fatal configuration problem.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning is a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult carries the problems Validate found.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors reports whether any fatal problems were found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined error message for fatal problems.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration and returns errors and warnings.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Upstream.validate(result)
	c.Resources.validate(result)
	c.Server.validate(result)
	c.Observability.validate(result)
	return result
}

func (u *UpstreamConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(u.BaseURL) == "" {
		result.addError("upstream.base_url", "upstream base URL is required",
			"set REGQL_UPSTREAM_BASE_URL or --upstream.base_url")
		return
	}
	parsed, err := url.Parse(u.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		result.addError("upstream.base_url",
			fmt.Sprintf("invalid URL %q", u.BaseURL),
			"expected http(s)://host[:port]")
	}
	if u.BatchSize < 0 {
		result.addError("upstream.batch_size", "batch size cannot be negative", "")
	}
	if u.Timeout < 0 {
		result.addError("upstream.timeout", "timeout cannot be negative", "")
	}
}

func (rc *ResourcesConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(rc.Dir) == "" {
		result.addError("resources.dir", "resource descriptor directory is required", "")
	}
	if rc.RefreshMinInterval < 0 || rc.RefreshMaxInterval < 0 {
		result.addError("resources.refresh_min_interval", "refresh intervals cannot be negative", "")
		return
	}
	if rc.RefreshMaxInterval > 0 && rc.RefreshMinInterval > rc.RefreshMaxInterval {
		result.addError("resources.refresh_min_interval",
			"minimum refresh interval exceeds maximum", "")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port", fmt.Sprintf("port %d is out of range (1-65535)", s.Port), "")
	}
	if s.GraphQLMaxDepth < 0 {
		result.addError("server.graphql_max_depth", "max depth cannot be negative", "0 disables the limit")
	}
	if s.GraphQLMaxCost < 0 {
		result.addError("server.graphql_max_cost", "max cost cannot be negative", "0 disables the limit")
	}
	if s.GraphQLDefaultLimit < 1 {
		result.addError("server.graphql_default_limit", "default page size must be at least 1", "")
	}
	if s.GraphiQLEnabled {
		result.addWarning("server.graphiql_enabled", "GraphiQL UI is enabled",
			"disable in production")
	}
	if s.CORSEnabled && len(s.CORSAllowedOrigins) == 0 {
		result.addWarning("server.cors_enabled", "CORS is enabled with no allowed origins",
			"set server.cors_allowed_origins")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio",
			fmt.Sprintf("sample ratio %.2f is out of range (0.0-1.0)", o.TraceSampleRatio), "")
	}
	switch o.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		result.addError("observability.logging.level",
			fmt.Sprintf("unknown log level %q", o.Logging.Level),
			"use debug, info, warn, or error")
	}
	switch o.Logging.Format {
	case "", "json", "text":
	default:
		result.addError("observability.logging.format",
			fmt.Sprintf("unknown log format %q", o.Logging.Format),
			"use json or text")
	}
	if (o.TracingEnabled || o.Logging.ExportsEnabled) && strings.TrimSpace(o.OTLP.Endpoint) == "" {
		result.addError("observability.otlp.endpoint",
			"OTLP endpoint is required when tracing or log export is enabled", "")
	}
}
