package middleware

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"rest-graphql/internal/execctx"
	"rest-graphql/internal/fetcher"
	"rest-graphql/internal/gqlrequest"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/observability"
)

// PrefetchConfig wires the pre-execution phase for /graphql requests.
type PrefetchConfig struct {
	Planner      *fetcher.Planner
	Limits       gqlrequest.Limits
	DefaultLimit int
	Metrics      *observability.GatewayMetrics
}

// Prefetch decodes the GraphQL envelope, analyzes the query against the
// configured limits, runs the fetch planner, and stores the resulting
// snapshot in the request context before the GraphQL handler executes.
func Prefetch(cfg PrefetchConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)
			start := time.Now()

			cfg.Metrics.RecordRequestStart(ctx)

			envelope, err := gqlrequest.DecodeEnvelope(r)
			if err != nil || envelope.Query == "" {
				// Let the GraphQL handler produce its own error shape.
				next.ServeHTTP(w, r)
				cfg.Metrics.RecordRequestEnd(ctx, "", time.Since(start), err != nil)
				return
			}

			variables, err := envelope.Variables()
			if err != nil {
				writeGraphQLError(w, http.StatusBadRequest, "variables are not valid JSON")
				cfg.Metrics.RecordRequestEnd(ctx, "", time.Since(start), true)
				return
			}

			analysis, err := gqlrequest.Analyze(envelope.Query, variables, cfg.DefaultLimit)
			if err != nil {
				writeGraphQLError(w, http.StatusBadRequest, err.Error())
				cfg.Metrics.RecordRequestEnd(ctx, "", time.Since(start), true)
				return
			}
			cfg.Metrics.RecordAnalysis(ctx, analysis.Depth, analysis.Cost)

			if err := analysis.Validate(cfg.Limits); err != nil {
				logger.Warn("query rejected by limits",
					"operation", analysis.OperationName, "error", err)
				cfg.Metrics.RecordRejection(ctx, "limits")
				writeGraphQLError(w, http.StatusBadRequest, err.Error())
				cfg.Metrics.RecordRequestEnd(ctx, analysis.OperationName, time.Since(start), true)
				return
			}

			ctx = gqlrequest.WithAnalysis(ctx, analysis)

			if analysis.OperationType == "query" && cfg.Planner != nil {
				snapshot, err := cfg.Planner.Plan(ctx, analysis.Document, variables)
				if err != nil {
					logger.Error("fetch planning failed",
						"operation", analysis.OperationName, "error", err)
					writeGraphQLError(w, http.StatusBadGateway, "failed to fetch upstream data")
					cfg.Metrics.RecordRequestEnd(ctx, analysis.OperationName, time.Since(start), true)
					return
				}
				cfg.Metrics.RecordSnapshotSize(ctx, snapshot.ObjectCount())
				ctx = execctx.WithSnapshot(ctx, snapshot)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
			cfg.Metrics.RecordRequestEnd(ctx, analysis.OperationName, time.Since(start), false)
		})
	}
}

func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]interface{}{{"message": message}},
	})
}
