// Package schemaserve builds GraphQL schema snapshots from resource
// descriptors and refreshes them when the descriptor directory changes.
package schemaserve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"rest-graphql/internal/fetcher"
	"rest-graphql/internal/gqlrequest"
	"rest-graphql/internal/logging"
	"rest-graphql/internal/middleware"
	"rest-graphql/internal/observability"
	"rest-graphql/internal/pagination"
	"rest-graphql/internal/resolver"
	"rest-graphql/internal/restspec"
)

// Snapshot is an immutable view of one built schema: the GraphQL schema,
// the fully composed /graphql handler (prefetch then execution), and the
// registry it was built from.
type Snapshot struct {
	Schema      *graphql.Schema
	Handler     http.Handler
	Registry    *restspec.Registry
	BuiltAt     time.Time
	Fingerprint string
}

// Config controls snapshot construction and refresh behavior.
type Config struct {
	DescriptorDir string
	Upstream      fetcher.Upstream
	Limits        gqlrequest.Limits
	DefaultLimit  int
	BatchSize     int
	Logger        *logging.Logger
	Metrics       *observability.GatewayMetrics
	MinInterval   time.Duration
	MaxInterval   time.Duration
	GraphiQL      bool
}

// Manager maintains the active snapshot and refreshes it on change.
type Manager struct {
	cfg    Config
	logger *logging.Logger

	active atomic.Value // *Snapshot
	wg     sync.WaitGroup
}

// NewManager builds the initial snapshot and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DescriptorDir == "" {
		return nil, fmt.Errorf("schema manager requires a descriptor directory")
	}
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("schema manager requires an upstream")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 30 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}

	m := &Manager{
		cfg:    cfg,
		logger: cfg.Logger.WithResource("schema"),
	}

	fingerprint, err := m.computeFingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint descriptors: %w", err)
	}
	snapshot, err := m.buildSnapshot(fingerprint)
	if err != nil {
		return nil, err
	}
	m.active.Store(snapshot)
	return m, nil
}

// Start begins the background refresh loop.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// CurrentSnapshot returns the active snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	snapshot, _ := m.active.Load().(*Snapshot)
	return snapshot
}

// Handler serves /graphql against whichever snapshot is active when the
// request arrives.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.CurrentSnapshot()
		if snapshot == nil || snapshot.Handler == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		snapshot.Handler.ServeHTTP(w, r)
	})
}

// RefreshNow forces a rebuild and swap regardless of the fingerprint.
func (m *Manager) RefreshNow() error {
	fingerprint, err := m.computeFingerprint()
	if err != nil {
		return err
	}
	snapshot, err := m.buildSnapshot(fingerprint)
	if err != nil {
		return err
	}
	m.active.Store(snapshot)
	return nil
}

// Wait blocks until the refresh loop exits or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	interval := m.cfg.MinInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case <-timer.C:
			m.refreshOnce(&interval)
			timer.Reset(interval)
		}
	}
}

func (m *Manager) refreshOnce(interval *time.Duration) {
	fingerprint, err := m.computeFingerprint()
	if err != nil {
		m.logger.Warn("descriptor fingerprint check failed", slog.String("error", err.Error()))
		*interval = m.cfg.MinInterval
		return
	}

	current := m.CurrentSnapshot()
	if current != nil && current.Fingerprint == fingerprint {
		*interval = nextInterval(*interval, m.cfg.MinInterval, m.cfg.MaxInterval)
		return
	}

	m.logger.Info("descriptor change detected, rebuilding schema",
		slog.String("fingerprint", fingerprint))
	snapshot, err := m.buildSnapshot(fingerprint)
	if err != nil {
		m.logger.Error("failed to rebuild schema", slog.String("error", err.Error()))
		*interval = m.cfg.MinInterval
		return
	}

	m.active.Store(snapshot)
	*interval = m.cfg.MinInterval
	m.logger.Info("schema refresh complete", slog.String("fingerprint", fingerprint))
}

func (m *Manager) buildSnapshot(fingerprint string) (*Snapshot, error) {
	start := time.Now()

	registry, err := restspec.LoadDir(m.cfg.DescriptorDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource descriptors: %w", err)
	}

	paging := pagination.NewFields(m.cfg.DefaultLimit)
	res := resolver.New(registry, paging, m.logger.Logger)
	schema, err := res.BuildGraphQLSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	upstream := fetcher.InstrumentUpstream(m.cfg.Upstream, m.cfg.Metrics)
	planner := fetcher.NewPlanner(registry, registry.Names(), upstream, m.logger.Logger,
		fetcher.WithBatchSize(m.cfg.BatchSize))

	graphqlHandler := handler.New(&handler.Config{
		Schema:     &schema,
		Pretty:     true,
		GraphiQL:   m.cfg.GraphiQL,
		Playground: true,
	})

	composed := middleware.Prefetch(middleware.PrefetchConfig{
		Planner:      planner,
		Limits:       m.cfg.Limits,
		DefaultLimit: paging.DefaultLimit(),
		Metrics:      m.cfg.Metrics,
	})(graphqlHandler)

	m.logger.Info("schema snapshot built",
		slog.Int("resources", len(registry.Names())),
		slog.Duration("duration", time.Since(start)))

	return &Snapshot{
		Schema:      &schema,
		Handler:     composed,
		Registry:    registry,
		BuiltAt:     time.Now(),
		Fingerprint: fingerprint,
	}, nil
}

// computeFingerprint hashes the descriptor file set so unchanged
// directories skip the rebuild.
func (m *Manager) computeFingerprint() (string, error) {
	entries, err := os.ReadDir(m.cfg.DescriptorDir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	hash := sha256.New()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(m.cfg.DescriptorDir, name))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(hash, "%s\n", name)
		hash.Write(data)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}
