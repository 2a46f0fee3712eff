package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rest-graphql/internal/execctx"
	"rest-graphql/internal/fetcher"
	"rest-graphql/internal/gqlrequest"
	"rest-graphql/internal/restspec"
)

type stubUpstream struct {
	objects map[string]map[string]interface{}
	err     error
}

func (s *stubUpstream) BatchGet(ctx context.Context, resource string, ids []string) (map[string]map[string]interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := map[string]map[string]interface{}{}
	for _, id := range ids {
		if obj, ok := s.objects[id]; ok {
			results[id] = obj
		}
	}
	return results, nil
}

func (s *stubUpstream) Finder(ctx context.Context, resource, finder string, params map[string]string) ([]map[string]interface{}, error) {
	return nil, s.err
}

func prefetchPlanner(t *testing.T, upstream fetcher.Upstream) *fetcher.Planner {
	t.Helper()
	registry, err := restspec.NewRegistry([]restspec.Resource{{
		Name:    "albums",
		Version: 1,
		Methods: []restspec.Method{{Name: "batchGet", Kind: restspec.MethodMultiGet}},
		Schema: &restspec.ElementSchema{
			Name:   "album",
			Fields: []restspec.ElementField{{Name: "id", Type: "string"}},
		},
	}})
	require.NoError(t, err)
	return fetcher.NewPlanner(registry, registry.Names(), upstream, nil)
}

func graphqlPost(query string) *http.Request {
	payload, _ := json.Marshal(map[string]string{"query": query})
	r := httptest.NewRequest("POST", "/graphql", strings.NewReader(string(payload)))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var body struct {
		Errors []map[string]interface{} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Errors
}

func TestPrefetchInjectsSnapshot(t *testing.T) {
	upstream := &stubUpstream{objects: map[string]map[string]interface{}{
		"a1": {"id": "a1"},
	}}

	var snap execctx.Reader
	var analysis *gqlrequest.Analysis
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap = execctx.FromContext(r.Context())
		analysis = gqlrequest.AnalysisFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Prefetch(PrefetchConfig{
		Planner:      prefetchPlanner(t, upstream),
		DefaultLimit: 10,
	})(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, graphqlPost(`{ albums(ids: ["a1"]) { elements { id } } }`))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, snap)
	objects := snap.Objects("albums")
	require.Contains(t, objects, "a1")
	require.NotNil(t, analysis)
	assert.Equal(t, "query", analysis.OperationType)
}

func TestPrefetchPlansGetRequestVariables(t *testing.T) {
	// Identifiers bound through the variables query parameter must reach
	// the planner, matching how POST bodies carry them.
	upstream := &stubUpstream{objects: map[string]map[string]interface{}{
		"a1": {"id": "a1"},
	}}

	var snap execctx.Reader
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap = execctx.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Prefetch(PrefetchConfig{
		Planner:      prefetchPlanner(t, upstream),
		DefaultLimit: 10,
	})(next)

	params := url.Values{}
	params.Set("query", `query Q($ids: [String!]) { albums(ids: $ids) { elements { id } } }`)
	params.Set("variables", `{"ids":["a1"]}`)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/graphql?"+params.Encode(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, snap)

	requests := snap.TopLevelRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, []string{"a1"}, requests[0].IDs)
	assert.Contains(t, snap.Objects("albums"), "a1")
}

func TestPrefetchPassesEmptyQueryThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := Prefetch(PrefetchConfig{DefaultLimit: 10})(next)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/graphql", nil))

	assert.True(t, called)
}

func TestPrefetchRejectsUnparsableQuery(t *testing.T) {
	handler := Prefetch(PrefetchConfig{DefaultLimit: 10})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, graphqlPost(`{ albums { `))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, decodeErrors(t, w))
}

func TestPrefetchRejectsOverLimitQuery(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := Prefetch(PrefetchConfig{
		Limits:       gqlrequest.Limits{MaxDepth: 1},
		DefaultLimit: 10,
	})(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, graphqlPost(`{ albums { elements { id } } }`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	errs := decodeErrors(t, w)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0]["message"], "depth")
}

func TestPrefetchCountsVariableLimitCost(t *testing.T) {
	// A page size smuggled in through a variable still counts against the
	// cost limit.
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := Prefetch(PrefetchConfig{
		Limits:       gqlrequest.Limits{MaxCost: 100},
		DefaultLimit: 10,
	})(next)

	body := `{"query":"query Q($n: Int) { albums(limit: $n) { elements { id } } }","variables":{"n":200}}`
	r := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)

	errs := decodeErrors(t, w)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0]["message"], "cost")
}

func TestPrefetchReportsUpstreamFailure(t *testing.T) {
	upstream := &stubUpstream{err: errors.New("connection refused")}
	handler := Prefetch(PrefetchConfig{
		Planner:      prefetchPlanner(t, upstream),
		DefaultLimit: 10,
	})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, graphqlPost(`{ albums(ids: ["a1"]) { elements { id } } }`))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	errs := decodeErrors(t, w)
	require.Len(t, errs, 1)
	// The upstream error itself stays out of the response.
	assert.NotContains(t, errs[0]["message"], "connection refused")
}

func TestPrefetchRejectsMalformedVariables(t *testing.T) {
	handler := Prefetch(PrefetchConfig{
		Planner:      prefetchPlanner(t, &stubUpstream{}),
		DefaultLimit: 10,
	})(okHandler())

	body := `{"query":"query Q($ids:[String!]){albums(ids:$ids){elements{id}}}","variables":["wrong"]}`
	r := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
