// Package fetcher populates the execution snapshot before a query runs:
// a REST client for the upstream gateway and a planner that walks the
// parsed query to decide which batched fetches to issue.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Upstream is the fetch surface the planner consumes.
type Upstream interface {
	// BatchGet retrieves objects by identifier. Missing identifiers are
	// simply absent from the result; they are not errors.
	BatchGet(ctx context.Context, resource string, ids []string) (map[string]map[string]interface{}, error)

	// Finder invokes a named finder method and returns matching objects
	// in server order.
	Finder(ctx context.Context, resource, finder string, params map[string]string) ([]map[string]interface{}, error)
}

// Client speaks the upstream REST collection protocol over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the upstream gateway at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type batchResponse struct {
	Results map[string]map[string]interface{} `json:"results"`
	Errors  map[string]string                 `json:"errors,omitempty"`
}

type finderResponse struct {
	Elements []map[string]interface{} `json:"elements"`
}

// BatchGet implements Upstream via GET {base}/{resource}?ids=...&ids=...
func (c *Client) BatchGet(ctx context.Context, resource string, ids []string) (map[string]map[string]interface{}, error) {
	if len(ids) == 0 {
		return map[string]map[string]interface{}{}, nil
	}

	query := url.Values{}
	for _, id := range ids {
		query.Add("ids", id)
	}

	var decoded batchResponse
	if err := c.getJSON(ctx, resource, query, &decoded); err != nil {
		return nil, fmt.Errorf("batch get %s: %w", resource, err)
	}
	if decoded.Results == nil {
		return map[string]map[string]interface{}{}, nil
	}
	return decoded.Results, nil
}

// Finder implements Upstream via GET {base}/{resource}?q={finder}&...
func (c *Client) Finder(ctx context.Context, resource, finder string, params map[string]string) ([]map[string]interface{}, error) {
	query := url.Values{}
	query.Set("q", finder)
	for name, value := range params {
		query.Set(name, value)
	}

	var decoded finderResponse
	if err := c.getJSON(ctx, resource, query, &decoded); err != nil {
		return nil, fmt.Errorf("finder %s on %s: %w", finder, resource, err)
	}
	return decoded.Elements, nil
}

func (c *Client) getJSON(ctx context.Context, resource string, query url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(resource), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}
