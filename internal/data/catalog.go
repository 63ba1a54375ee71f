package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
)

type catalogClient struct {
	client  *http.Client
	baseURL string
	token   string
	log     *log.Helper
}

// NewCatalogClient creates a new catalog API client
func NewCatalogClient(c *conf.Catalog, logger log.Logger) biz.CatalogClient {
	return &catalogClient{
		client: &http.Client{
			Timeout: c.Timeout.AsDuration(),
		},
		baseURL: strings.TrimRight(c.Url, "/"),
		token:   c.Token,
		log:     log.NewHelper(logger),
	}
}

// Fetch issues a GET for path. Non-200 statuses are returned to the caller
// without an error; there is no retry here.
func (c *catalogClient) Fetch(ctx context.Context, path string) (int, biz.Document, error) {
	endpoint := endpointLabel(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Bearer token auth
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "transport").Inc()
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CatalogRequests.WithLabelValues(endpoint, "status").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Debugf("GET %s: status %d", path, resp.StatusCode)
		return resp.StatusCode, nil, nil
	}

	var payload biz.Document
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "decode").Inc()
		return resp.StatusCode, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()
	return resp.StatusCode, payload, nil
}

// endpointLabel classifies a request path as listing, details or credits.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasSuffix(path, "/credits") {
		return "credits"
	}
	last := path[strings.LastIndexByte(path, '/')+1:]
	if _, err := strconv.ParseInt(last, 10, 64); err == nil {
		return "details"
	}
	return "listing"
}
