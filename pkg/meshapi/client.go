package meshapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

const (
	configPath    = "/api/custom-dashboard/config"
	telemetryPath = "/api/custom-dashboard/nodes/telemetry"
	searchPath    = "/api/custom-dashboard/nodes/search"

	// MaxHistoryHours is the longest lookback the history endpoint serves.
	MaxHistoryHours = 168
	// MaxSearchLimit caps node search results.
	MaxSearchLimit = 50
	// DefaultSearchLimit applies when the caller passes zero.
	DefaultSearchLimit = 20
)

var (
	ErrBaseURL      = errors.New("mesh api base url is required", j.C("ERR_b1f0a2c4e6d8a1f3"))
	ErrUnauthorized = errors.New("mesh api authentication required", j.C("ERR_c2e1b3d5f7a9b2e4"))
	ErrRemote       = errors.New("mesh api remote error", j.C("ERR_d3f2c4e6a8b0c3f5"))
)

// HTTPConfig configures the mesh API client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to the mesh monitoring backend. It serves as the
// dashboard's TelemetrySource, NodeDirectory and RemoteStore.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var (
	_ dashboard.TelemetrySource = (*HTTPClient)(nil)
	_ dashboard.NodeDirectory   = (*HTTPClient)(nil)
	_ dashboard.RemoteStore     = (*HTTPClient)(nil)
)

// NewHTTPClient builds a client for a live backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// FetchTelemetry posts the node ids in one batch request. Callers split
// unions larger than dashboard.MaxBatchNodes.
func (c *HTTPClient) FetchTelemetry(ctx context.Context, nodeIDs []string) (dashboard.TelemetryByNode, error) {
	if len(nodeIDs) == 0 {
		return dashboard.TelemetryByNode{}, nil
	}
	if len(nodeIDs) > dashboard.MaxBatchNodes {
		return nil, errors.Wrap(dashboard.ErrLimitExceeded, "too many nodes per request",
			j.MKV{"nodes": len(nodeIDs), "max": dashboard.MaxBatchNodes})
	}
	var resp telemetryResponse
	if _, err := c.do(ctx, http.MethodPost, telemetryPath, telemetryRequest{NodeIDs: nodeIDs}, &resp); err != nil {
		return nil, err
	}
	if resp.Nodes == nil {
		resp.Nodes = dashboard.TelemetryByNode{}
	}
	return resp.Nodes, nil
}

// FetchHistory returns time series for one node. hours is clamped to
// [1, MaxHistoryHours].
func (c *HTTPClient) FetchHistory(ctx context.Context, nodeID string, hours int) (dashboard.HistorySeries, error) {
	hours = max(1, min(MaxHistoryHours, hours))
	path := "/api/custom-dashboard/node/" + url.PathEscape(nodeID) + "/telemetry/history?hours=" + strconv.Itoa(hours)
	var resp historyResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.History == nil {
		resp.History = dashboard.HistorySeries{}
	}
	return resp.History, nil
}

// SearchNodes queries the node picker endpoint.
func (c *HTTPClient) SearchNodes(ctx context.Context, query string, limit int) ([]dashboard.NodeSummary, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("limit", strconv.Itoa(ClampSearchLimit(limit)))
	var resp searchResponse
	if _, err := c.do(ctx, http.MethodGet, searchPath+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// LoadConfig reads the saved collection. A 204 means nothing is stored
// yet and yields found=false.
func (c *HTTPClient) LoadConfig(ctx context.Context) (dashboard.Collection, bool, error) {
	var cfg dashboard.Collection
	status, err := c.do(ctx, http.MethodGet, configPath, nil, &cfg)
	if err != nil {
		return dashboard.Collection{}, false, err
	}
	if status == http.StatusNoContent {
		return dashboard.Collection{}, false, nil
	}
	return cfg, true, nil
}

// SaveConfig replaces the stored collection.
func (c *HTTPClient) SaveConfig(ctx context.Context, cfg dashboard.Collection) error {
	if cfg.Dashboards == nil {
		cfg.Dashboards = []dashboard.Dashboard{}
	}
	_, err := c.do(ctx, http.MethodPut, configPath, cfg, nil)
	return err
}

// ClampSearchLimit maps zero to the default and bounds the rest to
// [1, MaxSearchLimit].
func ClampSearchLimit(limit int) int {
	if limit == 0 {
		return DefaultSearchLimit
	}
	return max(1, min(MaxSearchLimit, limit))
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, errors.Wrap(err, "encode payload", j.KV("path", path))
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, errors.Wrap(err, "build request", j.KV("path", path))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "http request", j.MKV{"method": method, "path": path})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, errors.Wrap(ErrUnauthorized, "remote rejected credentials", j.KV("path", path))
	case resp.StatusCode >= 300:
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return resp.StatusCode, errors.Wrap(ErrRemote, "unexpected status", j.MKV{
			"status": resp.StatusCode,
			"path":   path,
			"body":   buf.String(),
		})
	case resp.StatusCode == http.StatusNoContent || target == nil:
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response", j.KV("path", path))
	}
	return resp.StatusCode, nil
}

type telemetryRequest struct {
	NodeIDs []string `json:"node_ids"`
}

type telemetryResponse struct {
	Nodes dashboard.TelemetryByNode `json:"nodes"`
}

type historyResponse struct {
	History dashboard.HistorySeries `json:"history"`
}

type searchResponse struct {
	Nodes []dashboard.NodeSummary `json:"nodes"`
}
