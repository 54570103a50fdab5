package meshapi

import (
	"context"
	"strings"
	"sync"

	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// MockData seeds deterministic responses for tests or local demos.
type MockData struct {
	Telemetry dashboard.TelemetryByNode
	History   map[string]dashboard.HistorySeries
	Nodes     []dashboard.NodeSummary
	Config    *dashboard.Collection
}

// MockClient implements the same contract as HTTPClient from in-memory fixtures.
type MockClient struct {
	mu    sync.RWMutex
	data  MockData
	saves int
}

var (
	_ dashboard.TelemetrySource = (*MockClient)(nil)
	_ dashboard.NodeDirectory   = (*MockClient)(nil)
	_ dashboard.RemoteStore     = (*MockClient)(nil)
)

// NewMockClient builds a mock from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data}
}

// SetTelemetry replaces the telemetry for one node.
func (c *MockClient) SetTelemetry(nodeID string, entry dashboard.NodeTelemetry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.Telemetry == nil {
		c.data.Telemetry = dashboard.TelemetryByNode{}
	}
	c.data.Telemetry[nodeID] = entry
}

// FetchTelemetry returns fixtures for the requested nodes. Unknown nodes
// get an empty entry, like the live endpoint.
func (c *MockClient) FetchTelemetry(_ context.Context, nodeIDs []string) (dashboard.TelemetryByNode, error) {
	if len(nodeIDs) > dashboard.MaxBatchNodes {
		return nil, errors.Wrap(dashboard.ErrLimitExceeded, "too many nodes per request",
			j.MKV{"nodes": len(nodeIDs), "max": dashboard.MaxBatchNodes})
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(dashboard.TelemetryByNode, len(nodeIDs))
	for _, id := range nodeIDs {
		entry, ok := c.data.Telemetry[id]
		if !ok {
			out[id] = dashboard.NodeTelemetry{NodeInfo: map[string]any{}}
			continue
		}
		out[id] = cloneTelemetry(entry)
	}
	return out, nil
}

// FetchHistory returns the node's fixture series ignoring hours.
func (c *MockClient) FetchHistory(_ context.Context, nodeID string, _ int) (dashboard.HistorySeries, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.data.History[nodeID]
	out := make(dashboard.HistorySeries, len(src))
	for key, points := range src {
		out[key] = append([]dashboard.HistoryPoint(nil), points...)
	}
	return out, nil
}

// SearchNodes matches query against names and hex ids, case-insensitively.
func (c *MockClient) SearchNodes(_ context.Context, query string, limit int) ([]dashboard.NodeSummary, error) {
	limit = ClampSearchLimit(limit)
	needle := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dashboard.NodeSummary, 0, limit)
	for _, node := range c.data.Nodes {
		if len(out) == limit {
			break
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(node.LongName), needle) &&
			!strings.Contains(strings.ToLower(node.ShortName), needle) &&
			!strings.Contains(strings.ToLower(node.HexID), needle) {
			continue
		}
		out = append(out, node)
	}
	return out, nil
}

// LoadConfig returns the stored collection, if any.
func (c *MockClient) LoadConfig(context.Context) (dashboard.Collection, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data.Config == nil {
		return dashboard.Collection{}, false, nil
	}
	return c.data.Config.Clone(), true, nil
}

// SaveConfig stores a copy of cfg.
func (c *MockClient) SaveConfig(_ context.Context, cfg dashboard.Collection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := cfg.Clone()
	c.data.Config = &clone
	c.saves++
	return nil
}

// Saves reports how many times SaveConfig ran.
func (c *MockClient) Saves() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saves
}

func cloneTelemetry(entry dashboard.NodeTelemetry) dashboard.NodeTelemetry {
	out := dashboard.NodeTelemetry{Error: entry.Error}
	if entry.NodeInfo != nil {
		out.NodeInfo = make(map[string]any, len(entry.NodeInfo))
		for k, v := range entry.NodeInfo {
			out.NodeInfo[k] = v
		}
	}
	if entry.Telemetry != nil {
		out.Telemetry = make(map[string]any, len(entry.Telemetry))
		for k, v := range entry.Telemetry {
			out.Telemetry[k] = v
		}
	}
	return out
}
