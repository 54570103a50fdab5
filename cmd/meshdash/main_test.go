package main

import (
	"bytes"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/queries"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "battery_level", normalizeKey("battery_level"))
	assert.Equal(t, "co2", normalizeKey(" co2 "))
	assert.Equal(t, "node_status", normalizeKey("node-status"))
	assert.Equal(t, "battery_level", normalizeKey("batteryLevel"))
}

func TestAddWidgetSpec(t *testing.T) {
	cmd := addWidgetCmd{
		Type:   "multi-metric",
		Title:  "  Hilltop  ",
		Node:   []string{"!aabbccdd"},
		Metric: []string{"batteryLevel", "voltage"},
		Chart:  true,
		Hours:  48,
	}
	spec := cmd.spec()
	assert.Equal(t, core.WidgetMultiMetric, spec.Type)
	assert.Equal(t, "Hilltop", spec.Title)
	assert.Equal(t, []string{"battery_level", "voltage"}, spec.Metrics)
	assert.Equal(t, core.DisplayChart, spec.DisplayMode)
	assert.Equal(t, 48, spec.ChartHours)
}

func TestDecodeFixtures(t *testing.T) {
	raw := []byte(`
telemetry:
  "!aabbccdd":
    node_info:
      long_name: Hilltop
    telemetry:
      battery_level: 87
nodes:
  - hex_id: "!aabbccdd"
    long_name: Hilltop
    role: ROUTER
history:
  "!aabbccdd":
    battery_level:
      - x: 1700000000
        y: 80
`)
	data, err := decodeFixtures(raw)
	jtest.RequireNil(t, err)
	assert.Equal(t, "Hilltop", data.Telemetry["!aabbccdd"].NodeInfo["long_name"])
	assert.Equal(t, float64(87), data.Telemetry["!aabbccdd"].Telemetry["battery_level"])
	require.Len(t, data.Nodes, 1)
	assert.Equal(t, "ROUTER", data.Nodes[0].Role)
	require.Len(t, data.History["!aabbccdd"]["battery_level"], 1)
	require.NotNil(t, data.History["!aabbccdd"]["battery_level"][0].Y)
	assert.Equal(t, 80.0, *data.History["!aabbccdd"]["battery_level"][0].Y)
}

func TestDecodeFixturesRejectsUnknownFields(t *testing.T) {
	_, err := decodeFixtures([]byte(`nodez: []`))
	require.Error(t, err)
}

func TestPrintLayout(t *testing.T) {
	layout := queries.Layout{
		Active: core.Dashboard{ID: "db_1", Name: "Main", Widgets: []core.Widget{{
			ID: "w_1", Type: core.WidgetNodeStatus, Title: "Hilltop",
			Nodes: []string{"!aabbccdd"}, Layout: &core.Rect{Col: 1, Row: 1, W: 4, H: 2},
		}}},
		Dashboards: []queries.DashboardEntry{
			{ID: "db_1", Name: "Main", Widgets: 1, Active: true},
			{ID: "db_2", Name: "Spare"},
		},
		Columns: core.GridColumns,
	}
	var buf bytes.Buffer
	jtest.RequireNil(t, printLayout(&buf, layout))
	out := buf.String()
	assert.Contains(t, out, "* db_1  Main (1 widgets)")
	assert.Contains(t, out, "  db_2  Spare (0 widgets)")
	assert.Contains(t, out, "w_1")
	assert.Contains(t, out, "node_status")
}
