package dashboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeManifest(t *testing.T) {
	const payload = `
version: "1"
name: lora-extras
widget_types:
  - type: signal_gauge
    label: Signal Gauge
    nodes: single
    metrics: single
    default_size: {w: 3, h: 3}
    min_size: {w: 2, h: 2}
metrics:
  - key: snr
    label: SNR
    unit: dB
    group: device
    direction: below
    thresholds: {warning: 0, danger: -10}
`
	doc, err := DecodeManifest(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, doc.WidgetTypes, 1)
	require.Len(t, doc.Metrics, 1)

	assert.Equal(t, WidgetType("signal_gauge"), doc.WidgetTypes[0].Type)
	assert.Equal(t, Size{W: 3, H: 3}, doc.WidgetTypes[0].DefaultSize)
	assert.Equal(t, "snr", doc.Metrics[0].Key)
	require.NotNil(t, doc.Metrics[0].Thresholds)
	assert.Equal(t, -10.0, doc.Metrics[0].Thresholds.Danger)
}

func TestDecodeManifestRejectsUnknownFields(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader("version: \"1\"\nwidgets: []\n"))
	require.Error(t, err)
}

func TestDecodeManifestRejectsEmptyDocument(t *testing.T) {
	_, err := DecodeManifest(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest is empty")
}

func TestDecodeManifestRejectsDuplicates(t *testing.T) {
	const payload = `
version: "1"
metrics:
  - key: snr
  - key: snr
`
	_, err := DecodeManifest(strings.NewReader(payload))
	require.Error(t, err)
}

func TestCatalogLoadManifestOverridesFootprint(t *testing.T) {
	catalog := NewCatalog()
	const payload = `
version: "1"
widget_types:
  - type: single_metric
    label: Big Number
    nodes: single
    metrics: single
    default_size: {w: 4, h: 2}
    min_size: {w: 3, h: 2}
`
	require.NoError(t, catalog.LoadManifest(strings.NewReader(payload)))

	def, ok := catalog.WidgetType(WidgetSingleMetric)
	require.True(t, ok)
	assert.Equal(t, "Big Number", def.Label)
	assert.Equal(t, Size{W: 4, H: 2}, catalog.DefaultSize(WidgetSingleMetric, DisplayDataPoints))
	assert.Len(t, catalog.WidgetTypes(), 4)
}

func TestWriteManifestRoundTripsThroughLoad(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCatalog().WriteManifest(&buf))
	assert.Contains(t, buf.String(), "widget_types:")
	assert.Contains(t, buf.String(), "battery_level")

	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	catalog := NewCatalog()
	doc, err := catalog.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Len(t, doc.WidgetTypes, 4)
	assert.Len(t, catalog.Metrics(), len(DefaultMetrics()))
}
