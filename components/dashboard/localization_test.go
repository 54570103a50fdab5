package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocalizedValue(t *testing.T) {
	values := map[string]string{
		"en":    "Battery",
		"es":    "Batería",
		"es-mx": "Pila",
	}
	if got := ResolveLocalizedValue(values, "es-mx", "fallback"); got != "Pila" {
		t.Fatalf("expected region-specific match, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "es_AR", "fallback"); got != "Batería" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := ResolveLocalizedValue(values, "fr", "Battery"); got != "Battery" {
		t.Fatalf("expected fallback when locale missing, got %q", got)
	}
	if got := ResolveLocalizedValue(nil, "es", "Battery"); got != "Battery" {
		t.Fatalf("expected fallback when no localized map, got %q", got)
	}
}

func TestMetricLabelForLocaleFromManifest(t *testing.T) {
	catalog := NewCatalog()
	manifest := `
version: "1"
metrics:
  - key: battery_level
    label: Battery
    unit: "%"
    group: device
    direction: below
    thresholds: {warning: 40, danger: 20}
    label_localized:
      ES: Batería
`
	require.NoError(t, catalog.LoadManifest(strings.NewReader(manifest)))

	def, ok := catalog.Metric("battery_level")
	require.True(t, ok)
	assert.Equal(t, "Batería", def.LabelFor("es-mx"))
	assert.Equal(t, "Battery", def.LabelFor("de"))
}
