package dashboard

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogSeedsDefaults(t *testing.T) {
	catalog := NewCatalog()

	types := catalog.WidgetTypes()
	require.Len(t, types, 4)
	assert.Equal(t, WidgetSingleMetric, types[0].Type)
	assert.Equal(t, WidgetMultiNodeCompare, types[3].Type)

	def, ok := catalog.Metric("battery_level")
	require.True(t, ok)
	assert.Equal(t, DirectionBelow, def.Direction)
	assert.Equal(t, GroupDevice, def.Group)

	uptime, ok := catalog.Metric("uptime_seconds")
	require.True(t, ok)
	assert.Equal(t, FormatDuration, uptime.Format)
}

func TestCatalogSizesRespectChartMode(t *testing.T) {
	catalog := NewCatalog()

	assert.Equal(t, Size{W: 4, H: 3}, catalog.DefaultSize(WidgetMultiMetric, DisplayDataPoints))
	assert.Equal(t, Size{W: 6, H: 4}, catalog.DefaultSize(WidgetMultiMetric, DisplayChart))
	assert.Equal(t, Size{W: 3, H: 2}, catalog.MinSize(WidgetMultiMetric, DisplayDataPoints))
	assert.Equal(t, Size{W: 4, H: 3}, catalog.MinSize(WidgetMultiMetric, DisplayChart))
}

func TestCatalogFallsBackToGlobalMinimum(t *testing.T) {
	catalog := NewCatalog()

	assert.Equal(t, globalMinSize, catalog.MinSize("unknown", DisplayDataPoints))
	assert.Equal(t, globalDefaultSize, catalog.DefaultSize("unknown", DisplayDataPoints))
}

func TestRegisterWidgetTypeNormalizes(t *testing.T) {
	catalog := NewCatalog()
	err := catalog.RegisterWidgetType(WidgetTypeDefinition{
		Type:        "wide",
		DefaultSize: Size{W: 20, H: 1},
		MinSize:     Size{W: 1, H: 1},
	})
	jtest.RequireNil(t, err)

	def, ok := catalog.WidgetType("wide")
	require.True(t, ok)
	assert.Equal(t, CardinalitySingle, def.Nodes)
	assert.Equal(t, CardinalitySingle, def.Metrics)
	assert.Equal(t, globalMinSize, def.MinSize)
	assert.Equal(t, GridColumns, def.DefaultSize.W)
	assert.Equal(t, 2, def.DefaultSize.H)
}

func TestRegisterWidgetTypeRejectsAutoNodes(t *testing.T) {
	catalog := NewCatalog()
	err := catalog.RegisterWidgetType(WidgetTypeDefinition{Type: "bad", Nodes: CardinalityAuto})
	require.Error(t, err)
}

func TestMetricsByGroup(t *testing.T) {
	groups := NewCatalog().MetricsByGroup()

	require.NotEmpty(t, groups[GroupPower])
	assert.Equal(t, "ch1_voltage", groups[GroupPower][0].Key)
	assert.Len(t, groups[GroupAirQuality], 4)
}

func TestCatalogHooksApplyToNewCatalogs(t *testing.T) {
	catalogHookMu.Lock()
	saved := catalogHooks
	catalogHooks = nil
	catalogHookMu.Unlock()
	t.Cleanup(func() {
		catalogHookMu.Lock()
		catalogHooks = saved
		catalogHookMu.Unlock()
	})

	RegisterCatalogHook(func(c *Catalog) error {
		return c.RegisterMetric(MetricDefinition{Key: "snr", Label: "SNR", Unit: "dB"})
	})

	def, ok := NewCatalog().Metric("snr")
	require.True(t, ok)
	assert.Equal(t, FormatNumber, def.Format)
	assert.Equal(t, GroupDevice, def.Group)
}
