package dashboard

import (
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchemaValidatorEnforcesCardinality(t *testing.T) {
	catalog := NewCatalog()
	validator := NewJSONSchemaValidator()
	single, _ := catalog.WidgetType(WidgetSingleMetric)

	err := validator.Validate(single, WidgetSpec{Type: WidgetSingleMetric, Nodes: []string{"!a"}, Metrics: []string{"voltage"}})
	jtest.RequireNil(t, err)

	err = validator.Validate(single, WidgetSpec{Type: WidgetSingleMetric, Nodes: []string{"!a", "!b"}, Metrics: []string{"voltage"}})
	jtest.Require(t, ErrValidation, err)

	err = validator.Validate(single, WidgetSpec{Type: WidgetSingleMetric, Nodes: []string{"!a"}, Metrics: []string{"voltage", "battery_level"}})
	jtest.Require(t, ErrValidation, err)
}

func TestJSONSchemaValidatorRejectsChartOnPlainType(t *testing.T) {
	catalog := NewCatalog()
	validator := NewJSONSchemaValidator()
	single, _ := catalog.WidgetType(WidgetSingleMetric)

	err := validator.Validate(single, WidgetSpec{
		Type:        WidgetSingleMetric,
		Nodes:       []string{"!a"},
		Metrics:     []string{"voltage"},
		DisplayMode: DisplayChart,
	})
	jtest.Require(t, ErrValidation, err)
}

func TestJSONSchemaValidatorCachesCompiledSchemas(t *testing.T) {
	catalog := NewCatalog()
	validator := NewJSONSchemaValidator()
	def, _ := catalog.WidgetType(WidgetMultiMetric)
	spec := WidgetSpec{Type: WidgetMultiMetric, Nodes: []string{"!a"}, Metrics: []string{"voltage"}}

	jtest.RequireNil(t, validator.Validate(def, spec))
	jtest.RequireNil(t, validator.Validate(def, spec))
	assert.Len(t, validator.compiled, 1)
}

func TestPrepareSpecNormalizes(t *testing.T) {
	catalog := NewCatalog()

	spec, _, err := prepareSpec(catalog, NewJSONSchemaValidator(), WidgetSpec{
		Type:    legacyMultiMetricChart,
		Nodes:   []string{"!a"},
		Metrics: []string{"temperature", "relative_humidity"},
	})
	jtest.RequireNil(t, err)
	assert.Equal(t, WidgetMultiMetric, spec.Type)
	assert.Equal(t, DisplayChart, spec.DisplayMode)
	assert.Equal(t, DefaultChartHours, spec.ChartHours)
	assert.Equal(t, []string{"!a"}, spec.NodeNames)

	spec, _, err = prepareSpec(catalog, NewJSONSchemaValidator(), WidgetSpec{
		Type:    WidgetNodeStatus,
		Nodes:   []string{"!a"},
		Metrics: []string{"voltage"},
	})
	jtest.RequireNil(t, err)
	assert.Empty(t, spec.Metrics)
	assert.Equal(t, DisplayDataPoints, spec.DisplayMode)
}

func TestPrepareSpecValidationErrors(t *testing.T) {
	catalog := NewCatalog()
	validator := NewJSONSchemaValidator()

	cases := map[string]WidgetSpec{
		"missing type":   {Nodes: []string{"!a"}, Metrics: []string{"voltage"}},
		"unknown type":   {Type: "gauge", Nodes: []string{"!a"}, Metrics: []string{"voltage"}},
		"missing node":   {Type: WidgetSingleMetric, Metrics: []string{"voltage"}},
		"missing metric": {Type: WidgetSingleMetric, Nodes: []string{"!a"}},
		"unknown metric": {Type: WidgetSingleMetric, Nodes: []string{"!a"}, Metrics: []string{"rssi_max"}},
		"bad hours": {
			Type: WidgetMultiMetric, Nodes: []string{"!a"}, Metrics: []string{"voltage"},
			DisplayMode: DisplayChart, ChartHours: 7,
		},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := prepareSpec(catalog, validator, spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestAlignNames(t *testing.T) {
	assert.Equal(t, []string{"Base", "!b"}, alignNames([]string{"!a", "!b"}, []string{"Base"}))
	assert.Equal(t, []string{"!a"}, alignNames([]string{"!a"}, []string{"", "extra"}))
	assert.Empty(t, alignNames(nil, []string{"orphan"}))
}
