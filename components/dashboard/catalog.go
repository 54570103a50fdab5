package dashboard

import (
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Cardinality constrains how many nodes or metrics a widget type binds.
type Cardinality string

const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
	// CardinalityAuto means the renderer derives the fields itself; the
	// widget's list stays empty.
	CardinalityAuto Cardinality = "auto"
)

// Size is a footprint in grid cells.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

var (
	globalMinSize     = Size{W: 2, H: 2}
	globalDefaultSize = Size{W: 3, H: 2}
	chartDefaultSize  = Size{W: 6, H: 4}
	chartMinSize      = Size{W: 4, H: 3}
)

// WidgetTypeDefinition describes one widget variant.
type WidgetTypeDefinition struct {
	Type           WidgetType        `json:"type" yaml:"type"`
	Label          string            `json:"label" yaml:"label"`
	LabelLocalized map[string]string `json:"label_localized,omitempty" yaml:"label_localized,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes          Cardinality       `json:"nodes" yaml:"nodes"`
	Metrics        Cardinality       `json:"metrics" yaml:"metrics"`
	Chartable      bool              `json:"chartable,omitempty" yaml:"chartable,omitempty"`
	DefaultSize    Size              `json:"default_size" yaml:"default_size"`
	MinSize        Size              `json:"min_size" yaml:"min_size"`
}

// ThresholdDirection says which side of a threshold is worse.
type ThresholdDirection string

const (
	// DirectionAbove means higher values are worse.
	DirectionAbove ThresholdDirection = "above"
	// DirectionBelow means lower values are worse.
	DirectionBelow ThresholdDirection = "below"
)

// Thresholds is the warning/danger pair used for status coloring.
type Thresholds struct {
	Warning float64 `json:"warning" yaml:"warning"`
	Danger  float64 `json:"danger" yaml:"danger"`
}

// MetricFormat selects the value formatter.
type MetricFormat string

const (
	FormatNumber   MetricFormat = "number"
	FormatDuration MetricFormat = "duration"
)

// Metric groups, in resolution priority order.
const (
	GroupDevice      = "device"
	GroupEnvironment = "environment"
	GroupPower       = "power"
	GroupAirQuality  = "air_quality"
)

var metricGroups = []string{GroupDevice, GroupEnvironment, GroupPower, GroupAirQuality}

// MetricDefinition is immutable display metadata for a telemetry field.
type MetricDefinition struct {
	Key            string             `json:"key" yaml:"key"`
	Label          string             `json:"label" yaml:"label"`
	LabelLocalized map[string]string  `json:"label_localized,omitempty" yaml:"label_localized,omitempty"`
	Unit           string             `json:"unit,omitempty" yaml:"unit,omitempty"`
	Group          string             `json:"group" yaml:"group"`
	Format         MetricFormat       `json:"format,omitempty" yaml:"format,omitempty"`
	Thresholds     *Thresholds        `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Direction      ThresholdDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// CatalogHook lets packages extend every new catalog during init().
type CatalogHook func(c *Catalog) error

var (
	catalogHookMu sync.Mutex
	catalogHooks  []CatalogHook
)

// RegisterCatalogHook registers a hook executed against new catalogs.
func RegisterCatalogHook(h CatalogHook) {
	catalogHookMu.Lock()
	defer catalogHookMu.Unlock()
	catalogHooks = append(catalogHooks, h)
}

// Catalog holds widget type and metric definitions. Reads are safe for
// concurrent use.
type Catalog struct {
	mu          sync.RWMutex
	types       map[WidgetType]WidgetTypeDefinition
	typeOrder   []WidgetType
	metrics     map[string]MetricDefinition
	metricOrder []string
}

// NewCatalog builds a catalog seeded with the built-in definitions and
// applies registered hooks.
func NewCatalog() *Catalog {
	c := &Catalog{
		types:   map[WidgetType]WidgetTypeDefinition{},
		metrics: map[string]MetricDefinition{},
	}
	for _, def := range DefaultWidgetTypes() {
		_ = c.RegisterWidgetType(def)
	}
	for _, def := range DefaultMetrics() {
		_ = c.RegisterMetric(def)
	}
	_ = c.ApplyHooks()
	return c
}

// ApplyHooks executes registered catalog hooks.
func (c *Catalog) ApplyHooks() error {
	catalogHookMu.Lock()
	defer catalogHookMu.Unlock()
	for _, hook := range catalogHooks {
		if err := hook(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterWidgetType adds or replaces a widget type definition.
func (c *Catalog) RegisterWidgetType(def WidgetTypeDefinition) error {
	if def.Type == "" {
		return errors.New("widget type is required")
	}
	if def.Nodes == "" {
		def.Nodes = CardinalitySingle
	}
	if def.Metrics == "" {
		def.Metrics = CardinalitySingle
	}
	if def.Nodes == CardinalityAuto {
		return errors.New("node cardinality cannot be auto", j.KV("type", def.Type))
	}
	if def.MinSize.W < globalMinSize.W || def.MinSize.H < globalMinSize.H {
		def.MinSize = Size{W: max(def.MinSize.W, globalMinSize.W), H: max(def.MinSize.H, globalMinSize.H)}
	}
	if def.DefaultSize.W == 0 || def.DefaultSize.H == 0 {
		def.DefaultSize = globalDefaultSize
	}
	def.DefaultSize.W = min(max(def.DefaultSize.W, def.MinSize.W), GridColumns)
	def.DefaultSize.H = max(def.DefaultSize.H, def.MinSize.H)
	def.LabelLocalized = normalizeLocaleMap(def.LabelLocalized)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.types[def.Type]; !ok {
		c.typeOrder = append(c.typeOrder, def.Type)
	}
	c.types[def.Type] = def
	return nil
}

// RegisterMetric adds or replaces a metric definition.
func (c *Catalog) RegisterMetric(def MetricDefinition) error {
	if def.Key == "" {
		return errors.New("metric key is required")
	}
	if def.Format == "" {
		def.Format = FormatNumber
	}
	if def.Thresholds != nil && def.Direction == "" {
		def.Direction = DirectionAbove
	}
	if def.Group == "" {
		def.Group = GroupDevice
	}
	def.LabelLocalized = normalizeLocaleMap(def.LabelLocalized)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.metrics[def.Key]; !ok {
		c.metricOrder = append(c.metricOrder, def.Key)
	}
	c.metrics[def.Key] = def
	return nil
}

// WidgetType returns the definition for t.
func (c *Catalog) WidgetType(t WidgetType) (WidgetTypeDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.types[t]
	return def, ok
}

// Metric returns the definition for key.
func (c *Catalog) Metric(key string) (MetricDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.metrics[key]
	return def, ok
}

// WidgetTypes returns definitions in registration order.
func (c *Catalog) WidgetTypes() []WidgetTypeDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]WidgetTypeDefinition, 0, len(c.typeOrder))
	for _, t := range c.typeOrder {
		out = append(out, c.types[t])
	}
	return out
}

// Metrics returns definitions in registration order.
func (c *Catalog) Metrics() []MetricDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MetricDefinition, 0, len(c.metricOrder))
	for _, key := range c.metricOrder {
		out = append(out, c.metrics[key])
	}
	return out
}

// MetricsByGroup returns metric definitions grouped for the widget form.
func (c *Catalog) MetricsByGroup() map[string][]MetricDefinition {
	out := make(map[string][]MetricDefinition, len(metricGroups))
	for _, def := range c.Metrics() {
		out[def.Group] = append(out[def.Group], def)
	}
	return out
}

// DefaultSize is the auto-placement footprint for a widget type and mode.
// Chart mode raises it to at least the chart footprint.
func (c *Catalog) DefaultSize(t WidgetType, mode DisplayMode) Size {
	size := globalDefaultSize
	if def, ok := c.WidgetType(t); ok {
		size = def.DefaultSize
	}
	if mode == DisplayChart {
		size.W = max(size.W, chartDefaultSize.W)
		size.H = max(size.H, chartDefaultSize.H)
	}
	return size
}

// MinSize is the smallest legible footprint for a widget type and mode,
// falling back to the global minimum for unknown types.
func (c *Catalog) MinSize(t WidgetType, mode DisplayMode) Size {
	size := globalMinSize
	if def, ok := c.WidgetType(t); ok {
		size = def.MinSize
	}
	if mode == DisplayChart {
		size.W = max(size.W, chartMinSize.W)
		size.H = max(size.H, chartMinSize.H)
	}
	return size
}

// DefaultWidgetTypes returns the built-in widget variants.
func DefaultWidgetTypes() []WidgetTypeDefinition {
	return []WidgetTypeDefinition{
		{
			Type:        WidgetSingleMetric,
			Label:       "Single Metric",
			Description: "One metric for one node",
			Nodes:       CardinalitySingle,
			Metrics:     CardinalitySingle,
			DefaultSize: Size{W: 3, H: 2},
			MinSize:     Size{W: 2, H: 2},
		},
		{
			Type:        WidgetMultiMetric,
			Label:       "Multi Metric",
			Description: "Several metrics for one node",
			Nodes:       CardinalitySingle,
			Metrics:     CardinalityMulti,
			Chartable:   true,
			DefaultSize: Size{W: 4, H: 3},
			MinSize:     Size{W: 3, H: 2},
		},
		{
			Type:        WidgetNodeStatus,
			Label:       "Node Status",
			Description: "Curated status card for one node",
			Nodes:       CardinalitySingle,
			Metrics:     CardinalityAuto,
			DefaultSize: Size{W: 4, H: 3},
			MinSize:     Size{W: 3, H: 3},
		},
		{
			Type:        WidgetMultiNodeCompare,
			Label:       "Multi-Node Compare",
			Description: "One metric across several nodes",
			Nodes:       CardinalityMulti,
			Metrics:     CardinalitySingle,
			Chartable:   true,
			DefaultSize: Size{W: 6, H: 3},
			MinSize:     Size{W: 4, H: 2},
		},
	}
}

func thresholds(warning, danger float64) *Thresholds {
	return &Thresholds{Warning: warning, Danger: danger}
}

// DefaultMetrics returns the built-in metric catalog.
func DefaultMetrics() []MetricDefinition {
	return []MetricDefinition{
		{Key: "battery_level", Label: "Battery", Unit: "%", Group: GroupDevice, Thresholds: thresholds(40, 20), Direction: DirectionBelow},
		{Key: "voltage", Label: "Voltage", Unit: "V", Group: GroupDevice, Thresholds: thresholds(3.6, 3.3), Direction: DirectionBelow},
		{Key: "channel_utilization", Label: "Channel Utilization", Unit: "%", Group: GroupDevice, Thresholds: thresholds(50, 75), Direction: DirectionAbove},
		{Key: "air_util_tx", Label: "Air Util TX", Unit: "%", Group: GroupDevice, Thresholds: thresholds(10, 25), Direction: DirectionAbove},
		{Key: "uptime_seconds", Label: "Uptime", Group: GroupDevice, Format: FormatDuration},

		{Key: "temperature", Label: "Temperature", Unit: "°C", Group: GroupEnvironment, Thresholds: thresholds(35, 45), Direction: DirectionAbove},
		{Key: "relative_humidity", Label: "Humidity", Unit: "%", Group: GroupEnvironment, Thresholds: thresholds(80, 90), Direction: DirectionAbove},
		{Key: "barometric_pressure", Label: "Pressure", Unit: "hPa", Group: GroupEnvironment},
		{Key: "gas_resistance", Label: "Gas Resistance", Unit: "MΩ", Group: GroupEnvironment},
		{Key: "iaq", Label: "IAQ", Group: GroupEnvironment, Thresholds: thresholds(100, 200), Direction: DirectionAbove},
		{Key: "lux", Label: "Light", Unit: "lx", Group: GroupEnvironment},

		{Key: "ch1_voltage", Label: "Ch1 Voltage", Unit: "V", Group: GroupPower},
		{Key: "ch1_current", Label: "Ch1 Current", Unit: "mA", Group: GroupPower},
		{Key: "ch2_voltage", Label: "Ch2 Voltage", Unit: "V", Group: GroupPower},
		{Key: "ch2_current", Label: "Ch2 Current", Unit: "mA", Group: GroupPower},

		{Key: "pm10_standard", Label: "PM1.0", Unit: "µg/m³", Group: GroupAirQuality},
		{Key: "pm25_standard", Label: "PM2.5", Unit: "µg/m³", Group: GroupAirQuality, Thresholds: thresholds(35, 55), Direction: DirectionAbove},
		{Key: "pm100_standard", Label: "PM10", Unit: "µg/m³", Group: GroupAirQuality, Thresholds: thresholds(150, 250), Direction: DirectionAbove},
		{Key: "co2", Label: "CO₂", Unit: "ppm", Group: GroupAirQuality, Thresholds: thresholds(1000, 2000), Direction: DirectionAbove},
	}
}
