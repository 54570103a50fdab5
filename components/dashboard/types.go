package dashboard

import "context"

// WidgetType identifies one of the closed set of widget variants.
type WidgetType string

const (
	WidgetSingleMetric     WidgetType = "single_metric"
	WidgetMultiMetric      WidgetType = "multi_metric"
	WidgetNodeStatus       WidgetType = "node_status"
	WidgetMultiNodeCompare WidgetType = "multi_node_compare"

	// legacyMultiMetricChart is accepted on load and normalized to
	// multi_metric in chart mode.
	legacyMultiMetricChart WidgetType = "multi_metric_chart"
)

// DisplayMode toggles metric-bearing widgets between value tiles and charts.
type DisplayMode string

const (
	DisplayDataPoints DisplayMode = "data_points"
	DisplayChart      DisplayMode = "chart"
)

// Rect is a widget's 1-indexed grid position and footprint.
type Rect struct {
	Col int `json:"col" yaml:"col"`
	Row int `json:"row" yaml:"row"`
	W   int `json:"w" yaml:"w"`
	H   int `json:"h" yaml:"h"`
}

// Overlaps reports whether two rectangles share at least one cell.
func (r Rect) Overlaps(o Rect) bool {
	return r.Col < o.Col+o.W && o.Col < r.Col+r.W &&
		r.Row < o.Row+o.H && o.Row < r.Row+r.H
}

// Widget is a bound visualization placed on a dashboard grid.
type Widget struct {
	ID          string      `json:"id"`
	Type        WidgetType  `json:"type"`
	Title       string      `json:"title"`
	Nodes       []string    `json:"nodes"`
	NodeNames   []string    `json:"nodeNames"`
	Metrics     []string    `json:"metrics,omitempty"`
	DisplayMode DisplayMode `json:"displayMode,omitempty"`
	ChartHours  int         `json:"chartHours,omitempty"`
	Layout      *Rect       `json:"layout,omitempty"`
	CreatedAt   int64       `json:"createdAt"`
	UpdatedAt   int64       `json:"updatedAt"`
}

// IsChart reports whether the widget renders in chart mode.
func (w Widget) IsChart() bool {
	return w.DisplayMode == DisplayChart
}

func (w Widget) clone() Widget {
	out := w
	out.Nodes = append([]string(nil), w.Nodes...)
	out.NodeNames = append([]string(nil), w.NodeNames...)
	out.Metrics = append([]string(nil), w.Metrics...)
	if w.Layout != nil {
		rect := *w.Layout
		out.Layout = &rect
	}
	return out
}

// Dashboard is a named, ordered collection of widgets.
type Dashboard struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Widgets   []Widget `json:"widgets"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

func (d Dashboard) clone() Dashboard {
	out := d
	out.Widgets = make([]Widget, len(d.Widgets))
	for i, w := range d.Widgets {
		out.Widgets[i] = w.clone()
	}
	return out
}

func (d *Dashboard) widgetIndex(id string) int {
	for i := range d.Widgets {
		if d.Widgets[i].ID == id {
			return i
		}
	}
	return -1
}

// Collection is the persisted unit: every dashboard plus the active pointer.
type Collection struct {
	Dashboards        []Dashboard `json:"dashboards"`
	ActiveDashboardID string      `json:"active_dashboard_id"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c Collection) Clone() Collection {
	out := Collection{ActiveDashboardID: c.ActiveDashboardID}
	if c.Dashboards != nil {
		out.Dashboards = make([]Dashboard, len(c.Dashboards))
		for i, d := range c.Dashboards {
			out.Dashboards[i] = d.clone()
		}
	}
	return out
}

// Empty reports whether the collection holds no dashboards.
func (c Collection) Empty() bool {
	return len(c.Dashboards) == 0
}

// WidgetSpec captures the user-editable fields of a widget (add/edit form).
type WidgetSpec struct {
	Type        WidgetType  `json:"type"`
	Title       string      `json:"title"`
	Nodes       []string    `json:"nodes"`
	NodeNames   []string    `json:"nodeNames,omitempty"`
	Metrics     []string    `json:"metrics,omitempty"`
	DisplayMode DisplayMode `json:"displayMode,omitempty"`
	ChartHours  int         `json:"chartHours,omitempty"`
}

// NodeTelemetry is one node's entry in a batched telemetry response.
type NodeTelemetry struct {
	NodeInfo  map[string]any `json:"node_info"`
	Telemetry map[string]any `json:"telemetry"`
	Error     string         `json:"error,omitempty"`
}

// TelemetryByNode maps node ids to their latest telemetry.
type TelemetryByNode map[string]NodeTelemetry

// HistoryPoint is a single time-series sample. Y is nil for gaps.
type HistoryPoint struct {
	X any      `json:"x"`
	Y *float64 `json:"y"`
}

// HistorySeries maps metric keys to their samples.
type HistorySeries map[string][]HistoryPoint

// NodeSummary is a node-picker search result.
type NodeSummary struct {
	NodeID      int64   `json:"node_id,omitempty"`
	HexID       string  `json:"hex_id"`
	LongName    string  `json:"long_name,omitempty"`
	ShortName   string  `json:"short_name,omitempty"`
	HWModel     string  `json:"hw_model,omitempty"`
	Role        string  `json:"role,omitempty"`
	LastUpdated float64 `json:"last_updated,omitempty"`
	PowerType   string  `json:"power_type,omitempty"`
}

// DisplayName prefers the long name, then the short name, then the hex id.
func (n NodeSummary) DisplayName() string {
	switch {
	case n.LongName != "":
		return n.LongName
	case n.ShortName != "":
		return n.ShortName
	default:
		return n.HexID
	}
}

// TelemetrySource fetches latest telemetry and history for nodes.
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context, nodeIDs []string) (TelemetryByNode, error)
	FetchHistory(ctx context.Context, nodeID string, hours int) (HistorySeries, error)
}

// NodeDirectory searches nodes for the widget form's node picker.
type NodeDirectory interface {
	SearchNodes(ctx context.Context, query string, limit int) ([]NodeSummary, error)
}

// RemoteStore is the authoritative per-user config store. LoadConfig
// returns found=false when the remote has no data yet.
type RemoteStore interface {
	LoadConfig(ctx context.Context) (cfg Collection, found bool, err error)
	SaveConfig(ctx context.Context, cfg Collection) error
}

// LocalCache stores the serialized collection under one well-known key.
// Load returns (nil, nil) when nothing is stored.
type LocalCache interface {
	Load() ([]byte, error)
	Save(data []byte) error
}
