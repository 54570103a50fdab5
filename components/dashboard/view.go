package dashboard

// ViewState is the outcome of rendering one widget body.
type ViewState string

const (
	ViewOK     ViewState = "ok"
	ViewNoData ViewState = "no_data"
	ViewError  ViewState = "error"
)

// MetricTile is a single formatted metric value.
type MetricTile struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Unit     string `json:"unit,omitempty"`
	Value    string `json:"value"`
	Status   Status `json:"status,omitempty"`
	HasValue bool   `json:"has_value"`
}

// StatusField is one line of a node status card.
type StatusField struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Status Status `json:"status,omitempty"`
}

// CompareRow is one node's value in a multi-node comparison.
type CompareRow struct {
	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`
	Value    string `json:"value"`
	Unit     string `json:"unit,omitempty"`
	Status   Status `json:"status,omitempty"`
	HasValue bool   `json:"has_value"`
}

// ChartView carries rendered chart markup and the lookback selector state.
type ChartView struct {
	HTML        string `json:"html"`
	Hours       int    `json:"hours"`
	HourOptions []int  `json:"hour_options"`
	Series      int    `json:"series"`
}

// WidgetView is the rendered body of a widget.
type WidgetView struct {
	WidgetID   string        `json:"widget_id"`
	Type       WidgetType    `json:"type"`
	Title      string        `json:"title"`
	State      ViewState     `json:"state"`
	Message    string        `json:"message,omitempty"`
	Tiles      []MetricTile  `json:"tiles,omitempty"`
	Fields     []StatusField `json:"fields,omitempty"`
	Rows       []CompareRow  `json:"rows,omitempty"`
	Chart      *ChartView    `json:"chart,omitempty"`
	RenderedAt int64         `json:"rendered_at"`
}

const noDataText = "No data"
