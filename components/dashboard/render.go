package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// RenderContext is what a widget kind may use while rendering.
type RenderContext struct {
	Catalog *Catalog
	History TelemetrySource
	Charts  *ChartBuilder
	Locale  string
	Now     time.Time
}

// WidgetKind renders one widget variant. Each variant of the closed set
// has exactly one implementation.
type WidgetKind interface {
	Type() WidgetType
	Render(ctx context.Context, rc RenderContext, w Widget, data TelemetryByNode) WidgetView
}

var widgetKinds = map[WidgetType]WidgetKind{
	WidgetSingleMetric:     singleMetricKind{},
	WidgetMultiMetric:      multiMetricKind{},
	WidgetNodeStatus:       nodeStatusKind{},
	WidgetMultiNodeCompare: multiNodeCompareKind{},
}

// KindFor returns the renderer variant for a widget type.
func KindFor(t WidgetType) (WidgetKind, bool) {
	if t == legacyMultiMetricChart {
		t = WidgetMultiMetric
	}
	kind, ok := widgetKinds[t]
	return kind, ok
}

// RendererOptions configures a Renderer.
type RendererOptions struct {
	Catalog         *Catalog
	Board           *ViewBoard
	History         TelemetrySource
	Charts          *ChartBuilder
	Locale          string
	Clock           func() time.Time
	Instrumentation Instrumentation
}

// Renderer paints widget bodies onto a ViewBoard.
type Renderer struct {
	catalog *Catalog
	board   *ViewBoard
	history TelemetrySource
	charts  *ChartBuilder
	locale  string
	clock   func() time.Time
	instr   Instrumentation
}

// NewRenderer builds a renderer with safe defaults.
func NewRenderer(opts RendererOptions) *Renderer {
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog()
	}
	if opts.Board == nil {
		opts.Board = NewViewBoard(nil)
	}
	if opts.Charts == nil {
		opts.Charts = NewChartBuilder(WithChartCache(NewChartCache(DefaultChartCacheTTL)))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Renderer{
		catalog: opts.Catalog,
		board:   opts.Board,
		history: opts.History,
		charts:  opts.Charts,
		locale:  opts.Locale,
		clock:   opts.Clock,
		instr:   normalizeInstrumentation(opts.Instrumentation),
	}
}

// Board returns the view board widget bodies are written to.
func (r *Renderer) Board() *ViewBoard {
	return r.board
}

// Render resolves a widget's body from the batched telemetry and writes
// it to the board. It never fails; problems become no-data or error views.
func (r *Renderer) Render(ctx context.Context, w Widget, data TelemetryByNode) WidgetView {
	now := r.clock()
	rc := RenderContext{
		Catalog: r.catalog,
		History: r.history,
		Charts:  r.charts,
		Locale:  r.locale,
		Now:     now,
	}
	kind, ok := KindFor(w.Type)
	var view WidgetView
	if !ok {
		view = errorView(baseView(rc, w), errors.Wrap(ErrValidation, "unsupported widget type", j.KV("type", w.Type)))
	} else {
		view = kind.Render(ctx, rc, w, data)
	}
	view.RenderedAt = now.UnixMilli()
	r.board.Put(view)
	r.instr.Record(ctx, "dashboard.widget.render", map[string]any{
		"widget_id": w.ID,
		"state":     string(view.State),
	})
	return view
}

// RenderError replaces a widget body with an inline error.
func (r *Renderer) RenderError(ctx context.Context, w Widget, err error) WidgetView {
	view := errorView(baseView(RenderContext{Catalog: r.catalog, Locale: r.locale}, w), err)
	view.RenderedAt = r.clock().UnixMilli()
	r.board.Put(view)
	return view
}

func baseView(rc RenderContext, w Widget) WidgetView {
	return WidgetView{
		WidgetID: w.ID,
		Type:     w.Type,
		Title:    widgetTitle(rc, w),
		State:    ViewOK,
	}
}

func widgetTitle(rc RenderContext, w Widget) string {
	if w.Title != "" {
		return w.Title
	}
	labels := make([]string, 0, len(w.Metrics))
	for _, key := range w.Metrics {
		if def, ok := rc.Catalog.Metric(key); ok {
			labels = append(labels, def.LabelFor(rc.Locale))
		} else {
			labels = append(labels, key)
		}
	}
	if len(labels) > 0 {
		return strings.Join(labels, ", ")
	}
	if def, ok := rc.Catalog.WidgetType(w.Type); ok {
		return def.LabelFor(rc.Locale)
	}
	return string(w.Type)
}

func noData(view WidgetView) WidgetView {
	view.State = ViewNoData
	view.Message = noDataText
	return view
}

func errorView(view WidgetView, err error) WidgetView {
	view.State = ViewError
	view.Message = "Failed to load data"
	if errors.Is(err, ErrValidation) {
		view.Message = "Unsupported widget"
	}
	view.Tiles, view.Fields, view.Rows, view.Chart = nil, nil, nil, nil
	return view
}

// nodeTelemetry returns a node's telemetry payload. Per-node errors and
// null payloads count as absent.
func nodeTelemetry(data TelemetryByNode, nodeID string) (map[string]any, bool) {
	entry, ok := data[nodeID]
	if !ok || entry.Error != "" || entry.Telemetry == nil {
		return nil, false
	}
	return entry.Telemetry, true
}

func metricTile(rc RenderContext, key string, telemetry map[string]any) MetricTile {
	tile := MetricTile{Key: key, Label: key, Value: noDataText}
	def, known := rc.Catalog.Metric(key)
	if known {
		tile.Label = def.LabelFor(rc.Locale)
		tile.Unit = def.Unit
	}
	v, ok := ResolveMetricValue(telemetry, key)
	if !ok {
		return tile
	}
	var defp *MetricDefinition
	if known {
		defp = &def
	}
	tile.Value = FormatMetricValue(v, defp)
	tile.Status = ClassifyStatus(v, defp)
	tile.HasValue = true
	return tile
}

type singleMetricKind struct{}

func (singleMetricKind) Type() WidgetType { return WidgetSingleMetric }

func (singleMetricKind) Render(_ context.Context, rc RenderContext, w Widget, data TelemetryByNode) WidgetView {
	view := baseView(rc, w)
	if len(w.Nodes) == 0 || len(w.Metrics) == 0 {
		return noData(view)
	}
	telemetry, ok := nodeTelemetry(data, w.Nodes[0])
	if !ok {
		return noData(view)
	}
	tile := metricTile(rc, w.Metrics[0], telemetry)
	if !tile.HasValue {
		return noData(view)
	}
	view.Tiles = []MetricTile{tile}
	return view
}

type multiMetricKind struct{}

func (multiMetricKind) Type() WidgetType { return WidgetMultiMetric }

func (multiMetricKind) Render(ctx context.Context, rc RenderContext, w Widget, data TelemetryByNode) WidgetView {
	view := baseView(rc, w)
	if len(w.Nodes) == 0 || len(w.Metrics) == 0 {
		return noData(view)
	}
	if w.IsChart() {
		return metricHistoryChart(ctx, rc, w, view)
	}
	telemetry, ok := nodeTelemetry(data, w.Nodes[0])
	if !ok {
		return noData(view)
	}
	view.Tiles = make([]MetricTile, 0, len(w.Metrics))
	for _, key := range w.Metrics {
		view.Tiles = append(view.Tiles, metricTile(rc, key, telemetry))
	}
	return view
}

// metricHistoryChart overlays one trace per selected metric for the
// widget's node.
func metricHistoryChart(ctx context.Context, rc RenderContext, w Widget, view WidgetView) WidgetView {
	hours := ClampHistoryHours(w.ChartHours)
	if rc.History == nil {
		return errorView(view, errors.Wrap(ErrFetch, "history source not configured"))
	}
	history, err := rc.History.FetchHistory(ctx, w.Nodes[0], hours)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "fetch history", j.MKV{"widget_id": w.ID, "node": w.Nodes[0]}))
		return errorView(view, err)
	}
	series := make([]ChartSeries, 0, len(w.Metrics))
	unit := ""
	for _, key := range w.Metrics {
		samples := history[key]
		if len(samples) == 0 {
			continue
		}
		label := key
		if def, ok := rc.Catalog.Metric(key); ok {
			label = def.LabelFor(rc.Locale)
			if unit == "" {
				unit = def.Unit
			}
		}
		series = append(series, SeriesFromHistory(label, samples))
	}
	return chartView(ctx, rc, view, hours, unit, series)
}

func chartView(ctx context.Context, rc RenderContext, view WidgetView, hours int, unit string, series []ChartSeries) WidgetView {
	view.Chart = &ChartView{Hours: hours, HourOptions: ChartHourOptions, Series: len(series)}
	if len(series) == 0 {
		view.State = ViewNoData
		view.Message = noDataText
		return view
	}
	html, err := rc.Charts.LineChart(view.Title, unit, series)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "render chart", j.KV("widget_id", view.WidgetID)))
		return errorView(view, err)
	}
	view.Chart.HTML = html
	return view
}

type nodeStatusKind struct{}

func (nodeStatusKind) Type() WidgetType { return WidgetNodeStatus }

type statusSource int

const (
	fromNodeInfo statusSource = iota
	fromMetric
	fromLastSeen
)

type statusFieldSpec struct {
	key    string
	label  string
	source statusSource
}

// nodeStatusFields is the curated node status card, in display order.
var nodeStatusFields = []statusFieldSpec{
	{key: "hw_model", label: "Hardware", source: fromNodeInfo},
	{key: "role", label: "Role", source: fromNodeInfo},
	{key: "firmware_version", label: "Firmware", source: fromNodeInfo},
	{key: "battery_level", source: fromMetric},
	{key: "voltage", source: fromMetric},
	{key: "channel_utilization", source: fromMetric},
	{key: "air_util_tx", source: fromMetric},
	{key: "uptime_seconds", source: fromMetric},
	{key: "temperature", source: fromMetric},
	{key: "relative_humidity", source: fromMetric},
	{key: "power_type", label: "Power", source: fromNodeInfo},
	{key: "last_updated", label: "Last Seen", source: fromLastSeen},
}

func (nodeStatusKind) Render(_ context.Context, rc RenderContext, w Widget, data TelemetryByNode) WidgetView {
	view := baseView(rc, w)
	if len(w.Nodes) == 0 {
		return noData(view)
	}
	entry, ok := data[w.Nodes[0]]
	if !ok || entry.Error != "" {
		return noData(view)
	}
	if w.Title == "" && len(w.NodeNames) > 0 {
		view.Title = w.NodeNames[0]
	}
	for _, spec := range nodeStatusFields {
		switch spec.source {
		case fromMetric:
			if entry.Telemetry == nil {
				continue
			}
			tile := metricTile(rc, spec.key, entry.Telemetry)
			if !tile.HasValue {
				continue
			}
			value := tile.Value
			if tile.Unit != "" {
				value += " " + tile.Unit
			}
			view.Fields = append(view.Fields, StatusField{Key: spec.key, Label: tile.Label, Value: value, Status: tile.Status})
		case fromNodeInfo:
			if value, ok := infoText(entry.NodeInfo[spec.key]); ok {
				view.Fields = append(view.Fields, StatusField{Key: spec.key, Label: spec.label, Value: value})
			}
		case fromLastSeen:
			if ts, ok := numericValue(entry.NodeInfo[spec.key]); ok && ts > 0 {
				age := rc.Now.Sub(time.Unix(int64(ts), 0)).Seconds()
				view.Fields = append(view.Fields, StatusField{Key: spec.key, Label: spec.label, Value: formatDuration(age) + " ago"})
			}
		}
	}
	if len(view.Fields) == 0 {
		return noData(view)
	}
	return view
}

func infoText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		val = strings.TrimSpace(val)
		return val, val != ""
	}
	if f, ok := numericValue(v); ok {
		return FormatMetricValue(f, nil), true
	}
	return "", false
}

type multiNodeCompareKind struct{}

func (multiNodeCompareKind) Type() WidgetType { return WidgetMultiNodeCompare }

func (multiNodeCompareKind) Render(ctx context.Context, rc RenderContext, w Widget, data TelemetryByNode) WidgetView {
	view := baseView(rc, w)
	if len(w.Nodes) == 0 || len(w.Metrics) == 0 {
		return noData(view)
	}
	if w.IsChart() {
		return nodeHistoryChart(ctx, rc, w, view)
	}
	key := w.Metrics[0]
	names := alignNames(w.Nodes, w.NodeNames)
	found := false
	for i, nodeID := range w.Nodes {
		row := CompareRow{NodeID: nodeID, NodeName: names[i], Value: noDataText}
		if telemetry, ok := nodeTelemetry(data, nodeID); ok {
			tile := metricTile(rc, key, telemetry)
			row.Value, row.Unit, row.Status, row.HasValue = tile.Value, tile.Unit, tile.Status, tile.HasValue
			found = found || tile.HasValue
		}
		view.Rows = append(view.Rows, row)
	}
	if !found {
		view.State = ViewNoData
		view.Message = noDataText
	}
	return view
}

// nodeHistoryChart overlays one trace per node for the widget's metric.
// Nodes whose history fails are skipped; if every node fails the widget
// shows an error.
func nodeHistoryChart(ctx context.Context, rc RenderContext, w Widget, view WidgetView) WidgetView {
	hours := ClampHistoryHours(w.ChartHours)
	if rc.History == nil {
		return errorView(view, errors.Wrap(ErrFetch, "history source not configured"))
	}
	key := w.Metrics[0]
	unit := ""
	if def, ok := rc.Catalog.Metric(key); ok {
		unit = def.Unit
	}
	names := alignNames(w.Nodes, w.NodeNames)
	series := make([]ChartSeries, 0, len(w.Nodes))
	var lastErr error
	failures := 0
	for i, nodeID := range w.Nodes {
		history, err := rc.History.FetchHistory(ctx, nodeID, hours)
		if err != nil {
			log.Error(ctx, errors.Wrap(err, "fetch history", j.MKV{"widget_id": w.ID, "node": nodeID}))
			lastErr = err
			failures++
			continue
		}
		if samples := history[key]; len(samples) > 0 {
			series = append(series, SeriesFromHistory(names[i], samples))
		}
	}
	if failures == len(w.Nodes) {
		return errorView(view, lastErr)
	}
	return chartView(ctx, rc, view, hours, unit, series)
}
