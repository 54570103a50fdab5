package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/luno/jettison/errors"
)

const (
	defaultChartHeight = "280px"
	// MaxHistoryHours bounds history lookbacks.
	MaxHistoryHours = 168
)

// ChartSeries is one line trace.
type ChartSeries struct {
	Name   string
	Points []ChartPoint
}

// ChartPoint is a sample at TimeMs. A nil Value is a gap.
type ChartPoint struct {
	TimeMs int64
	Value  *float64
}

// ChartBuilder renders time-series line charts with go-echarts.
type ChartBuilder struct {
	cache      RenderCache
	theme      string
	height     string
	assetsHost string
}

// ChartOption customizes a ChartBuilder.
type ChartOption func(*ChartBuilder)

// WithChartCache injects a render cache. Nil disables caching.
func WithChartCache(cache RenderCache) ChartOption {
	return func(b *ChartBuilder) {
		b.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(b *ChartBuilder) {
		b.theme = theme
	}
}

// WithChartHeight sets the rendered chart height.
func WithChartHeight(height string) ChartOption {
	return func(b *ChartBuilder) {
		b.height = height
	}
}

// WithChartAssetsHost rewrites the assets host so the echarts runtime loads from a CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(b *ChartBuilder) {
		b.assetsHost = host
	}
}

// NewChartBuilder builds a chart builder. Charts are rendered on every
// call unless a cache is injected with WithChartCache.
func NewChartBuilder(options ...ChartOption) *ChartBuilder {
	b := &ChartBuilder{
		theme:  types.ThemeWesteros,
		height: defaultChartHeight,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// LineChart renders overlaid line traces on a time axis and returns the HTML.
func (b *ChartBuilder) LineChart(title, unit string, series []ChartSeries) (string, error) {
	if len(series) == 0 {
		return "", errors.New("chart series is required")
	}
	render := func() (string, error) {
		return b.renderLine(title, unit, series)
	}
	if b.cache == nil {
		return render()
	}
	return b.cache.GetOrRender(b.cacheKey(title, unit, series), render)
}

func (b *ChartBuilder) renderLine(title, unit string, series []ChartSeries) (string, error) {
	line := charts.NewLine()
	initOpts := opts.Initialization{
		Theme:  b.theme,
		Width:  "100%",
		Height: b.height,
	}
	if b.assetsHost != "" {
		initOpts.AssetsHost = b.assetsHost
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(series) > 1)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	for _, s := range series {
		line.AddSeries(s.Name, toLineData(s.Points))
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderChart(line)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toLineData(points []ChartPoint) []opts.LineData {
	data := make([]opts.LineData, 0, len(points))
	for _, point := range points {
		if point.Value == nil {
			data = append(data, opts.LineData{Value: []any{point.TimeMs, "-"}})
			continue
		}
		data = append(data, opts.LineData{Value: []any{point.TimeMs, *point.Value}})
	}
	return data
}

func (b *ChartBuilder) cacheKey(title, unit string, series []ChartSeries) string {
	payload := map[string]any{"title": title, "unit": unit, "theme": b.theme}
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Name
		payload["s"+fmt.Sprint(i)] = s.Points
	}
	payload["names"] = strings.Join(names, "|")
	return "line:" + configHash(payload)
}

// ClampHistoryHours bounds a lookback to [1, 168]; zero means the default.
func ClampHistoryHours(hours int) int {
	if hours == 0 {
		return DefaultChartHours
	}
	return min(max(hours, 1), MaxHistoryHours)
}

// SeriesFromHistory converts raw history samples into chart points.
// Samples whose x cannot be parsed as a timestamp are skipped.
func SeriesFromHistory(name string, samples []HistoryPoint) ChartSeries {
	points := make([]ChartPoint, 0, len(samples))
	for _, sample := range samples {
		ts, ok := timestampMillis(sample.X)
		if !ok {
			continue
		}
		points = append(points, ChartPoint{TimeMs: ts, Value: sample.Y})
	}
	return ChartSeries{Name: name, Points: points}
}

// timestampMillis accepts epoch seconds, epoch milliseconds or RFC3339 strings.
func timestampMillis(x any) (int64, bool) {
	if s, ok := x.(string); ok {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), true
			}
		}
	}
	v, ok := numericValue(x)
	if !ok {
		return 0, false
	}
	// Anything below 1e11 is treated as epoch seconds.
	if v < 1e11 {
		v *= 1000
	}
	return int64(v), true
}
