package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	calls int
}

func (c *countingCache) GetOrRender(_ string, render func() (string, error)) (string, error) {
	c.calls++
	return render()
}

func ptr(v float64) *float64 { return &v }

func TestLineChartRendersSeries(t *testing.T) {
	builder := NewChartBuilder(WithChartCache(nil), WithChartHeight("200px"))
	series := []ChartSeries{
		{Name: "Battery", Points: []ChartPoint{{TimeMs: 1700000000000, Value: ptr(80)}, {TimeMs: 1700000060000, Value: nil}}},
		{Name: "Voltage", Points: []ChartPoint{{TimeMs: 1700000000000, Value: ptr(3.9)}}},
	}

	html, err := builder.LineChart("Node A", "%", series)

	require.NoError(t, err)
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Battery")
	assert.Contains(t, html, "Voltage")
	assert.Contains(t, html, "200px")
}

func TestLineChartRequiresSeries(t *testing.T) {
	_, err := NewChartBuilder().LineChart("empty", "", nil)
	require.Error(t, err)
}

func TestLineChartUsesCache(t *testing.T) {
	cache := &countingCache{}
	builder := NewChartBuilder(WithChartCache(cache))
	series := []ChartSeries{{Name: "Battery", Points: []ChartPoint{{TimeMs: 1, Value: ptr(1)}}}}

	_, err := builder.LineChart("t", "", series)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.calls)
}

func TestChartCacheKeyTracksData(t *testing.T) {
	builder := NewChartBuilder()
	a := []ChartSeries{{Name: "x", Points: []ChartPoint{{TimeMs: 1, Value: ptr(1)}}}}
	b := []ChartSeries{{Name: "x", Points: []ChartPoint{{TimeMs: 1, Value: ptr(2)}}}}

	assert.Equal(t, builder.cacheKey("t", "", a), builder.cacheKey("t", "", a))
	assert.NotEqual(t, builder.cacheKey("t", "", a), builder.cacheKey("t", "", b))
}

func TestClampHistoryHours(t *testing.T) {
	assert.Equal(t, DefaultChartHours, ClampHistoryHours(0))
	assert.Equal(t, 1, ClampHistoryHours(-4))
	assert.Equal(t, 48, ClampHistoryHours(48))
	assert.Equal(t, MaxHistoryHours, ClampHistoryHours(1000))
}

func TestSeriesFromHistory(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	samples := []HistoryPoint{
		{X: ts.Format(time.RFC3339), Y: ptr(3.9)},
		{X: float64(ts.Unix()), Y: ptr(3.8)},
		{X: float64(ts.UnixMilli()), Y: nil},
		{X: "yesterday", Y: ptr(1)},
	}

	series := SeriesFromHistory("Voltage", samples)

	require.Len(t, series.Points, 3)
	for _, p := range series.Points {
		assert.Equal(t, ts.UnixMilli(), p.TimeMs)
	}
	assert.Nil(t, series.Points[2].Value)
}
