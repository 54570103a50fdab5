package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayout() *LayoutEngine {
	return NewLayoutEngine(NewCatalog(), LayoutOptions{})
}

func singleMetricWidgets(n int) []Widget {
	widgets := make([]Widget, n)
	for i := range widgets {
		widgets[i] = Widget{ID: fmt.Sprintf("w%d", i+1), Type: WidgetSingleMetric}
	}
	return widgets
}

func TestAutoPlacePacksRowMajor(t *testing.T) {
	layout := newTestLayout()
	widgets := singleMetricWidgets(5)

	placed := layout.AutoPlace(widgets)

	assert.Equal(t, 5, placed)
	assert.Equal(t, Rect{Col: 1, Row: 1, W: 3, H: 2}, *widgets[0].Layout)
	assert.Equal(t, Rect{Col: 4, Row: 1, W: 3, H: 2}, *widgets[1].Layout)
	assert.Equal(t, Rect{Col: 10, Row: 1, W: 3, H: 2}, *widgets[3].Layout)
	assert.Equal(t, Rect{Col: 1, Row: 3, W: 3, H: 2}, *widgets[4].Layout)
}

func TestAutoPlaceThirteenthWidgetLandsLower(t *testing.T) {
	layout := newTestLayout()
	widgets := singleMetricWidgets(13)

	layout.AutoPlace(widgets)

	for i := 0; i < 12; i++ {
		assert.Less(t, widgets[i].Layout.Row, widgets[12].Layout.Row, "widget %d", i+1)
	}
	assert.Empty(t, Overlapping(widgets))
}

func TestAutoPlaceKeepsPlacedWidgets(t *testing.T) {
	layout := newTestLayout()
	widgets := []Widget{
		{ID: "fixed", Type: WidgetSingleMetric, Layout: &Rect{Col: 1, Row: 1, W: 6, H: 2}},
		{ID: "a", Type: WidgetMultiNodeCompare},
		{ID: "b", Type: WidgetSingleMetric},
	}

	placed := layout.AutoPlace(widgets)

	assert.Equal(t, 2, placed)
	assert.Equal(t, Rect{Col: 1, Row: 1, W: 6, H: 2}, *widgets[0].Layout)
	assert.Equal(t, Rect{Col: 7, Row: 1, W: 6, H: 3}, *widgets[1].Layout)
	assert.Equal(t, Rect{Col: 1, Row: 3, W: 3, H: 2}, *widgets[2].Layout)
	assert.Empty(t, Overlapping(widgets))
}

func TestAutoPlaceIsIdempotent(t *testing.T) {
	layout := newTestLayout()
	widgets := append(singleMetricWidgets(7),
		Widget{ID: "chart", Type: WidgetMultiMetric, DisplayMode: DisplayChart},
		Widget{ID: "status", Type: WidgetNodeStatus},
	)
	layout.AutoPlace(widgets)
	first := make([]Rect, len(widgets))
	for i, w := range widgets {
		first[i] = *w.Layout
	}

	assert.Zero(t, layout.AutoPlace(widgets))
	for i, w := range widgets {
		assert.Equal(t, first[i], *w.Layout)
	}
	assert.Empty(t, Overlapping(widgets))
}

func TestAutoPlaceFallsBackToOrigin(t *testing.T) {
	layout := NewLayoutEngine(NewCatalog(), LayoutOptions{PlacementSearchRows: 2})
	widgets := []Widget{
		{ID: "wall", Type: WidgetSingleMetric, Layout: &Rect{Col: 1, Row: 1, W: 12, H: 4}},
		{ID: "late", Type: WidgetSingleMetric},
	}

	layout.AutoPlace(widgets)

	assert.Equal(t, Rect{Col: 1, Row: 1, W: 3, H: 2}, *widgets[1].Layout)
}

func TestChartModeUsesChartFootprint(t *testing.T) {
	layout := newTestLayout()
	size := layout.DefaultFootprint(Widget{Type: WidgetMultiMetric, DisplayMode: DisplayChart})
	assert.Equal(t, Size{W: 6, H: 4}, size)
}

func TestClampResizeBounds(t *testing.T) {
	layout := newTestLayout()
	w := Widget{ID: "w", Type: WidgetMultiNodeCompare, Layout: &Rect{Col: 7, Row: 2, W: 6, H: 3}}

	for _, tc := range []struct {
		width, height int
		want          Rect
	}{
		{width: -5, height: -5, want: Rect{Col: 7, Row: 2, W: 4, H: 2}},
		{width: 100, height: 100, want: Rect{Col: 7, Row: 2, W: 6, H: DefaultMaxWidgetHeight}},
		{width: 5, height: 4, want: Rect{Col: 7, Row: 2, W: 5, H: 4}},
	} {
		got := layout.ClampResize(w, tc.width, tc.height)
		assert.Equal(t, tc.want, got)
	}
}

func TestClampResizeHoldsForAnyInput(t *testing.T) {
	layout := newTestLayout()
	for _, typ := range []WidgetType{WidgetSingleMetric, WidgetMultiMetric, WidgetNodeStatus, WidgetMultiNodeCompare} {
		for col := 1; col <= 9; col++ {
			w := Widget{ID: "w", Type: typ, Layout: &Rect{Col: col, Row: 1, W: 2, H: 2}}
			minSize := layout.MinFootprint(w)
			for _, raw := range []int{-100, 0, 1, 3, 7, 12, 40} {
				got := layout.ClampResize(w, raw, raw)
				assert.GreaterOrEqual(t, got.W, min(minSize.W, GridColumns-col+1))
				assert.LessOrEqual(t, got.W, GridColumns-col+1)
				assert.GreaterOrEqual(t, got.H, minSize.H)
				assert.LessOrEqual(t, got.H, layout.MaxHeight())
			}
		}
	}
}

func TestClampMoveBounds(t *testing.T) {
	layout := newTestLayout()
	w := Widget{ID: "w", Type: WidgetSingleMetric, Layout: &Rect{Col: 1, Row: 1, W: 4, H: 2}}

	assert.Equal(t, Rect{Col: 9, Row: 1, W: 4, H: 2}, layout.ClampMove(w, 12, -3))
	assert.Equal(t, Rect{Col: 1, Row: 30, W: 4, H: 2}, layout.ClampMove(w, -2, 30))
}

func TestFitToGridRepairsStoredRect(t *testing.T) {
	layout := newTestLayout()
	w := Widget{ID: "w", Type: WidgetNodeStatus}

	got := layout.FitToGrid(w, Rect{Col: 11, Row: 0, W: 1, H: 20})

	assert.Equal(t, Rect{Col: 10, Row: 1, W: 3, H: DefaultMaxWidgetHeight}, got)
}

func TestCollidesAndNearestFreeRow(t *testing.T) {
	layout := newTestLayout()
	widgets := []Widget{
		{ID: "a", Layout: &Rect{Col: 1, Row: 1, W: 4, H: 2}},
		{ID: "b", Layout: &Rect{Col: 1, Row: 3, W: 4, H: 2}},
	}
	candidate := Rect{Col: 2, Row: 2, W: 3, H: 2}

	require.True(t, layout.Collides(widgets, "c", candidate))
	assert.False(t, layout.Collides(widgets, "a", Rect{Col: 1, Row: 1, W: 4, H: 2}))

	free, ok := layout.NearestFreeRow(widgets, "c", candidate)
	require.True(t, ok)
	assert.Equal(t, Rect{Col: 2, Row: 5, W: 3, H: 2}, free)
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{Col: 1, Row: 1, W: 3, H: 2}
	assert.True(t, a.Overlaps(Rect{Col: 3, Row: 2, W: 2, H: 2}))
	assert.False(t, a.Overlaps(Rect{Col: 4, Row: 1, W: 2, H: 2}))
	assert.False(t, a.Overlaps(Rect{Col: 1, Row: 3, W: 3, H: 2}))
}
