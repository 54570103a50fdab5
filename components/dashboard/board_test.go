package dashboard

import (
	"context"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dangerView(id string) WidgetView {
	return WidgetView{
		WidgetID: id,
		Type:     WidgetSingleMetric,
		Title:    "Battery",
		State:    ViewOK,
		Tiles: []MetricTile{{
			Key: "battery_level", Label: "Battery", Unit: "%", Value: "15", Status: StatusDanger, HasValue: true,
		}},
	}
}

func TestViewBoardPutAndRetain(t *testing.T) {
	b := NewViewBoard(nil)
	b.Put(dangerView("w1"))
	b.Put(dangerView("w2"))
	b.Put(dangerView("w3"))

	views := b.Views([]string{"w3", "missing", "w1"})
	require.Len(t, views, 2)
	assert.Equal(t, "w3", views[0].WidgetID)
	assert.Equal(t, "w1", views[1].WidgetID)

	b.Retain([]string{"w2"})
	_, ok := b.View("w1")
	assert.False(t, ok)
	_, ok = b.View("w2")
	assert.True(t, ok)
}

func TestViewBoardBroadcastsEvents(t *testing.T) {
	b := NewViewBoard(nil)
	ctx := context.Background()
	events, cancel := b.Subscribe()

	b.Put(dangerView("w1"))
	ev := <-events
	assert.Equal(t, "view", ev.Kind)
	require.NotNil(t, ev.View)
	assert.Equal(t, "w1", ev.View.WidgetID)

	b.DashboardChanged(ctx, ChangeEvent{Reason: "widget.delete", WidgetID: "w1"})
	ev = <-events
	assert.Equal(t, "layout", ev.Kind)
	require.NotNil(t, ev.Change)
	assert.Equal(t, "widget.delete", ev.Change.Reason)
	_, ok := b.View("w1")
	assert.False(t, ok)

	b.Notify(ctx, Notice{Level: NoticeTransient, Message: "Widgets cannot overlap"})
	ev = <-events
	assert.Equal(t, "notice", ev.Kind)
	require.NotNil(t, ev.Notice)
	assert.Equal(t, "Widgets cannot overlap", ev.Notice.Message)

	cancel()
	_, open := <-events
	assert.False(t, open)
	// Cancelling twice is harmless.
	cancel()
}

func TestViewBoardHTML(t *testing.T) {
	templates, err := NewTemplateRenderer()
	jtest.RequireNil(t, err)
	b := NewViewBoard(templates)
	b.theme = DefaultTheme("light")

	b.Put(dangerView("w1"))
	html, err := b.HTML("w1")
	jtest.RequireNil(t, err)
	assert.Contains(t, html, `data-widget-id="w1"`)
	assert.Contains(t, html, "status-danger")
	assert.Contains(t, html, "15")
	assert.Contains(t, html, "--status-danger: #dc2626")

	b.Put(WidgetView{WidgetID: "w2", Type: WidgetSingleMetric, State: ViewNoData, Message: noDataText})
	html, err = b.HTML("w2")
	jtest.RequireNil(t, err)
	assert.Contains(t, html, "widget-empty")
	assert.Contains(t, html, noDataText)

	b.Put(WidgetView{
		WidgetID: "w3", Type: WidgetMultiMetric, State: ViewOK,
		Chart: &ChartView{HTML: `<div id="chart-w3"></div>`, Hours: 48, HourOptions: ChartHourOptions, Series: 1},
	})
	html, err = b.HTML("w3")
	jtest.RequireNil(t, err)
	assert.Contains(t, html, `<div id="chart-w3"></div>`)
	assert.Contains(t, html, `data-hours="168"`)
	assert.Contains(t, html, "7d")

	_, err = b.HTML("missing")
	jtest.Require(t, ErrNotFound, err)
}

func TestViewBoardHTMLWithoutTemplates(t *testing.T) {
	b := NewViewBoard(nil)
	b.Put(dangerView("w1"))

	_, err := b.HTML("w1")
	assert.Error(t, err)
}

func TestViewTemplateSelection(t *testing.T) {
	cases := map[string]struct {
		view WidgetView
		want string
	}{
		"metrics":     {WidgetView{Type: WidgetMultiMetric, State: ViewOK}, "widget_metrics"},
		"status":      {WidgetView{Type: WidgetNodeStatus, State: ViewOK}, "widget_node_status"},
		"compare":     {WidgetView{Type: WidgetMultiNodeCompare, State: ViewOK}, "widget_compare"},
		"error":       {WidgetView{Type: WidgetNodeStatus, State: ViewError}, "widget_empty"},
		"chart empty": {WidgetView{Type: WidgetMultiMetric, State: ViewNoData, Chart: &ChartView{}}, "widget_chart"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, viewTemplate(tc.view))
		})
	}
}
