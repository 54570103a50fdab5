package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, source *stubSource, remote RemoteStore) *Controller {
	t.Helper()
	templates, err := NewTemplateRenderer()
	jtest.RequireNil(t, err)
	return NewController(ControllerOptions{
		Store: Options{
			NewID:       sequentialIDs(),
			Clock:       (&testClock{now: time.Unix(1700000000, 0)}).Now,
			Persistence: NewPersistence(PersistenceOptions{Remote: remote, DebounceWindow: 10 * time.Millisecond}),
		},
		Source:    source,
		Templates: templates,
		Charts:    NewChartBuilder(WithChartCache(nil)),
	})
}

func TestControllerRendersBatteryWidget(t *testing.T) {
	source := &stubSource{telemetry: TelemetryByNode{
		"!aabbccdd": {Telemetry: map[string]any{"battery_level": 15.0}},
	}}
	c := newTestController(t, source, nil)
	ctx := context.Background()

	_, err := c.Store().CreateDashboard(ctx, "A")
	jtest.RequireNil(t, err)
	w, err := c.Store().AddWidget(ctx, batteryWidget("!aabbccdd"))
	jtest.RequireNil(t, err)

	views, err := c.Render(ctx)
	jtest.RequireNil(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Tiles, 1)
	assert.Equal(t, "15", views[0].Tiles[0].Value)
	assert.Equal(t, StatusDanger, views[0].Tiles[0].Status)

	html, err := c.Board().HTML(w.ID)
	jtest.RequireNil(t, err)
	assert.Contains(t, html, "status-danger")
	assert.Contains(t, html, ">15<")
}

func TestControllerSetChartHours(t *testing.T) {
	source := &stubSource{history: map[string]HistorySeries{
		"!a": {"voltage": {{X: 1714557600.0, Y: ptr(3.7)}}},
	}}
	c := newTestController(t, source, nil)
	ctx := context.Background()

	w, err := c.Store().AddWidget(ctx, WidgetSpec{
		Type: WidgetMultiMetric, Nodes: []string{"!a"}, Metrics: []string{"voltage"}, DisplayMode: DisplayChart,
	})
	jtest.RequireNil(t, err)

	view, err := c.SetChartHours(ctx, w.ID, 168)
	jtest.RequireNil(t, err)
	require.NotNil(t, view.Chart)
	assert.Equal(t, 168, view.Chart.Hours)
	assert.Equal(t, ViewOK, view.State)
	stored, _ := c.Store().Widget(w.ID)
	assert.Equal(t, 168, stored.ChartHours)

	_, err = c.SetChartHours(ctx, w.ID, 5)
	jtest.Require(t, ErrValidation, err)
}

func TestControllerSetChartHoursKeepsDataPointsView(t *testing.T) {
	source := &stubSource{telemetry: TelemetryByNode{
		"!a": {Telemetry: map[string]any{"battery_level": 80.0, "voltage": 3.9}},
	}}
	c := newTestController(t, source, nil)
	ctx := context.Background()

	w, err := c.Store().AddWidget(ctx, WidgetSpec{
		Type: WidgetMultiMetric, Nodes: []string{"!a"}, Metrics: []string{"battery_level", "voltage"},
	})
	jtest.RequireNil(t, err)
	_, err = c.Render(ctx)
	jtest.RequireNil(t, err)
	before, ok := c.Board().View(w.ID)
	require.True(t, ok)
	require.Equal(t, ViewOK, before.State)
	require.Len(t, before.Tiles, 2)
	stored, _ := c.Store().Widget(w.ID)

	_, err = c.SetChartHours(ctx, w.ID, 48)
	jtest.Require(t, ErrValidation, err)

	after, ok := c.Board().View(w.ID)
	require.True(t, ok)
	assert.Equal(t, ViewOK, after.State)
	assert.Len(t, after.Tiles, 2)
	unchanged, _ := c.Store().Widget(w.ID)
	assert.Equal(t, stored.ChartHours, unchanged.ChartHours)
	assert.Equal(t, DisplayDataPoints, unchanged.DisplayMode)
}

func TestControllerOwnsChartCache(t *testing.T) {
	a := NewController(ControllerOptions{})
	b := NewController(ControllerOptions{})

	require.NotNil(t, a.Renderer().charts.cache)
	require.NotNil(t, b.Renderer().charts.cache)
	assert.NotSame(t, a.Renderer().charts.cache, b.Renderer().charts.cache)

	shared := NewChartCache(time.Minute)
	c := NewController(ControllerOptions{ChartCache: shared})
	assert.Same(t, shared, c.Renderer().charts.cache)
	assert.Nil(t, NewChartBuilder().cache)
}

func TestControllerBootstrapLocalOnly(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)

	outcome := <-c.Bootstrap(context.Background())

	assert.Equal(t, SyncLocalOnly, outcome)
	assert.Len(t, c.Store().Dashboards(), 1)
}

func TestControllerBootstrapRemoteAuthoritative(t *testing.T) {
	remote := &fakeRemote{found: true, stored: Collection{
		ActiveDashboardID: "remote",
		Dashboards: []Dashboard{{
			ID:   "remote",
			Name: "Remote",
			Widgets: []Widget{{
				ID: "w_remote", Type: WidgetSingleMetric,
				Nodes: []string{"!r"}, Metrics: []string{"battery_level"},
				Layout: &Rect{Col: 1, Row: 1, W: 3, H: 2},
			}},
		}},
	}}
	source := &stubSource{telemetry: TelemetryByNode{
		"!r": {Telemetry: map[string]any{"battery_level": 90.0}},
	}}
	c := newTestController(t, source, remote)

	outcome := <-c.Bootstrap(context.Background())

	assert.Equal(t, SyncRemoteAuthoritative, outcome)
	assert.Equal(t, "remote", c.Store().Active().ID)
	views := c.ActiveViews()
	require.Len(t, views, 1)
	assert.Equal(t, "w_remote", views[0].WidgetID)
	require.Len(t, views[0].Tiles, 1)
	assert.Equal(t, StatusGood, views[0].Tiles[0].Status)
}

func TestControllerSearchNodesWithoutDirectory(t *testing.T) {
	c := newTestController(t, &stubSource{}, nil)

	_, err := c.SearchNodes(context.Background(), "base", 10)

	jtest.Require(t, ErrFetch, err)
}
