package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *dashboard.Store {
	return dashboard.NewStore(dashboard.Options{})
}

func batterySpec(node string) dashboard.WidgetSpec {
	return dashboard.WidgetSpec{Type: dashboard.WidgetSingleMetric, Nodes: []string{node}, Metrics: []string{"battery_level"}}
}

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

type stubNotices struct {
	notices []dashboard.Notice
}

func (s *stubNotices) Notify(_ context.Context, n dashboard.Notice) {
	s.notices = append(s.notices, n)
}

func TestDashboardCommands(t *testing.T) {
	store := newStore()
	telemetry := &stubTelemetry{}
	ctx := context.Background()

	jtest.RequireNil(t, NewCreateDashboardCommand(store, telemetry).Execute(ctx, CreateDashboardInput{Name: "Solar"}))
	require.Len(t, store.Dashboards(), 2)
	solar := store.Active()
	assert.Equal(t, "Solar", solar.Name)

	jtest.RequireNil(t, NewRenameDashboardCommand(store, telemetry).Execute(ctx, RenameDashboardInput{Name: "Roof"}))
	assert.Equal(t, "Roof", store.Active().Name)

	first := store.Dashboards()[0].ID
	jtest.RequireNil(t, NewSwitchDashboardCommand(store, telemetry).Execute(ctx, SwitchDashboardInput{DashboardID: first}))
	assert.Equal(t, first, store.Active().ID)

	err := NewSwitchDashboardCommand(store, telemetry).Execute(ctx, SwitchDashboardInput{})
	jtest.Require(t, dashboard.ErrValidation, err)

	del := NewDeleteDashboardCommand(store, telemetry)
	jtest.Require(t, dashboard.ErrNotConfirmed, del.Execute(ctx, DeleteDashboardInput{}))
	jtest.RequireNil(t, del.Execute(ctx, DeleteDashboardInput{Confirmed: true}))
	jtest.Require(t, dashboard.ErrPolicy, del.Execute(ctx, DeleteDashboardInput{Confirmed: true}))

	assert.Equal(t, []string{
		"dashboard.command.create",
		"dashboard.command.rename",
		"dashboard.command.switch",
		"dashboard.command.delete",
	}, telemetry.events)
}

func TestWidgetCommands(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	jtest.RequireNil(t, NewAddWidgetCommand(store, nil).Execute(ctx, AddWidgetInput{Spec: batterySpec("!a")}))
	jtest.RequireNil(t, NewAddWidgetCommand(store, nil).Execute(ctx, AddWidgetInput{Spec: batterySpec("!b")}))
	widgets := store.Active().Widgets
	require.Len(t, widgets, 2)
	a, b := widgets[0], widgets[1]

	err := NewMoveWidgetCommand(store, nil).Execute(ctx, MoveWidgetInput{WidgetID: a.ID, Col: 4, Row: 1})
	jtest.Require(t, dashboard.ErrOverlap, err)

	jtest.RequireNil(t, NewMoveWidgetCommand(store, nil).Execute(ctx, MoveWidgetInput{WidgetID: a.ID, Col: 1, Row: 3}))
	jtest.RequireNil(t, NewResizeWidgetCommand(store, nil).Execute(ctx, ResizeWidgetInput{WidgetID: a.ID, W: 1, H: 1}))
	moved, _ := store.Widget(a.ID)
	assert.Equal(t, dashboard.Rect{Col: 1, Row: 3, W: 2, H: 2}, *moved.Layout)

	update := UpdateWidgetInput{WidgetID: b.ID, Spec: dashboard.WidgetSpec{
		Type: dashboard.WidgetMultiMetric, Nodes: []string{"!b"}, Metrics: []string{"voltage", "temperature"},
		DisplayMode: dashboard.DisplayChart,
	}}
	jtest.RequireNil(t, NewUpdateWidgetCommand(store, nil).Execute(ctx, update))
	jtest.RequireNil(t, NewSetChartHoursCommand(store, nil).Execute(ctx, SetChartHoursInput{WidgetID: b.ID, Hours: 6}))
	updated, _ := store.Widget(b.ID)
	assert.Equal(t, 6, updated.ChartHours)

	err = NewSetChartHoursCommand(store, nil).Execute(ctx, SetChartHoursInput{WidgetID: b.ID, Hours: 7})
	jtest.Require(t, dashboard.ErrValidation, err)

	jtest.RequireNil(t, NewRemoveWidgetCommand(store, nil).Execute(ctx, RemoveWidgetInput{WidgetID: a.ID}))
	assert.Len(t, store.Active().Widgets, 1)

	err = NewRemoveWidgetCommand(store, nil).Execute(ctx, RemoveWidgetInput{})
	jtest.Require(t, dashboard.ErrValidation, err)
}

func TestAddWidgetCommandRejectsInvalidSpec(t *testing.T) {
	store := newStore()

	err := NewAddWidgetCommand(store, nil).Execute(context.Background(), AddWidgetInput{Spec: dashboard.WidgetSpec{
		Type: dashboard.WidgetSingleMetric, Metrics: []string{"battery_level"},
	}})

	jtest.Require(t, dashboard.ErrValidation, err)
	assert.Empty(t, store.Active().Widgets)
}

func TestReportingCommandForwardsNotices(t *testing.T) {
	store := newStore()
	sink := &stubNotices{}
	cmd := NewReportingCommand[DeleteDashboardInput](NewDeleteDashboardCommand(store, nil), sink)

	err := cmd.Execute(context.Background(), DeleteDashboardInput{Confirmed: true})

	jtest.Require(t, dashboard.ErrPolicy, err)
	require.Len(t, sink.notices, 1)
	assert.Equal(t, "Cannot delete the only dashboard", sink.notices[0].Message)
}

type stubRefresher struct {
	triggers  int
	refreshes int
	result    dashboard.RefreshResult
}

func (s *stubRefresher) Refresh(context.Context) dashboard.RefreshResult {
	s.refreshes++
	return s.result
}

func (s *stubRefresher) Trigger() { s.triggers++ }

func TestRefreshDashboardCommand(t *testing.T) {
	coordinator := &stubRefresher{}
	cmd := NewRefreshDashboardCommand(coordinator, nil)
	ctx := context.Background()

	jtest.RequireNil(t, cmd.Execute(ctx, RefreshDashboardInput{}))
	jtest.RequireNil(t, cmd.Execute(ctx, RefreshDashboardInput{Wait: true}))
	assert.Equal(t, 1, coordinator.triggers)
	assert.Equal(t, 1, coordinator.refreshes)

	coordinator.result = dashboard.RefreshResult{Err: dashboard.ErrFetch}
	jtest.Require(t, dashboard.ErrFetch, cmd.Execute(ctx, RefreshDashboardInput{Wait: true}))

	err := NewRefreshDashboardCommand(nil, nil).Execute(ctx, RefreshDashboardInput{})
	assert.Error(t, err)
}

func TestApplyManifestCommand(t *testing.T) {
	catalog := dashboard.NewCatalog()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `version: "1"
metrics:
  - key: snr
    label: Signal to Noise
    unit: dB
    group: device
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	telemetry := &stubTelemetry{}

	jtest.RequireNil(t, NewApplyManifestCommand(catalog, telemetry).Execute(context.Background(), ApplyManifestInput{Path: path}))

	def, ok := catalog.Metric("snr")
	require.True(t, ok)
	assert.Equal(t, "dB", def.Unit)
	assert.Equal(t, []string{"dashboard.command.manifest"}, telemetry.events)

	err := NewApplyManifestCommand(catalog, nil).Execute(context.Background(), ApplyManifestInput{})
	jtest.Require(t, dashboard.ErrValidation, err)
}
