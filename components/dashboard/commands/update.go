package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

type widgetUpdater interface {
	UpdateWidget(ctx context.Context, id string, spec dashboard.WidgetSpec) (dashboard.Widget, error)
	SetChartHours(ctx context.Context, id string, hours int) error
}

// UpdateWidgetInput replaces a widget's configuration.
type UpdateWidgetInput struct {
	WidgetID string               `json:"widget_id"`
	Spec     dashboard.WidgetSpec `json:"spec"`
}

// UpdateWidgetCommand wraps Store.UpdateWidget.
type UpdateWidgetCommand struct {
	store     widgetUpdater
	telemetry Telemetry
}

// NewUpdateWidgetCommand creates the command.
func NewUpdateWidgetCommand(store widgetUpdater, telemetry Telemetry) *UpdateWidgetCommand {
	return &UpdateWidgetCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateWidgetInput] = (*UpdateWidgetCommand)(nil)

// Execute updates the widget configuration.
func (c *UpdateWidgetCommand) Execute(ctx context.Context, msg UpdateWidgetInput) error {
	if c.store == nil {
		return errors.New("update command requires store")
	}
	if msg.WidgetID == "" {
		return errors.Wrap(dashboard.ErrValidation, "update command requires widget id")
	}
	w, err := c.store.UpdateWidget(ctx, msg.WidgetID, msg.Spec)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_update", map[string]any{
		"widget_id":    w.ID,
		"display_mode": string(w.DisplayMode),
	})
	return nil
}

// SetChartHoursInput selects a chart widget's lookback.
type SetChartHoursInput struct {
	WidgetID string `json:"widget_id"`
	Hours    int    `json:"hours"`
}

// SetChartHoursCommand persists the lookback selection.
type SetChartHoursCommand struct {
	store     widgetUpdater
	telemetry Telemetry
}

// NewSetChartHoursCommand creates the command.
func NewSetChartHoursCommand(store widgetUpdater, telemetry Telemetry) *SetChartHoursCommand {
	return &SetChartHoursCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetChartHoursInput] = (*SetChartHoursCommand)(nil)

func (c *SetChartHoursCommand) Execute(ctx context.Context, msg SetChartHoursInput) error {
	if c.store == nil {
		return errors.New("chart hours command requires store")
	}
	if err := c.store.SetChartHours(ctx, msg.WidgetID, msg.Hours); err != nil {
		return errors.Wrap(err, "set chart hours", j.KV("widget_id", msg.WidgetID))
	}
	c.telemetry.Record(ctx, "dashboard.command.chart_hours", map[string]any{
		"widget_id": msg.WidgetID,
		"hours":     msg.Hours,
	})
	return nil
}
