package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
)

type widgetAdder interface {
	AddWidget(ctx context.Context, spec dashboard.WidgetSpec) (dashboard.Widget, error)
}

// AddWidgetInput is the widget form submission.
type AddWidgetInput struct {
	Spec dashboard.WidgetSpec `json:"spec"`
}

// AddWidgetCommand validates a widget spec and auto-places it on the
// active dashboard.
type AddWidgetCommand struct {
	store     widgetAdder
	telemetry Telemetry
}

// NewAddWidgetCommand creates a command instance.
func NewAddWidgetCommand(store widgetAdder, telemetry Telemetry) *AddWidgetCommand {
	return &AddWidgetCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddWidgetInput] = (*AddWidgetCommand)(nil)

// Execute adds the widget.
func (c *AddWidgetCommand) Execute(ctx context.Context, msg AddWidgetInput) error {
	if c.store == nil {
		return errors.New("add widget command requires store")
	}
	w, err := c.store.AddWidget(ctx, msg.Spec)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_add", map[string]any{
		"widget_id": w.ID,
		"type":      string(w.Type),
		"nodes":     len(w.Nodes),
	})
	return nil
}
