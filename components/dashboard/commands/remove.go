package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
)

// RemoveWidgetInput identifies the widget to remove.
type RemoveWidgetInput struct {
	WidgetID string `json:"widget_id"`
}

type widgetRemover interface {
	DeleteWidget(ctx context.Context, id string) error
}

// RemoveWidgetCommand removes a widget from the active dashboard. The
// remaining widgets keep their positions.
type RemoveWidgetCommand struct {
	store     widgetRemover
	telemetry Telemetry
}

// NewRemoveWidgetCommand creates the command.
func NewRemoveWidgetCommand(store widgetRemover, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveWidgetInput] = (*RemoveWidgetCommand)(nil)

// Execute removes the widget.
func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.store == nil {
		return errors.New("remove command requires store")
	}
	if msg.WidgetID == "" {
		return errors.Wrap(dashboard.ErrValidation, "remove command requires widget id")
	}
	if err := c.store.DeleteWidget(ctx, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_remove", map[string]any{
		"widget_id": msg.WidgetID,
	})
	return nil
}
