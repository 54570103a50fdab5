package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
)

type layoutStore interface {
	MoveWidget(ctx context.Context, id string, rect dashboard.Rect) (dashboard.Rect, error)
	ResizeWidget(ctx context.Context, id string, width, height int) (dashboard.Rect, error)
}

// MoveWidgetInput places a widget at a grid cell. Zero W/H keep the
// current size.
type MoveWidgetInput struct {
	WidgetID string `json:"widget_id"`
	Col      int    `json:"col"`
	Row      int    `json:"row"`
	W        int    `json:"w,omitempty"`
	H        int    `json:"h,omitempty"`
}

// MoveWidgetCommand commits a keyboard or API driven move. Pointer
// gestures go through the interaction controller instead.
type MoveWidgetCommand struct {
	store     layoutStore
	telemetry Telemetry
}

// NewMoveWidgetCommand creates the command.
func NewMoveWidgetCommand(store layoutStore, telemetry Telemetry) *MoveWidgetCommand {
	return &MoveWidgetCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[MoveWidgetInput] = (*MoveWidgetCommand)(nil)

// Execute moves the widget.
func (c *MoveWidgetCommand) Execute(ctx context.Context, msg MoveWidgetInput) error {
	if c.store == nil {
		return errors.New("move command requires store")
	}
	rect, err := c.store.MoveWidget(ctx, msg.WidgetID, dashboard.Rect{Col: msg.Col, Row: msg.Row, W: msg.W, H: msg.H})
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_move", map[string]any{
		"widget_id": msg.WidgetID,
		"col":       rect.Col,
		"row":       rect.Row,
	})
	return nil
}

// ResizeWidgetInput sets a widget's footprint in grid units.
type ResizeWidgetInput struct {
	WidgetID string `json:"widget_id"`
	W        int    `json:"w"`
	H        int    `json:"h"`
}

// ResizeWidgetCommand commits a clamped resize.
type ResizeWidgetCommand struct {
	store     layoutStore
	telemetry Telemetry
}

// NewResizeWidgetCommand creates the command.
func NewResizeWidgetCommand(store layoutStore, telemetry Telemetry) *ResizeWidgetCommand {
	return &ResizeWidgetCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResizeWidgetInput] = (*ResizeWidgetCommand)(nil)

func (c *ResizeWidgetCommand) Execute(ctx context.Context, msg ResizeWidgetInput) error {
	if c.store == nil {
		return errors.New("resize command requires store")
	}
	rect, err := c.store.ResizeWidget(ctx, msg.WidgetID, msg.W, msg.H)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_resize", map[string]any{
		"widget_id": msg.WidgetID,
		"w":         rect.W,
		"h":         rect.H,
	})
	return nil
}
