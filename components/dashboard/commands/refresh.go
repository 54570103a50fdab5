package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
)

// RefreshDashboardInput requests a telemetry refresh of the active
// dashboard. Wait runs the refresh inline instead of nudging the loop.
type RefreshDashboardInput struct {
	Wait bool `json:"wait"`
}

type refresher interface {
	Refresh(ctx context.Context) dashboard.RefreshResult
	Trigger()
}

// RefreshDashboardCommand triggers the refresh coordinator.
type RefreshDashboardCommand struct {
	coordinator refresher
	telemetry   Telemetry
}

// NewRefreshDashboardCommand creates the command.
func NewRefreshDashboardCommand(coordinator refresher, telemetry Telemetry) *RefreshDashboardCommand {
	return &RefreshDashboardCommand{coordinator: coordinator, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshDashboardInput] = (*RefreshDashboardCommand)(nil)

// Execute refreshes the dashboard. A refresh already in flight satisfies
// the request.
func (c *RefreshDashboardCommand) Execute(ctx context.Context, msg RefreshDashboardInput) error {
	if c.coordinator == nil {
		return errors.New("refresh command requires coordinator")
	}
	if !msg.Wait {
		c.coordinator.Trigger()
		c.telemetry.Record(ctx, "dashboard.command.refresh", map[string]any{"wait": false})
		return nil
	}
	res := c.coordinator.Refresh(ctx)
	if res.Err != nil {
		return res.Err
	}
	c.telemetry.Record(ctx, "dashboard.command.refresh", map[string]any{
		"wait":    true,
		"skipped": res.Skipped,
		"nodes":   res.Nodes,
	})
	return nil
}
