package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
)

type dashboardStore interface {
	CreateDashboard(ctx context.Context, name string) (dashboard.Dashboard, error)
	SwitchDashboard(ctx context.Context, id string) error
	RenameDashboard(ctx context.Context, name string) error
	DeleteDashboard(ctx context.Context, confirmed bool) error
}

// CreateDashboardInput names the new dashboard. An empty name gets a
// numbered default.
type CreateDashboardInput struct {
	Name string `json:"name"`
}

// CreateDashboardCommand appends a dashboard and activates it.
type CreateDashboardCommand struct {
	store     dashboardStore
	telemetry Telemetry
}

// NewCreateDashboardCommand creates the command.
func NewCreateDashboardCommand(store dashboardStore, telemetry Telemetry) *CreateDashboardCommand {
	return &CreateDashboardCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[CreateDashboardInput] = (*CreateDashboardCommand)(nil)

// Execute creates the dashboard.
func (c *CreateDashboardCommand) Execute(ctx context.Context, msg CreateDashboardInput) error {
	if c.store == nil {
		return errors.New("create dashboard command requires store")
	}
	d, err := c.store.CreateDashboard(ctx, msg.Name)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.create", map[string]any{"dashboard_id": d.ID})
	return nil
}

// SwitchDashboardInput selects the dashboard to activate.
type SwitchDashboardInput struct {
	DashboardID string `json:"dashboard_id"`
}

// SwitchDashboardCommand moves the active pointer.
type SwitchDashboardCommand struct {
	store     dashboardStore
	telemetry Telemetry
}

// NewSwitchDashboardCommand creates the command.
func NewSwitchDashboardCommand(store dashboardStore, telemetry Telemetry) *SwitchDashboardCommand {
	return &SwitchDashboardCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SwitchDashboardInput] = (*SwitchDashboardCommand)(nil)

// Execute switches dashboards.
func (c *SwitchDashboardCommand) Execute(ctx context.Context, msg SwitchDashboardInput) error {
	if c.store == nil {
		return errors.New("switch dashboard command requires store")
	}
	if msg.DashboardID == "" {
		return errors.Wrap(dashboard.ErrValidation, "dashboard id is required")
	}
	if err := c.store.SwitchDashboard(ctx, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.switch", map[string]any{"dashboard_id": msg.DashboardID})
	return nil
}

// RenameDashboardInput renames the active dashboard.
type RenameDashboardInput struct {
	Name string `json:"name"`
}

// RenameDashboardCommand renames the active dashboard.
type RenameDashboardCommand struct {
	store     dashboardStore
	telemetry Telemetry
}

// NewRenameDashboardCommand creates the command.
func NewRenameDashboardCommand(store dashboardStore, telemetry Telemetry) *RenameDashboardCommand {
	return &RenameDashboardCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RenameDashboardInput] = (*RenameDashboardCommand)(nil)

func (c *RenameDashboardCommand) Execute(ctx context.Context, msg RenameDashboardInput) error {
	if c.store == nil {
		return errors.New("rename dashboard command requires store")
	}
	if err := c.store.RenameDashboard(ctx, msg.Name); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.rename", nil)
	return nil
}

// DeleteDashboardInput carries the user's confirmation.
type DeleteDashboardInput struct {
	Confirmed bool `json:"confirmed"`
}

// DeleteDashboardCommand removes the active dashboard.
type DeleteDashboardCommand struct {
	store     dashboardStore
	telemetry Telemetry
}

// NewDeleteDashboardCommand creates the command.
func NewDeleteDashboardCommand(store dashboardStore, telemetry Telemetry) *DeleteDashboardCommand {
	return &DeleteDashboardCommand{store: store, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDashboardInput] = (*DeleteDashboardCommand)(nil)

// Execute deletes the active dashboard. The last dashboard is refused
// before the confirmation is looked at.
func (c *DeleteDashboardCommand) Execute(ctx context.Context, msg DeleteDashboardInput) error {
	if c.store == nil {
		return errors.New("delete dashboard command requires store")
	}
	if err := c.store.DeleteDashboard(ctx, msg.Confirmed); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.delete", nil)
	return nil
}
