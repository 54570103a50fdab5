package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// ApplyManifestInput points at a catalog manifest on disk, or carries
// one already decoded.
type ApplyManifestInput struct {
	Path     string
	Manifest *dashboard.CatalogManifest
}

// ApplyManifestCommand registers widget types and metrics from a
// manifest into the catalog.
type ApplyManifestCommand struct {
	catalog   *dashboard.Catalog
	telemetry Telemetry
}

// NewApplyManifestCommand wires dependencies.
func NewApplyManifestCommand(catalog *dashboard.Catalog, telemetry Telemetry) *ApplyManifestCommand {
	return &ApplyManifestCommand{catalog: catalog, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyManifestInput] = (*ApplyManifestCommand)(nil)

// Execute loads and applies the manifest.
func (c *ApplyManifestCommand) Execute(ctx context.Context, msg ApplyManifestInput) error {
	if c.catalog == nil {
		return errors.New("manifest command requires catalog")
	}
	doc := msg.Manifest
	if doc == nil {
		if msg.Path == "" {
			return errors.Wrap(dashboard.ErrValidation, "manifest path is required")
		}
		loaded, err := dashboard.ReadManifest(msg.Path)
		if err != nil {
			return errors.Wrap(err, "read manifest", j.KV("path", msg.Path))
		}
		doc = loaded
	}
	if err := c.catalog.ApplyManifest(doc); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.manifest", map[string]any{
		"widget_types": len(doc.WidgetTypes),
		"metrics":      len(doc.Metrics),
	})
	return nil
}
