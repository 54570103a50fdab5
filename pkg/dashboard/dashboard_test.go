package dashboard

import (
	"testing"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalOnly(t *testing.T) {
	ctrl, err := New(Config{CacheDir: t.TempDir()})
	jtest.RequireNil(t, err)
	require.NotNil(t, ctrl)
	assert.False(t, ctrl.Store().Persistence().HasRemote())
}

func TestNewSignedIn(t *testing.T) {
	ctrl, err := New(Config{BaseURL: "http://mesh.invalid", APIKey: "secret"})
	jtest.RequireNil(t, err)
	assert.True(t, ctrl.Store().Persistence().HasRemote())

	anon, err := New(Config{BaseURL: "http://mesh.invalid"})
	jtest.RequireNil(t, err)
	assert.False(t, anon.Store().Persistence().HasRemote())
}

func TestNewAppliesManifest(t *testing.T) {
	ctrl, err := New(Config{Manifest: &core.CatalogManifest{
		Version: core.ManifestVersion,
		Metrics: []core.MetricDefinition{{Key: "pm25", Label: "PM2.5", Unit: "µg/m³", Group: "environment"}},
	}})
	jtest.RequireNil(t, err)
	def, ok := ctrl.Store().Catalog().Metric("pm25")
	require.True(t, ok)
	assert.Equal(t, "PM2.5", def.Label)
}
