package dashboard

import (
	"time"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/pkg/meshapi"
	"github.com/luno/jettison/errors"
)

// Store exposes the underlying components/dashboard.Store type.
type Store = core.Store

// Options re-export for convenience.
type Options = core.Options

// Controller exposes the session controller.
type Controller = core.Controller

// ControllerOptions re-export for convenience.
type ControllerOptions = core.ControllerOptions

// NewStore proxies to the internal constructor.
func NewStore(opts Options) *Store {
	return core.NewStore(opts)
}

// NewController proxies to the internal constructor.
func NewController(opts ControllerOptions) *Controller {
	return core.NewController(opts)
}

// Config wires a controller to a mesh backend with sensible defaults.
type Config struct {
	// BaseURL of the mesh backend. Empty means no telemetry source.
	BaseURL string
	// APIKey signs the user in. Without it only the local cache is used.
	APIKey string
	// CacheDir holds the local cache file. Empty keeps the cache in memory.
	CacheDir        string
	Locale          string
	ThemeVariant    string
	RefreshInterval time.Duration
	DebounceWindow  time.Duration
	Manifest        *core.CatalogManifest
	Instrumentation core.Instrumentation
}

// New builds a Controller from cfg. It does not load state; call
// Bootstrap on the result.
func New(cfg Config) (*Controller, error) {
	opts := ControllerOptions{
		Locale:          cfg.Locale,
		Theme:           core.DefaultTheme(cfg.ThemeVariant),
		RefreshInterval: cfg.RefreshInterval,
		Instrumentation: cfg.Instrumentation,
	}

	templates, err := core.NewTemplateRenderer()
	if err != nil {
		return nil, errors.Wrap(err, "template renderer")
	}
	opts.Templates = templates

	catalog := core.NewCatalog()
	if cfg.Manifest != nil {
		if err := catalog.ApplyManifest(cfg.Manifest); err != nil {
			return nil, errors.Wrap(err, "apply catalog manifest")
		}
	}

	var local core.LocalCache = core.NewMemoryCache()
	if cfg.CacheDir != "" {
		local = core.NewFileCache(cfg.CacheDir, "")
	}
	persistence := core.PersistenceOptions{
		Local:           local,
		DebounceWindow:  cfg.DebounceWindow,
		Instrumentation: cfg.Instrumentation,
	}

	if cfg.BaseURL != "" {
		client, err := meshapi.NewHTTPClient(meshapi.HTTPConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		opts.Source = client
		opts.Directory = client
		if cfg.APIKey != "" {
			persistence.Remote = client
		}
	}

	opts.Store = Options{
		Catalog:         catalog,
		Persistence:     core.NewPersistence(persistence),
		Instrumentation: cfg.Instrumentation,
	}
	return core.NewController(opts), nil
}
