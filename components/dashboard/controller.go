package dashboard

import (
	"context"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// ControllerOptions wires the engine. Store options are used to build the
// Store; the controller adds its view board as a change hook.
type ControllerOptions struct {
	Store     Options
	Source    TelemetrySource
	Directory NodeDirectory
	Templates TemplateRenderer
	Charts    *ChartBuilder
	// ChartCache backs the default chart builder. Each controller gets its
	// own cache when nil. Ignored when Charts is set.
	ChartCache      RenderCache
	Theme           *ThemeSelection
	Locale          string
	Target          PointerTarget
	Surface         PreviewSurface
	RefreshInterval time.Duration
	Instrumentation Instrumentation
}

// Controller owns the store, the renderer, the refresh loop and the
// gesture controller for one dashboard session.
type Controller struct {
	store       *Store
	board       *ViewBoard
	renderer    *Renderer
	refresh     *RefreshCoordinator
	interaction *InteractionController
	directory   NodeDirectory
	theme       *ThemeSelection
}

// NewController builds every component from opts.
func NewController(opts ControllerOptions) *Controller {
	if opts.Theme == nil {
		opts.Theme = DefaultTheme("light")
	}
	if opts.Charts == nil {
		cache := opts.ChartCache
		if cache == nil {
			cache = NewChartCache(DefaultChartCacheTTL)
		}
		opts.Charts = NewChartBuilder(WithChartTheme(opts.Theme.ChartTheme), WithChartCache(cache))
	}
	board := NewViewBoard(opts.Templates)
	board.theme = opts.Theme
	storeOpts := opts.Store
	if storeOpts.Instrumentation == nil {
		storeOpts.Instrumentation = opts.Instrumentation
	}
	storeOpts.ChangeHook = ChangeHooks{board, storeOpts.ChangeHook}
	store := NewStore(storeOpts)

	renderer := NewRenderer(RendererOptions{
		Catalog:         store.Catalog(),
		Board:           board,
		History:         opts.Source,
		Charts:          opts.Charts,
		Locale:          opts.Locale,
		Instrumentation: opts.Instrumentation,
	})
	refresh := NewRefreshCoordinator(RefreshOptions{
		Dashboards:      store,
		Source:          opts.Source,
		Renderer:        renderer,
		Interval:        opts.RefreshInterval,
		Instrumentation: opts.Instrumentation,
	})
	target := opts.Target
	if target == nil {
		target = NewPointerDispatcher()
	}
	interaction := NewInteractionController(InteractionOptions{
		Store:           store,
		Target:          target,
		Surface:         opts.Surface,
		Refresher:       refresh,
		Instrumentation: opts.Instrumentation,
	})
	return &Controller{
		store:       store,
		board:       board,
		renderer:    renderer,
		refresh:     refresh,
		interaction: interaction,
		directory:   opts.Directory,
		theme:       opts.Theme,
	}
}

func (c *Controller) Store() *Store                       { return c.store }
func (c *Controller) Board() *ViewBoard                   { return c.board }
func (c *Controller) Renderer() *Renderer                 { return c.renderer }
func (c *Controller) Refresh() *RefreshCoordinator        { return c.refresh }
func (c *Controller) Interaction() *InteractionController { return c.interaction }
func (c *Controller) Theme() *ThemeSelection              { return c.theme }

// Render refreshes the active dashboard and returns its widget bodies in
// widget order.
func (c *Controller) Render(ctx context.Context) ([]WidgetView, error) {
	result := c.refresh.Refresh(ctx)
	return c.ActiveViews(), result.Err
}

// ActiveViews returns the last rendered bodies of the active dashboard.
func (c *Controller) ActiveViews() []WidgetView {
	active := c.store.Active()
	ids := make([]string, len(active.Widgets))
	for i, w := range active.Widgets {
		ids[i] = w.ID
	}
	return c.board.Views(ids)
}

// SetChartHours persists a chart widget's lookback and redraws just that
// widget from fresh history.
func (c *Controller) SetChartHours(ctx context.Context, widgetID string, hours int) (WidgetView, error) {
	if err := c.store.SetChartHours(ctx, widgetID, hours); err != nil {
		return WidgetView{}, err
	}
	w, ok := c.store.Widget(widgetID)
	if !ok {
		return WidgetView{}, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", widgetID))
	}
	return c.renderer.Render(ctx, w, nil), nil
}

// SearchNodes looks nodes up for the widget form.
func (c *Controller) SearchNodes(ctx context.Context, query string, limit int) ([]NodeSummary, error) {
	if c.directory == nil {
		return nil, errors.Wrap(ErrFetch, "node directory not configured")
	}
	nodes, err := c.directory.SearchNodes(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(ErrFetch, "search nodes", j.MKV{"query": query, "reason": err.Error()})
	}
	return nodes, nil
}

// ChangeHooks fans a change event out to several hooks. Nil entries are skipped.
type ChangeHooks []ChangeHook

// DashboardChanged implements ChangeHook.
func (hs ChangeHooks) DashboardChanged(ctx context.Context, event ChangeEvent) {
	for _, h := range hs {
		if h != nil {
			h.DashboardChanged(ctx, event)
		}
	}
}
