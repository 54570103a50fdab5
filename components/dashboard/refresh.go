package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

const (
	// DefaultRefreshInterval is the auto-refresh tick.
	DefaultRefreshInterval = 30 * time.Second
	// MaxBatchNodes caps node ids per telemetry request.
	MaxBatchNodes = 50
)

// ActiveDashboardSource exposes the dashboard a refresh should paint.
type ActiveDashboardSource interface {
	Active() Dashboard
}

// RefreshOptions configures the coordinator.
type RefreshOptions struct {
	Dashboards      ActiveDashboardSource
	Source          TelemetrySource
	Renderer        *Renderer
	Interval        time.Duration
	BatchSize       int
	Instrumentation Instrumentation
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Skipped bool
	Nodes   int
	Batches int
	Widgets int
	Err     error
}

// RefreshCoordinator batches the active dashboard's node ids into one
// telemetry fetch and fans the results out to each widget. At most one
// refresh runs at a time; overlapping triggers are dropped.
type RefreshCoordinator struct {
	dashboards ActiveDashboardSource
	source     TelemetrySource
	renderer   *Renderer
	interval   time.Duration
	batchSize  int
	instr      Instrumentation

	inflight atomic.Bool
	trigger  chan struct{}
}

// NewRefreshCoordinator builds a coordinator with safe defaults.
func NewRefreshCoordinator(opts RefreshOptions) *RefreshCoordinator {
	if opts.Renderer == nil {
		opts.Renderer = NewRenderer(RendererOptions{History: opts.Source})
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.BatchSize <= 0 || opts.BatchSize > MaxBatchNodes {
		opts.BatchSize = MaxBatchNodes
	}
	return &RefreshCoordinator{
		dashboards: opts.Dashboards,
		source:     opts.Source,
		renderer:   opts.Renderer,
		interval:   opts.Interval,
		batchSize:  opts.BatchSize,
		instr:      normalizeInstrumentation(opts.Instrumentation),
		trigger:    make(chan struct{}, 1),
	}
}

// InFlight reports whether a refresh is running.
func (c *RefreshCoordinator) InFlight() bool {
	return c.inflight.Load()
}

// Refresh runs one pass. A fetch failure paints every widget with an
// inline error; the in-flight flag is always cleared.
func (c *RefreshCoordinator) Refresh(ctx context.Context) RefreshResult {
	if !c.inflight.CompareAndSwap(false, true) {
		return RefreshResult{Skipped: true}
	}
	defer c.inflight.Store(false)

	if c.dashboards == nil || c.source == nil {
		return RefreshResult{Err: errors.New("refresh coordinator is not configured")}
	}
	dash := c.dashboards.Active()
	ids := make([]string, len(dash.Widgets))
	for i, w := range dash.Widgets {
		ids[i] = w.ID
	}
	c.renderer.Board().Retain(ids)

	nodeIDs := UnionNodes(dash.Widgets)
	result := RefreshResult{Nodes: len(nodeIDs), Widgets: len(dash.Widgets)}
	if len(nodeIDs) == 0 {
		return result
	}

	data, batches, err := c.fetch(ctx, nodeIDs)
	result.Batches = batches
	if err != nil {
		err = errors.Wrap(ErrFetch, "fetch telemetry", j.MKV{"nodes": len(nodeIDs), "reason": err.Error()})
		log.Error(ctx, err)
		for _, w := range dash.Widgets {
			c.renderer.RenderError(ctx, w, err)
		}
		result.Err = err
		c.instr.Record(ctx, "dashboard.refresh.failed", map[string]any{"nodes": len(nodeIDs)})
		return result
	}

	for _, w := range dash.Widgets {
		c.renderer.Render(ctx, w, sliceTelemetry(data, w.Nodes))
	}
	c.instr.Record(ctx, "dashboard.refresh.completed", map[string]any{
		"nodes":   len(nodeIDs),
		"batches": batches,
		"widgets": len(dash.Widgets),
	})
	return result
}

func (c *RefreshCoordinator) fetch(ctx context.Context, nodeIDs []string) (TelemetryByNode, int, error) {
	merged := make(TelemetryByNode, len(nodeIDs))
	batches := 0
	for start := 0; start < len(nodeIDs); start += c.batchSize {
		end := min(start+c.batchSize, len(nodeIDs))
		batches++
		data, err := c.source.FetchTelemetry(ctx, nodeIDs[start:end])
		if err != nil {
			return nil, batches, err
		}
		for id, entry := range data {
			merged[id] = entry
		}
	}
	return merged, batches, nil
}

// UnionNodes returns every node id referenced by widgets, deduplicated,
// in first-seen order.
func UnionNodes(widgets []Widget) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range widgets {
		for _, id := range w.Nodes {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func sliceTelemetry(data TelemetryByNode, nodes []string) TelemetryByNode {
	out := make(TelemetryByNode, len(nodes))
	for _, id := range nodes {
		if entry, ok := data[id]; ok {
			out[id] = entry
		}
	}
	return out
}

// Trigger requests an out-of-band refresh from the Run loop. It never blocks.
func (c *RefreshCoordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every tick and trigger, until ctx
// is done.
func (c *RefreshCoordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	log.Info(ctx, "dashboard auto-refresh started", j.KV("interval", c.interval.String()))
	c.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Refresh(ctx)
		case <-c.trigger:
			c.Refresh(ctx)
		}
	}
}
