package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

const (
	DefaultMaxDashboards = 20
	DefaultMaxWidgets    = 50

	// DefaultDashboardName names the dashboard seeded into an empty collection.
	DefaultDashboardName = "My Dashboard"
)

// Limits caps the collection size.
type Limits struct {
	MaxDashboards int
	MaxWidgets    int
}

// ChangeEvent describes a committed store mutation.
type ChangeEvent struct {
	Reason      string `json:"reason"`
	DashboardID string `json:"dashboard_id,omitempty"`
	WidgetID    string `json:"widget_id,omitempty"`
	Layout      *Rect  `json:"layout,omitempty"`
}

// ChangeHook is notified after every committed mutation.
type ChangeHook interface {
	DashboardChanged(ctx context.Context, event ChangeEvent)
}

type noopChangeHook struct{}

func (noopChangeHook) DashboardChanged(context.Context, ChangeEvent) {}

// ChangeHookFunc adapts a function to ChangeHook.
type ChangeHookFunc func(ctx context.Context, event ChangeEvent)

// DashboardChanged implements ChangeHook.
func (f ChangeHookFunc) DashboardChanged(ctx context.Context, event ChangeEvent) {
	f(ctx, event)
}

// Options configures the Store. Every collaborator is optional.
type Options struct {
	Catalog         *Catalog
	Layout          *LayoutEngine
	Persistence     *Persistence
	Validator       SpecValidator
	ChangeHook      ChangeHook
	Instrumentation Instrumentation
	Limits          Limits
	Clock           func() time.Time
	NewID           func(prefix string) string
}

// Store owns the dashboard collection and the active pointer. It is the
// only mutator; every mutation bumps updatedAt and is persisted.
type Store struct {
	catalog     *Catalog
	layout      *LayoutEngine
	persistence *Persistence
	validator   SpecValidator
	hook        ChangeHook
	instr       Instrumentation
	limits      Limits
	clock       func() time.Time
	newID       func(prefix string) string

	mu    sync.RWMutex
	state Collection
}

// NewStore builds a Store with safe defaults. The collection starts with
// one default dashboard until Load or Bootstrap runs.
func NewStore(opts Options) *Store {
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog()
	}
	if opts.Layout == nil {
		opts.Layout = NewLayoutEngine(opts.Catalog, LayoutOptions{})
	}
	if opts.Persistence == nil {
		opts.Persistence = NewPersistence(PersistenceOptions{Instrumentation: opts.Instrumentation})
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.ChangeHook == nil {
		opts.ChangeHook = noopChangeHook{}
	}
	if opts.Limits.MaxDashboards <= 0 {
		opts.Limits.MaxDashboards = DefaultMaxDashboards
	}
	if opts.Limits.MaxWidgets <= 0 {
		opts.Limits.MaxWidgets = DefaultMaxWidgets
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func(prefix string) string { return prefix + "_" + uuid.NewString() }
	}
	s := &Store{
		catalog:     opts.Catalog,
		layout:      opts.Layout,
		persistence: opts.Persistence,
		validator:   opts.Validator,
		hook:        opts.ChangeHook,
		instr:       normalizeInstrumentation(opts.Instrumentation),
		limits:      opts.Limits,
		clock:       opts.Clock,
		newID:       opts.NewID,
	}
	s.state, _ = s.normalize(Collection{})
	return s
}

// Catalog returns the widget catalog the store validates against.
func (s *Store) Catalog() *Catalog { return s.catalog }

// Layout returns the grid layout engine.
func (s *Store) Layout() *LayoutEngine { return s.layout }

// Persistence returns the persistence layer.
func (s *Store) Persistence() *Persistence { return s.persistence }

// Limits returns the configured caps.
func (s *Store) Limits() Limits { return s.limits }

func (s *Store) now() int64 {
	return s.clock().UnixMilli()
}

// Load replaces in-memory state with the local cache, seeding a default
// dashboard when the cache is empty.
func (s *Store) Load(ctx context.Context) {
	cfg := s.persistence.LoadLocal(ctx)
	s.replace(ctx, cfg, "load")
}

// Sync runs the one-time remote load. A remote-authoritative result
// replaces state wholesale.
func (s *Store) Sync(ctx context.Context) SyncOutcome {
	cfg, outcome := s.persistence.Sync(ctx, s.Snapshot())
	if outcome == SyncRemoteAuthoritative {
		s.replace(ctx, cfg, "sync")
	}
	s.instr.Record(ctx, "dashboard.persistence.sync", map[string]any{"outcome": string(outcome)})
	log.Info(ctx, "dashboard sync finished", j.KV("outcome", outcome))
	return outcome
}

// Bootstrap performs the local-first boot followed by the remote sync.
func (s *Store) Bootstrap(ctx context.Context) SyncOutcome {
	s.Load(ctx)
	return s.Sync(ctx)
}

func (s *Store) replace(ctx context.Context, cfg Collection, reason string) {
	s.mu.Lock()
	next, changed := s.normalize(cfg)
	s.state = next
	switch {
	case changed && reason == "load":
		// Nothing goes upstream before the remote sync has resolved.
		s.persistence.saveLocal(ctx, next)
	case changed:
		s.persistence.Save(ctx, next)
	}
	active := next.ActiveDashboardID
	s.mu.Unlock()
	s.hook.DashboardChanged(ctx, ChangeEvent{Reason: reason, DashboardID: active})
}

// normalize enforces the collection invariants: at least one dashboard,
// a resolvable active pointer, current widget types and a layout for
// every widget.
func (s *Store) normalize(cfg Collection) (Collection, bool) {
	cfg = cfg.Clone()
	changed := false
	now := s.now()
	if len(cfg.Dashboards) == 0 {
		cfg.Dashboards = []Dashboard{{
			ID:        s.newID("db"),
			Name:      DefaultDashboardName,
			Widgets:   []Widget{},
			CreatedAt: now,
			UpdatedAt: now,
		}}
		changed = true
	}
	for i := range cfg.Dashboards {
		d := &cfg.Dashboards[i]
		if d.ID == "" {
			d.ID = s.newID("db")
			changed = true
		}
		if d.Widgets == nil {
			d.Widgets = []Widget{}
		}
		for k := range d.Widgets {
			if s.normalizeWidget(&d.Widgets[k]) {
				changed = true
			}
		}
		if s.layout.AutoPlace(d.Widgets) > 0 {
			changed = true
		}
	}
	if activeIndex(cfg) < 0 {
		cfg.ActiveDashboardID = cfg.Dashboards[0].ID
		changed = true
	}
	return cfg, changed
}

func (s *Store) normalizeWidget(w *Widget) bool {
	changed := false
	if w.ID == "" {
		w.ID = s.newID("w")
		changed = true
	}
	if w.Type == legacyMultiMetricChart {
		w.Type = WidgetMultiMetric
		w.DisplayMode = DisplayChart
		changed = true
	}
	if def, ok := s.catalog.WidgetType(w.Type); ok && def.Metrics == CardinalityAuto && len(w.Metrics) > 0 {
		w.Metrics = nil
		changed = true
	}
	if len(w.NodeNames) != len(w.Nodes) {
		w.NodeNames = alignNames(w.Nodes, w.NodeNames)
		changed = true
	}
	if w.Layout != nil {
		fitted := s.layout.FitToGrid(*w, *w.Layout)
		if fitted != *w.Layout {
			w.Layout = &fitted
			changed = true
		}
	}
	return changed
}

func activeIndex(cfg Collection) int {
	for i, d := range cfg.Dashboards {
		if d.ID == cfg.ActiveDashboardID {
			return i
		}
	}
	return -1
}

// Snapshot returns a deep copy of the collection.
func (s *Store) Snapshot() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dashboards returns copies of every dashboard in order.
func (s *Store) Dashboards() []Dashboard {
	return s.Snapshot().Dashboards
}

// Active returns a copy of the active dashboard. A stale pointer resolves
// to the first dashboard.
func (s *Store) Active() Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := max(activeIndex(s.state), 0)
	return s.state.Dashboards[idx].clone()
}

// Widget returns a copy of a widget on the active dashboard.
func (s *Store) Widget(id string) (Widget, bool) {
	active := s.Active()
	if idx := active.widgetIndex(id); idx >= 0 {
		return active.Widgets[idx], true
	}
	return Widget{}, false
}

// mutation is applied to a private copy of the state; an error discards
// the copy so failed operations never change anything.
type mutation func(cfg *Collection, now int64) (ChangeEvent, error)

func (s *Store) mutate(ctx context.Context, fn mutation) (ChangeEvent, error) {
	s.mu.Lock()
	next := s.state.Clone()
	event, err := fn(&next, s.now())
	if err != nil {
		s.mu.Unlock()
		return ChangeEvent{}, err
	}
	s.state = next
	// Saving under the lock keeps cache writes in mutation order.
	s.persistence.Save(ctx, next)
	s.mu.Unlock()

	s.hook.DashboardChanged(ctx, event)
	payload := map[string]any{"dashboard_id": event.DashboardID}
	if event.WidgetID != "" {
		payload["widget_id"] = event.WidgetID
	}
	s.instr.Record(ctx, "dashboard.store."+event.Reason, payload)
	return event, nil
}

func activeDashboard(cfg *Collection) *Dashboard {
	idx := activeIndex(*cfg)
	if idx < 0 {
		idx = 0
		cfg.ActiveDashboardID = cfg.Dashboards[0].ID
	}
	return &cfg.Dashboards[idx]
}

// CreateDashboard appends a dashboard and makes it active.
func (s *Store) CreateDashboard(ctx context.Context, name string) (Dashboard, error) {
	var created Dashboard
	_, err := s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		if len(cfg.Dashboards) >= s.limits.MaxDashboards {
			return ChangeEvent{}, errors.Wrap(ErrLimitExceeded, fmt.Sprintf("maximum %d dashboards allowed", s.limits.MaxDashboards),
				j.KV("max", s.limits.MaxDashboards))
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Dashboard %d", len(cfg.Dashboards)+1)
		}
		created = Dashboard{
			ID:        s.newID("db"),
			Name:      name,
			Widgets:   []Widget{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		cfg.Dashboards = append(cfg.Dashboards, created)
		cfg.ActiveDashboardID = created.ID
		return ChangeEvent{Reason: "dashboard.create", DashboardID: created.ID}, nil
	})
	return created.clone(), err
}

// SwitchDashboard moves the active pointer.
func (s *Store) SwitchDashboard(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, func(cfg *Collection, _ int64) (ChangeEvent, error) {
		for _, d := range cfg.Dashboards {
			if d.ID == id {
				cfg.ActiveDashboardID = id
				return ChangeEvent{Reason: "dashboard.switch", DashboardID: id}, nil
			}
		}
		return ChangeEvent{}, errors.Wrap(ErrNotFound, "dashboard not found", j.KV("dashboard_id", id))
	})
	return err
}

// RenameDashboard renames the active dashboard.
func (s *Store) RenameDashboard(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Wrap(ErrValidation, "dashboard name is required")
	}
	_, err := s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		d.Name = name
		d.UpdatedAt = now
		return ChangeEvent{Reason: "dashboard.rename", DashboardID: d.ID}, nil
	})
	return err
}

// DeleteDashboard removes the active dashboard and activates the first
// remaining one. The last dashboard can never be deleted, and the caller
// must confirm.
func (s *Store) DeleteDashboard(ctx context.Context, confirmed bool) error {
	_, err := s.mutate(ctx, func(cfg *Collection, _ int64) (ChangeEvent, error) {
		if len(cfg.Dashboards) <= 1 {
			return ChangeEvent{}, errors.Wrap(ErrPolicy, "cannot delete the last dashboard")
		}
		if !confirmed {
			return ChangeEvent{}, errors.Wrap(ErrNotConfirmed, "dashboard deletion must be confirmed")
		}
		idx := max(activeIndex(*cfg), 0)
		removed := cfg.Dashboards[idx].ID
		cfg.Dashboards = append(cfg.Dashboards[:idx], cfg.Dashboards[idx+1:]...)
		cfg.ActiveDashboardID = cfg.Dashboards[0].ID
		return ChangeEvent{Reason: "dashboard.delete", DashboardID: removed}, nil
	})
	return err
}

// AddWidget validates spec and appends a widget to the active dashboard,
// auto-placing it.
func (s *Store) AddWidget(ctx context.Context, spec WidgetSpec) (Widget, error) {
	spec, _, err := prepareSpec(s.catalog, s.validator, spec)
	if err != nil {
		return Widget{}, err
	}
	var added Widget
	_, err = s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		if len(d.Widgets) >= s.limits.MaxWidgets {
			return ChangeEvent{}, errors.Wrap(ErrLimitExceeded, fmt.Sprintf("maximum %d widgets per dashboard", s.limits.MaxWidgets),
				j.MKV{"max": s.limits.MaxWidgets, "dashboard_id": d.ID})
		}
		added = Widget{
			ID:        s.newID("w"),
			CreatedAt: now,
		}
		applySpec(&added, spec, now)
		rect := s.layout.Place(d.Widgets, s.layout.DefaultFootprint(added))
		added.Layout = &rect
		d.Widgets = append(d.Widgets, added)
		d.UpdatedAt = now
		return ChangeEvent{Reason: "widget.add", DashboardID: d.ID, WidgetID: added.ID, Layout: &rect}, nil
	})
	return added.clone(), err
}

func applySpec(w *Widget, spec WidgetSpec, now int64) {
	w.Type = spec.Type
	w.Title = strings.TrimSpace(spec.Title)
	w.Nodes = append([]string(nil), spec.Nodes...)
	w.NodeNames = append([]string(nil), spec.NodeNames...)
	w.Metrics = append([]string(nil), spec.Metrics...)
	w.DisplayMode = spec.DisplayMode
	w.ChartHours = spec.ChartHours
	w.UpdatedAt = now
}

// UpdateWidget replaces a widget's spec, keeping its id and position.
// Switching to chart mode grows the footprint to the chart minimum and
// moves the widget down if the larger footprint would overlap.
func (s *Store) UpdateWidget(ctx context.Context, id string, spec WidgetSpec) (Widget, error) {
	spec, _, err := prepareSpec(s.catalog, s.validator, spec)
	if err != nil {
		return Widget{}, err
	}
	var updated Widget
	_, err = s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		idx := d.widgetIndex(id)
		if idx < 0 {
			return ChangeEvent{}, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", id))
		}
		w := &d.Widgets[idx]
		wasChart := w.IsChart()
		applySpec(w, spec, now)
		rect := rectOf(*w)
		if w.IsChart() && !wasChart {
			size := s.layout.DefaultFootprint(*w)
			rect.W = max(rect.W, size.W)
			rect.H = max(rect.H, size.H)
		}
		rect = s.layout.FitToGrid(*w, rect)
		if s.layout.Collides(d.Widgets, w.ID, rect) {
			if free, ok := s.layout.NearestFreeRow(d.Widgets, w.ID, rect); ok {
				rect = free
			} else {
				others := make([]Widget, 0, len(d.Widgets)-1)
				others = append(others, d.Widgets[:idx]...)
				others = append(others, d.Widgets[idx+1:]...)
				rect = s.layout.Place(others, Size{W: rect.W, H: rect.H})
			}
		}
		w.Layout = &rect
		d.UpdatedAt = now
		updated = *w
		return ChangeEvent{Reason: "widget.update", DashboardID: d.ID, WidgetID: id, Layout: &rect}, nil
	})
	return updated.clone(), err
}

// DeleteWidget removes a widget from the active dashboard.
func (s *Store) DeleteWidget(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		idx := d.widgetIndex(id)
		if idx < 0 {
			return ChangeEvent{}, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", id))
		}
		d.Widgets = append(d.Widgets[:idx], d.Widgets[idx+1:]...)
		d.UpdatedAt = now
		return ChangeEvent{Reason: "widget.delete", DashboardID: d.ID, WidgetID: id}, nil
	})
	return err
}

// MoveWidget commits a new rectangle for a widget. Zero width or height
// keeps the current size. The result is clamped to the grid and rejected
// with ErrOverlap if it would overlap another widget.
func (s *Store) MoveWidget(ctx context.Context, id string, rect Rect) (Rect, error) {
	return s.commitRect(ctx, id, "widget.move", func(w Widget) Rect {
		current := rectOf(w)
		if rect.W > 0 {
			current.W = rect.W
		}
		if rect.H > 0 {
			current.H = rect.H
		}
		w.Layout = &current
		sized := s.layout.ClampResize(w, current.W, current.H)
		w.Layout = &sized
		return s.layout.ClampMove(w, rect.Col, rect.Row)
	})
}

// ResizeWidget commits a new size, clamped to the type minimums, the
// right grid edge and the height cap.
func (s *Store) ResizeWidget(ctx context.Context, id string, width, height int) (Rect, error) {
	return s.commitRect(ctx, id, "widget.resize", func(w Widget) Rect {
		return s.layout.ClampResize(w, width, height)
	})
}

func (s *Store) commitRect(ctx context.Context, id, reason string, next func(Widget) Rect) (Rect, error) {
	var committed Rect
	_, err := s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		idx := d.widgetIndex(id)
		if idx < 0 {
			return ChangeEvent{}, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", id))
		}
		rect := next(d.Widgets[idx])
		if s.layout.Collides(d.Widgets, id, rect) {
			return ChangeEvent{}, errors.Wrap(ErrOverlap, "widget would overlap", j.MKV{
				"widget_id": id, "col": rect.Col, "row": rect.Row, "w": rect.W, "h": rect.H,
			})
		}
		d.Widgets[idx].Layout = &rect
		d.Widgets[idx].UpdatedAt = now
		d.UpdatedAt = now
		committed = rect
		return ChangeEvent{Reason: reason, DashboardID: d.ID, WidgetID: id, Layout: &rect}, nil
	})
	return committed, err
}

// SetChartHours persists a chart widget's lookback selection. Widgets in
// data points mode have no lookback and are refused.
func (s *Store) SetChartHours(ctx context.Context, id string, hours int) error {
	if !validChartHours(hours) {
		return errors.Wrap(ErrValidation, "unsupported chart hours", j.KV("hours", hours))
	}
	_, err := s.mutate(ctx, func(cfg *Collection, now int64) (ChangeEvent, error) {
		d := activeDashboard(cfg)
		idx := d.widgetIndex(id)
		if idx < 0 {
			return ChangeEvent{}, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", id))
		}
		if !d.Widgets[idx].IsChart() {
			return ChangeEvent{}, errors.Wrap(ErrValidation, "chart hours require chart mode", j.KV("widget_id", id))
		}
		d.Widgets[idx].ChartHours = hours
		d.Widgets[idx].UpdatedAt = now
		d.UpdatedAt = now
		return ChangeEvent{Reason: "widget.chart_hours", DashboardID: d.ID, WidgetID: id}, nil
	})
	return err
}
