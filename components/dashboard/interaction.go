package dashboard

import (
	"context"
	"math"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// GridMetrics is the measured geometry of the rendered grid, in page
// coordinates.
type GridMetrics struct {
	OriginX     float64
	OriginY     float64
	ColumnWidth float64
	RowHeight   float64
	Gutter      float64
}

// CellAt converts a page coordinate to a 1-based grid cell. Coordinates
// left of or above the grid map to column or row 1.
func (m GridMetrics) CellAt(x, y float64) (col, row int) {
	colPitch := m.ColumnWidth + m.Gutter
	rowPitch := m.RowHeight + m.Gutter
	if colPitch <= 0 || rowPitch <= 0 {
		return 1, 1
	}
	col = int(math.Floor((x-m.OriginX)/colPitch)) + 1
	row = int(math.Floor((y-m.OriginY)/rowPitch)) + 1
	return max(col, 1), max(row, 1)
}

// PointerKind distinguishes pointer events delivered during a gesture.
type PointerKind string

const (
	PointerMove   PointerKind = "move"
	PointerUp     PointerKind = "up"
	PointerCancel PointerKind = "cancel"
)

// PointerEvent is a document-level pointer or touch event.
type PointerEvent struct {
	Kind PointerKind
	X    float64
	Y    float64
}

// PointerTarget delivers document-level pointer events. Listen returns a
// func that detaches the listener.
type PointerTarget interface {
	Listen(handler func(PointerEvent)) (detach func())
}

// PreviewSurface draws the transient gesture affordances.
type PreviewSurface interface {
	ShowPlaceholder(widgetID string, rect Rect)
	HidePlaceholder(widgetID string)
	PreviewSize(widgetID string, rect Rect, atMinWidth, atMinHeight bool)
	ClearPreview(widgetID string)
}

type noopSurface struct{}

func (noopSurface) ShowPlaceholder(string, Rect)         {}
func (noopSurface) HidePlaceholder(string)               {}
func (noopSurface) PreviewSize(string, Rect, bool, bool) {}
func (noopSurface) ClearPreview(string)                  {}

// Refresher is asked for a telemetry refresh after a committed gesture.
type Refresher interface {
	Trigger()
}

// GestureStore is what the interaction controller needs from the Store.
type GestureStore interface {
	Active() Dashboard
	Widget(id string) (Widget, bool)
	Layout() *LayoutEngine
	MoveWidget(ctx context.Context, id string, rect Rect) (Rect, error)
	ResizeWidget(ctx context.Context, id string, width, height int) (Rect, error)
}

// GestureKind is move or resize.
type GestureKind string

const (
	GestureMove   GestureKind = "move"
	GestureResize GestureKind = "resize"
)

// GesturePhase is the gesture state: idle → active → committed|cancelled.
type GesturePhase string

const (
	PhaseIdle      GesturePhase = "idle"
	PhaseActive    GesturePhase = "active"
	PhaseCommitted GesturePhase = "committed"
	PhaseCancelled GesturePhase = "cancelled"
)

// InteractionOptions configures the controller.
type InteractionOptions struct {
	Store           GestureStore
	Target          PointerTarget
	Surface         PreviewSurface
	Refresher       Refresher
	Instrumentation Instrumentation
}

// InteractionController runs move and resize gestures. A widget has at
// most one gesture at a time; gestures on different widgets are
// independent.
type InteractionController struct {
	store     GestureStore
	target    PointerTarget
	surface   PreviewSurface
	refresher Refresher
	instr     Instrumentation

	mu     sync.Mutex
	active map[string]*Gesture
}

// NewInteractionController builds a controller. Store and Target are required.
func NewInteractionController(opts InteractionOptions) *InteractionController {
	if opts.Surface == nil {
		opts.Surface = noopSurface{}
	}
	return &InteractionController{
		store:     opts.Store,
		target:    opts.Target,
		surface:   opts.Surface,
		refresher: opts.Refresher,
		instr:     normalizeInstrumentation(opts.Instrumentation),
		active:    make(map[string]*Gesture),
	}
}

// Busy reports whether a gesture is running on the widget.
func (c *InteractionController) Busy(widgetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[widgetID]
	return ok
}

// BeginMove starts a move gesture for a widget and shows its placeholder.
func (c *InteractionController) BeginMove(ctx context.Context, widgetID string, grid GridMetrics) (*Gesture, error) {
	return c.begin(ctx, GestureMove, widgetID, grid)
}

// BeginResize starts a resize gesture for a widget.
func (c *InteractionController) BeginResize(ctx context.Context, widgetID string, grid GridMetrics) (*Gesture, error) {
	return c.begin(ctx, GestureResize, widgetID, grid)
}

func (c *InteractionController) begin(ctx context.Context, kind GestureKind, widgetID string, grid GridMetrics) (*Gesture, error) {
	if c.store == nil || c.target == nil {
		return nil, errors.New("interaction controller is not configured")
	}
	w, ok := c.store.Widget(widgetID)
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "widget not found", j.KV("widget_id", widgetID))
	}

	c.mu.Lock()
	if _, busy := c.active[widgetID]; busy {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrGestureActive, "gesture already active", j.KV("widget_id", widgetID))
	}
	start := rectOf(w)
	g := &Gesture{
		ctrl:      c,
		ctx:       context.WithoutCancel(ctx),
		kind:      kind,
		widget:    w,
		grid:      grid,
		start:     start,
		candidate: start,
		min:       c.store.Layout().MinFootprint(w),
		phase:     PhaseIdle,
		done:      make(chan struct{}),
	}
	c.active[widgetID] = g
	c.mu.Unlock()

	g.mu.Lock()
	g.phase = PhaseActive
	if kind == GestureMove {
		c.surface.ShowPlaceholder(widgetID, start)
	}
	g.mu.Unlock()

	detach := c.target.Listen(g.handle)
	g.mu.Lock()
	g.detach = detach
	finished := g.phase != PhaseActive
	g.mu.Unlock()
	if finished {
		detach()
	}
	c.instr.Record(ctx, "dashboard.gesture.start", map[string]any{"widget_id": widgetID, "kind": string(kind)})
	return g, nil
}

func (c *InteractionController) release(widgetID string, g *Gesture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[widgetID] == g {
		delete(c.active, widgetID)
	}
}

// Gesture is one move or resize interaction.
type Gesture struct {
	ctrl   *InteractionController
	ctx    context.Context
	kind   GestureKind
	widget Widget
	grid   GridMetrics
	min    Size

	mu        sync.Mutex
	phase     GesturePhase
	start     Rect
	candidate Rect
	result    Rect
	err       error
	detach    func()
	done      chan struct{}
}

// Kind returns move or resize.
func (g *Gesture) Kind() GestureKind { return g.kind }

// WidgetID returns the widget the gesture operates on.
func (g *Gesture) WidgetID() string { return g.widget.ID }

// Phase returns the current phase.
func (g *Gesture) Phase() GesturePhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Candidate returns the rectangle currently previewed.
func (g *Gesture) Candidate() Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.candidate
}

// Done is closed once the gesture has committed or been cancelled.
func (g *Gesture) Done() <-chan struct{} {
	return g.done
}

// Result returns the committed rectangle, or the start rectangle and the
// reason when the gesture was cancelled. A release without change is a
// cancellation with a nil error.
func (g *Gesture) Result() (Rect, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result, g.err
}

// Cancel abandons the gesture without touching the store.
func (g *Gesture) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseActive {
		return
	}
	g.finish(PhaseCancelled, g.start, nil)
}

func (g *Gesture) handle(ev PointerEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseActive {
		return
	}
	switch ev.Kind {
	case PointerMove:
		g.track(ev)
	case PointerUp:
		g.track(ev)
		g.release()
	case PointerCancel:
		g.finish(PhaseCancelled, g.start, nil)
	}
}

// track updates the candidate and redraws only when the cell changed.
func (g *Gesture) track(ev PointerEvent) {
	layout := g.ctrl.store.Layout()
	col, row := g.grid.CellAt(ev.X, ev.Y)
	var next Rect
	w := g.widget
	w.Layout = &g.start
	switch g.kind {
	case GestureMove:
		next = layout.ClampMove(w, col-g.start.W/2, row-g.start.H/2)
	case GestureResize:
		next = layout.ClampResize(w, col-g.start.Col+1, row-g.start.Row+1)
	}
	if next == g.candidate {
		return
	}
	g.candidate = next
	switch g.kind {
	case GestureMove:
		g.ctrl.surface.ShowPlaceholder(g.widget.ID, next)
	case GestureResize:
		g.ctrl.surface.PreviewSize(g.widget.ID, next, next.W == g.min.W, next.H == g.min.H)
	}
}

func (g *Gesture) release() {
	if g.candidate == g.start {
		g.finish(PhaseCancelled, g.start, nil)
		return
	}
	store := g.ctrl.store
	layout := store.Layout()
	widgets := store.Active().Widgets
	target := g.candidate
	if layout.Collides(widgets, g.widget.ID, target) {
		if g.kind == GestureResize {
			g.finish(PhaseCancelled, g.start, errors.Wrap(ErrOverlap, "resize would overlap", j.KV("widget_id", g.widget.ID)))
			return
		}
		free, ok := layout.NearestFreeRow(widgets, g.widget.ID, target)
		if !ok {
			g.finish(PhaseCancelled, g.start, errors.Wrap(ErrOverlap, "no free row for move", j.KV("widget_id", g.widget.ID)))
			return
		}
		target = free
		if target == g.start {
			g.finish(PhaseCancelled, g.start, nil)
			return
		}
	}

	var (
		committed Rect
		err       error
	)
	switch g.kind {
	case GestureMove:
		committed, err = store.MoveWidget(g.ctx, g.widget.ID, target)
	case GestureResize:
		committed, err = store.ResizeWidget(g.ctx, g.widget.ID, target.W, target.H)
	}
	if err != nil {
		log.Error(g.ctx, errors.Wrap(err, "commit gesture", j.MKV{"widget_id": g.widget.ID, "kind": string(g.kind)}))
		g.finish(PhaseCancelled, g.start, err)
		return
	}
	g.finish(PhaseCommitted, committed, nil)
	if g.ctrl.refresher != nil {
		g.ctrl.refresher.Trigger()
	}
}

// finish tears the gesture down. Callers hold g.mu.
func (g *Gesture) finish(phase GesturePhase, result Rect, err error) {
	g.phase = phase
	g.result = result
	g.err = err
	switch g.kind {
	case GestureMove:
		g.ctrl.surface.HidePlaceholder(g.widget.ID)
	case GestureResize:
		g.ctrl.surface.ClearPreview(g.widget.ID)
	}
	if g.detach != nil {
		g.detach()
		g.detach = nil
	}
	g.ctrl.release(g.widget.ID, g)
	close(g.done)
	g.ctrl.instr.Record(g.ctx, "dashboard.gesture."+string(phase), map[string]any{
		"widget_id": g.widget.ID,
		"kind":      string(g.kind),
	})
}

// PointerDispatcher is an in-process PointerTarget. Handlers are invoked
// outside the dispatcher's lock so they may detach themselves.
type PointerDispatcher struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(PointerEvent)
}

// NewPointerDispatcher creates an empty dispatcher.
func NewPointerDispatcher() *PointerDispatcher {
	return &PointerDispatcher{handlers: make(map[int]func(PointerEvent))}
}

// Listen implements PointerTarget.
func (d *PointerDispatcher) Listen(handler func(PointerEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.handlers[id] = handler
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.handlers, id)
			d.mu.Unlock()
		})
	}
}

// Dispatch delivers an event to every attached listener.
func (d *PointerDispatcher) Dispatch(ev PointerEvent) {
	d.mu.Lock()
	handlers := make([]func(PointerEvent), 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Listeners returns the number of attached listeners.
func (d *PointerDispatcher) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}
