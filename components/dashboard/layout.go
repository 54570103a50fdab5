package dashboard

// GridColumns is the fixed column count of the dashboard grid. Rows are unbounded.
const GridColumns = 12

const (
	// DefaultMaxWidgetHeight caps widget height in rows.
	DefaultMaxWidgetHeight = 8
	// DefaultPlacementSearchRows bounds the auto-placement scan. Past it the
	// widget lands at (1,1).
	DefaultPlacementSearchRows = 100
)

type cell struct{ col, row int }

// occupancy is the set of grid cells covered by committed rectangles.
type occupancy map[cell]struct{}

func newOccupancy(widgets []Widget, skipID string) occupancy {
	occ := occupancy{}
	for _, w := range widgets {
		if w.Layout == nil || (skipID != "" && w.ID == skipID) {
			continue
		}
		occ.mark(*w.Layout)
	}
	return occ
}

func (o occupancy) mark(r Rect) {
	for row := r.Row; row < r.Row+r.H; row++ {
		for col := r.Col; col < r.Col+r.W; col++ {
			o[cell{col, row}] = struct{}{}
		}
	}
}

func (o occupancy) free(r Rect) bool {
	for row := r.Row; row < r.Row+r.H; row++ {
		for col := r.Col; col < r.Col+r.W; col++ {
			if _, taken := o[cell{col, row}]; taken {
				return false
			}
		}
	}
	return true
}

// LayoutOptions tunes the layout engine.
type LayoutOptions struct {
	MaxWidgetHeight     int
	PlacementSearchRows int
}

// LayoutEngine assigns and validates widget rectangles. It is stateless
// apart from its catalog and limits; callers own the widgets.
type LayoutEngine struct {
	catalog    *Catalog
	maxH       int
	searchRows int
}

// NewLayoutEngine builds an engine with safe defaults.
func NewLayoutEngine(catalog *Catalog, opts LayoutOptions) *LayoutEngine {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if opts.MaxWidgetHeight <= 0 {
		opts.MaxWidgetHeight = DefaultMaxWidgetHeight
	}
	if opts.PlacementSearchRows <= 0 {
		opts.PlacementSearchRows = DefaultPlacementSearchRows
	}
	return &LayoutEngine{
		catalog:    catalog,
		maxH:       opts.MaxWidgetHeight,
		searchRows: opts.PlacementSearchRows,
	}
}

// MaxHeight returns the row-height cap.
func (e *LayoutEngine) MaxHeight() int {
	return e.maxH
}

// DefaultFootprint is the size auto-placement uses for a widget.
func (e *LayoutEngine) DefaultFootprint(w Widget) Size {
	size := e.catalog.DefaultSize(w.Type, w.DisplayMode)
	size.W = min(size.W, GridColumns)
	size.H = min(size.H, e.maxH)
	return size
}

// AutoPlace assigns a rectangle to every widget without one, in slice
// order, against the occupancy of widgets already placed. It never moves
// a placed widget and returns the number of widgets it placed.
func (e *LayoutEngine) AutoPlace(widgets []Widget) int {
	occ := newOccupancy(widgets, "")
	placed := 0
	for i := range widgets {
		if widgets[i].Layout != nil {
			continue
		}
		rect := e.findSlot(occ, e.DefaultFootprint(widgets[i]))
		widgets[i].Layout = &rect
		occ.mark(rect)
		placed++
	}
	return placed
}

// Place returns the first free slot for size among existing widgets.
func (e *LayoutEngine) Place(existing []Widget, size Size) Rect {
	return e.findSlot(newOccupancy(existing, ""), size)
}

// findSlot scans rows top to bottom and columns left to right for the
// first free footprint.
func (e *LayoutEngine) findSlot(occ occupancy, size Size) Rect {
	for row := 1; row <= e.searchRows; row++ {
		for col := 1; col <= GridColumns-size.W+1; col++ {
			candidate := Rect{Col: col, Row: row, W: size.W, H: size.H}
			if occ.free(candidate) {
				return candidate
			}
		}
	}
	return Rect{Col: 1, Row: 1, W: size.W, H: size.H}
}

// ClampResize bounds a candidate size: width to [minW, 12-col+1] and
// height to [minH, maxH]. When a bound conflicts with a minimum the grid
// bound wins.
func (e *LayoutEngine) ClampResize(w Widget, width, height int) Rect {
	rect := rectOf(w)
	minSize := e.MinFootprint(w)
	maxW := GridColumns - rect.Col + 1
	rect.W = min(max(width, minSize.W), maxW)
	rect.H = min(max(height, minSize.H), e.maxH)
	return rect
}

// MinFootprint returns the legibility minimum for a widget.
func (e *LayoutEngine) MinFootprint(w Widget) Size {
	return e.catalog.MinSize(w.Type, w.DisplayMode)
}

// ClampMove bounds a candidate position: col to [1, 12-w+1], row to [1, ∞).
func (e *LayoutEngine) ClampMove(w Widget, col, row int) Rect {
	rect := rectOf(w)
	rect.Col = min(max(col, 1), GridColumns-rect.W+1)
	rect.Row = max(row, 1)
	return rect
}

// FitToGrid repairs a rectangle loaded from storage so it lies inside the
// grid and respects the widget's minimums and height cap.
func (e *LayoutEngine) FitToGrid(w Widget, r Rect) Rect {
	minSize := e.MinFootprint(w)
	r.W = min(max(r.W, minSize.W), GridColumns)
	r.H = min(max(r.H, minSize.H), e.maxH)
	r.Col = min(max(r.Col, 1), GridColumns-r.W+1)
	r.Row = max(r.Row, 1)
	return r
}

// Collides reports whether rect overlaps any placed widget other than id.
func (e *LayoutEngine) Collides(widgets []Widget, id string, rect Rect) bool {
	for _, other := range widgets {
		if other.ID == id || other.Layout == nil {
			continue
		}
		if rect.Overlaps(*other.Layout) {
			return true
		}
	}
	return false
}

// NearestFreeRow searches downward from rect.Row, keeping the column, for
// the first row where rect fits without overlapping widgets other than id.
func (e *LayoutEngine) NearestFreeRow(widgets []Widget, id string, rect Rect) (Rect, bool) {
	occ := newOccupancy(widgets, id)
	for row := max(rect.Row, 1); row <= rect.Row+e.searchRows; row++ {
		candidate := rect
		candidate.Row = row
		if occ.free(candidate) {
			return candidate, true
		}
	}
	return rect, false
}

// Overlapping returns id pairs of placed widgets whose rectangles overlap.
func Overlapping(widgets []Widget) [][2]string {
	var pairs [][2]string
	for i := range widgets {
		if widgets[i].Layout == nil {
			continue
		}
		for k := i + 1; k < len(widgets); k++ {
			if widgets[k].Layout == nil {
				continue
			}
			if widgets[i].Layout.Overlaps(*widgets[k].Layout) {
				pairs = append(pairs, [2]string{widgets[i].ID, widgets[k].ID})
			}
		}
	}
	return pairs
}

func rectOf(w Widget) Rect {
	if w.Layout == nil {
		return Rect{Col: 1, Row: 1, W: globalMinSize.W, H: globalMinSize.H}
	}
	return *w.Layout
}
