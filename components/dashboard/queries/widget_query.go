package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// WidgetViewInput identifies a widget whose body should be returned.
// HTML asks for the rendered template as well.
type WidgetViewInput struct {
	WidgetID string
	HTML     bool
}

// WidgetViewResult is the widget's last rendered body.
type WidgetViewResult struct {
	View dashboard.WidgetView `json:"view"`
	HTML string               `json:"html,omitempty"`
}

type viewBoard interface {
	View(widgetID string) (dashboard.WidgetView, bool)
	HTML(widgetID string) (string, error)
}

// WidgetViewQuery reads widget bodies off the view board.
type WidgetViewQuery struct {
	board viewBoard
}

// NewWidgetViewQuery builds the query.
func NewWidgetViewQuery(board viewBoard) *WidgetViewQuery {
	return &WidgetViewQuery{board: board}
}

var _ gocommand.Querier[WidgetViewInput, WidgetViewResult] = (*WidgetViewQuery)(nil)

func (q *WidgetViewQuery) Query(_ context.Context, input WidgetViewInput) (WidgetViewResult, error) {
	view, ok := q.board.View(input.WidgetID)
	if !ok {
		return WidgetViewResult{}, errors.Wrap(dashboard.ErrNotFound, "widget view not found", j.KV("widget_id", input.WidgetID))
	}
	out := WidgetViewResult{View: view}
	if input.HTML {
		html, err := q.board.HTML(input.WidgetID)
		if err != nil {
			return WidgetViewResult{}, err
		}
		out.HTML = html
	}
	return out, nil
}

// CatalogInput selects the locale catalog labels are resolved for.
type CatalogInput struct {
	Locale string
}

// CatalogResult lists the widget types and the grouped metrics the widget
// form offers.
type CatalogResult struct {
	WidgetTypes []CatalogEntry            `json:"widget_types"`
	Metrics     map[string][]CatalogEntry `json:"metrics"`
}

// CatalogEntry is one selectable option.
type CatalogEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Unit  string `json:"unit,omitempty"`
}

// CatalogQuery exposes the widget catalog to the widget form.
type CatalogQuery struct {
	catalog *dashboard.Catalog
}

// NewCatalogQuery builds the query.
func NewCatalogQuery(catalog *dashboard.Catalog) *CatalogQuery {
	return &CatalogQuery{catalog: catalog}
}

var _ gocommand.Querier[CatalogInput, CatalogResult] = (*CatalogQuery)(nil)

func (q *CatalogQuery) Query(_ context.Context, input CatalogInput) (CatalogResult, error) {
	if q.catalog == nil {
		return CatalogResult{}, errors.New("catalog query requires catalog")
	}
	out := CatalogResult{Metrics: map[string][]CatalogEntry{}}
	for _, def := range q.catalog.WidgetTypes() {
		out.WidgetTypes = append(out.WidgetTypes, CatalogEntry{Key: string(def.Type), Label: def.LabelFor(input.Locale)})
	}
	for group, defs := range q.catalog.MetricsByGroup() {
		for _, def := range defs {
			out.Metrics[group] = append(out.Metrics[group], CatalogEntry{Key: def.Key, Label: def.LabelFor(input.Locale), Unit: def.Unit})
		}
	}
	return out, nil
}
