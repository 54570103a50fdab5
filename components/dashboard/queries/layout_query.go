package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
)

// LayoutInput is empty: the layout query always reads the active dashboard.
type LayoutInput struct{}

// Layout is the active dashboard plus the selector entries for every
// dashboard in the collection.
type Layout struct {
	Active     dashboard.Dashboard `json:"active"`
	Dashboards []DashboardEntry    `json:"dashboards"`
	Columns    int                 `json:"columns"`
}

// DashboardEntry is one dashboard selector option.
type DashboardEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Widgets int    `json:"widgets"`
	Active  bool   `json:"active"`
}

type layoutStore interface {
	Active() dashboard.Dashboard
	Dashboards() []dashboard.Dashboard
}

// LayoutQuery executes read-only layout resolution.
type LayoutQuery struct {
	store layoutStore
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(store layoutStore) *LayoutQuery {
	return &LayoutQuery{store: store}
}

var _ gocommand.Querier[LayoutInput, Layout] = (*LayoutQuery)(nil)

// Query returns the active dashboard and the selector.
func (q *LayoutQuery) Query(_ context.Context, _ LayoutInput) (Layout, error) {
	active := q.store.Active()
	all := q.store.Dashboards()
	out := Layout{Active: active, Columns: dashboard.GridColumns, Dashboards: make([]DashboardEntry, 0, len(all))}
	for _, d := range all {
		out.Dashboards = append(out.Dashboards, DashboardEntry{
			ID:      d.ID,
			Name:    d.Name,
			Widgets: len(d.Widgets),
			Active:  d.ID == active.ID,
		})
	}
	return out, nil
}
