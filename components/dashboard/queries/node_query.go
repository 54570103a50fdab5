package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// NodeSearchInput is the node picker query.
type NodeSearchInput struct {
	Query string
	Limit int
}

type nodeSearcher interface {
	SearchNodes(ctx context.Context, query string, limit int) ([]dashboard.NodeSummary, error)
}

// NodeSearchQuery backs the widget form's node picker.
type NodeSearchQuery struct {
	nodes nodeSearcher
}

// NewNodeSearchQuery builds the query.
func NewNodeSearchQuery(nodes nodeSearcher) *NodeSearchQuery {
	return &NodeSearchQuery{nodes: nodes}
}

var _ gocommand.Querier[NodeSearchInput, []dashboard.NodeSummary] = (*NodeSearchQuery)(nil)

// Query searches nodes. The limit defaults to 20 and is capped at 50.
func (q *NodeSearchQuery) Query(ctx context.Context, input NodeSearchInput) ([]dashboard.NodeSummary, error) {
	return q.nodes.SearchNodes(ctx, input.Query, ClampSearchLimit(input.Limit))
}

// ClampSearchLimit bounds a node search limit to [1, 50]; zero means 20.
func ClampSearchLimit(limit int) int {
	if limit == 0 {
		return defaultSearchLimit
	}
	return min(max(limit, 1), maxSearchLimit)
}
