package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ettle/strcase"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/commands"
)

type addWidgetCmd struct {
	Type     string   `required:"" help:"Widget type (single_metric, multi_metric, node_status, multi_node_compare)."`
	Title    string   `help:"Widget title (defaults to the first node name)."`
	Node     []string `required:"" help:"Node id, e.g. !aabbccdd (repeat for several)."`
	NodeName []string `name:"node-name" help:"Display name per node, in --node order."`
	Metric   []string `help:"Metric key (repeat for several)."`
	Chart    bool     `help:"Show metrics as a line chart instead of value tiles."`
	Hours    int      `help:"Chart lookback in hours (6, 12, 24, 48 or 168)."`
}

func (cmd *addWidgetCmd) Run(ctx context.Context, g *globals) error {
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	loadState(ctx, ctrl)

	spec := cmd.spec()
	add := commands.NewAddWidgetCommand(ctrl.Store(), core.LogInstrumentation{})
	if err := add.Execute(ctx, commands.AddWidgetInput{Spec: spec}); err != nil {
		if notice, ok := core.NoticeFor(err); ok {
			fmt.Fprintln(os.Stderr, notice.Message)
		}
		return err
	}
	if err := flush(ctx, ctrl); err != nil {
		return err
	}

	active := ctrl.Store().Active()
	added := active.Widgets[len(active.Widgets)-1]
	fmt.Fprintf(os.Stdout, "added %s to %q", added.ID, active.Name)
	if added.Layout != nil {
		fmt.Fprintf(os.Stdout, " at col %d row %d (%dx%d)", added.Layout.Col, added.Layout.Row, added.Layout.W, added.Layout.H)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}

func (cmd *addWidgetCmd) spec() core.WidgetSpec {
	spec := core.WidgetSpec{
		Type:       core.WidgetType(normalizeKey(cmd.Type)),
		Title:      strings.TrimSpace(cmd.Title),
		Nodes:      cmd.Node,
		NodeNames:  cmd.NodeName,
		ChartHours: cmd.Hours,
	}
	for _, m := range cmd.Metric {
		spec.Metrics = append(spec.Metrics, normalizeKey(m))
	}
	if cmd.Chart {
		spec.DisplayMode = core.DisplayChart
	}
	return spec
}

// normalizeKey accepts kebab or camel spellings of catalog keys. Keys
// already in snake case pass through untouched.
func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if strings.ToLower(s) == s && !strings.ContainsAny(s, "- ") {
		return s
	}
	return strcase.ToSnake(s)
}
