package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goliatone/go-mesh-dashboard/components/dashboard/queries"
)

type layoutCmd struct {
	JSON bool `help:"Print the layout as JSON."`
}

func (cmd *layoutCmd) Run(ctx context.Context, g *globals) error {
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	loadState(ctx, ctrl)

	layout, err := queries.NewLayoutQuery(ctrl.Store()).Query(ctx, queries.LayoutInput{})
	if err != nil {
		return err
	}
	if cmd.JSON {
		return writeJSON(os.Stdout, layout)
	}
	return printLayout(os.Stdout, layout)
}

func printLayout(out io.Writer, layout queries.Layout) error {
	for _, d := range layout.Dashboards {
		marker := " "
		if d.Active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %s (%d widgets)\n", marker, d.ID, d.Name, d.Widgets)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tCOL\tROW\tW\tH\tNODES")
	for _, w := range layout.Active.Widgets {
		col, row, width, height := 0, 0, 0, 0
		if w.Layout != nil {
			col, row, width, height = w.Layout.Col, w.Layout.Row, w.Layout.W, w.Layout.H
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n", w.ID, w.Type, w.Title, col, row, width, height, len(w.Nodes))
	}
	return tw.Flush()
}
