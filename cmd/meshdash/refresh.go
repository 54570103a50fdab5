package main

import (
	"context"
	"fmt"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/goliatone/go-mesh-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/queries"
)

type refreshCmd struct {
	HTML bool `help:"Print widget bodies as HTML fragments instead of JSON."`
}

func (cmd *refreshCmd) Run(ctx context.Context, g *globals) error {
	if g.BaseURL == "" {
		return errors.New("refresh needs --base-url")
	}
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	outcome := loadState(ctx, ctrl)
	log.Info(ctx, "refreshing dashboard", j.MKV{"dashboard": ctrl.Store().Active().Name, "sync": outcome})

	refresh := commands.NewRefreshDashboardCommand(ctrl.Refresh(), nil)
	// A fetch failure still paints error views, which are worth printing.
	refreshErr := refresh.Execute(ctx, commands.RefreshDashboardInput{Wait: true})

	views := ctrl.ActiveViews()
	if !cmd.HTML {
		if err := writeJSON(os.Stdout, views); err != nil {
			return err
		}
		return refreshErr
	}
	q := queries.NewWidgetViewQuery(ctrl.Board())
	for _, v := range views {
		res, err := q.Query(ctx, queries.WidgetViewInput{WidgetID: v.WidgetID, HTML: true})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.HTML)
	}
	return refreshErr
}
