package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/httpapi"
)

type serveCmd struct {
	Addr       string `default:":9876" help:"Listen address for the local control API."`
	BasePath   string `default:"/mesh" help:"Route prefix for dashboard endpoints."`
	User       string `default:"local" help:"Viewer id attached to requests."`
	StreamAddr string `default:":9877" help:"Listen address for the SSE and WebSocket board streams. Empty disables them."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *globals) error {
	ctrl, err := g.controller()
	if err != nil {
		return err
	}
	outcomes := ctrl.Bootstrap(ctx)
	go func() {
		for outcome := range outcomes {
			log.Info(ctx, "dashboard sync outcome", j.KV("outcome", outcome))
		}
	}()

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: ctrl,
		API:        gorouter.NewHandlers(ctrl, ctrl.Board()),
		BasePath:   cmd.BasePath,
		ViewerResolver: func(rc router.Context) core.Viewer {
			return core.Viewer{UserID: cmd.User, Authenticated: g.APIKey != "", Locale: g.Locale}
		},
	}); err != nil {
		return errors.Wrap(err, "register routes")
	}

	go func() {
		if err := ctrl.Refresh().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, errors.Wrap(err, "auto-refresh stopped"))
		}
	}()

	if cmd.StreamAddr != "" {
		go runWebServer(ctx, httpapi.NewStreamRouter(ctrl.Board(), httpapi.DefaultStreamRoutes), cmd.StreamAddr)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "dashboard API listening", j.MKV{"addr": cmd.Addr, "base_path": cmd.BasePath})
		serveErr <- server.Serve(cmd.Addr)
	}()

	select {
	case <-ctx.Done():
		if err := flush(context.Background(), ctrl); err != nil {
			log.Error(ctx, err)
		}
		log.Info(ctx, "dashboard API stopping")
		return nil
	case err := <-serveErr:
		return errors.Wrap(err, "serve")
	}
}
