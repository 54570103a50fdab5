package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type globals struct {
	BaseURL  string `name:"base-url" env:"MESHDASH_BASE_URL" help:"Mesh backend base URL."`
	APIKey   string `name:"api-key" env:"MESHDASH_API_KEY" help:"API key; enables server-side dashboard sync."`
	CacheDir string `name:"cache-dir" type:"path" default:".meshdash" help:"Directory for the local dashboard cache."`
	Manifest string `type:"path" help:"Optional catalog manifest (YAML) to apply."`
	Locale   string `default:"en" help:"Locale for labels and formatting."`
	LogJSON  bool   `name:"log-json" help:"Emit logs as JSON lines."`
}

type cli struct {
	globals

	Layout         layoutCmd         `cmd:"" help:"Print the active dashboard layout."`
	AddWidget      addWidgetCmd      `cmd:"" help:"Add a widget to the active dashboard."`
	ExportManifest exportManifestCmd `cmd:"" help:"Write the widget catalog as a YAML manifest."`
	Refresh        refreshCmd        `cmd:"" help:"Fetch telemetry once and print widget views."`
	Serve          serveCmd          `cmd:"" help:"Serve the local control API and run auto-refresh."`
	Backend        backendCmd        `cmd:"" help:"Run the dashboard config server (and optional node fixtures)."`
}

func main() {
	var app cli
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	kctx := kong.Parse(&app,
		kong.Name("meshdash"),
		kong.Description("Mesh network monitoring dashboards from the command line."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	initLogging(app.LogJSON)
	err := kctx.Run(&app.globals)
	kctx.FatalIfErrorf(err)
}
